package model

import (
	"time"
)

// Attempt 用户首次动手做某道题的持久事实，唯一且不可删除。
// UnlockedAt 是唯一可写一次的列：计时器到点或解题成功后落盘。
// swagger:model Attempt
type Attempt struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint       `gorm:"uniqueIndex:idx_attempt_user_problem;type:bigint unsigned;not null" json:"userId"`
	ProblemID   uint       `gorm:"uniqueIndex:idx_attempt_user_problem;type:bigint unsigned;not null" json:"problemId"`
	AttemptedAt time.Time  `gorm:"not null" json:"attemptedAt"`
	UnlockedAt  *time.Time `json:"unlockedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Solve 用户自报完成的持久事实，唯一、不可变、不可撤销
// swagger:model Solve
type Solve struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_solve_user_problem;type:bigint unsigned;not null" json:"userId"`
	ProblemID uint      `gorm:"uniqueIndex:idx_solve_user_problem;type:bigint unsigned;not null" json:"problemId"`
	SolvedAt  time.Time `gorm:"not null" json:"solvedAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Solve) TableName() string {
	return "solves"
}

type ProgressStatus string

const (
	StatusUnattempted ProgressStatus = "unattempted"
	StatusAttempted   ProgressStatus = "attempted"
	StatusSolved      ProgressStatus = "solved"
)

// ViewState 某用户在某题上的生命周期视图，完全由持久时间戳 + 当前时间推导
type ViewState struct {
	Status         ProgressStatus `json:"status"`
	Unlocked       bool           `json:"unlocked"`
	UnlockDeadline *int64         `json:"unlockDeadline"` // 毫秒时间戳，未开始做题时为 null
	RemainingMs    int64          `json:"remainingMs"`    // 已解锁时为 0
}
