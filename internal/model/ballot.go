package model

import (
	"time"
)

type VoteValue string

const (
	VoteUp   VoteValue = "up"
	VoteDown VoteValue = "down"
)

// ProblemVote 题目投票，每人每题永远只有一票
// swagger:model ProblemVote
type ProblemVote struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProblemID uint      `gorm:"uniqueIndex:idx_vote_problem_user;type:bigint unsigned;not null" json:"problemId"`
	UserID    uint      `gorm:"uniqueIndex:idx_vote_problem_user;type:bigint unsigned;not null" json:"userId"`
	Vote      VoteValue `gorm:"type:enum('up','down');not null" json:"vote"`
	CreatedAt time.Time `json:"createdAt"`
}

func (ProblemVote) TableName() string {
	return "problem_votes"
}

// ContentLike 内容点赞，每人每个目标只能点一次，不支持取消
type ContentLike struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      uint      `gorm:"uniqueIndex:idx_user_content;type:bigint unsigned" json:"userId"`
	ContentType string    `gorm:"uniqueIndex:idx_user_content;size:20" json:"contentType"` // post, comment
	ContentID   string    `gorm:"uniqueIndex:idx_user_content;size:36" json:"contentId"`
}

func (ContentLike) TableName() string {
	return "content_likes"
}

// VoteCounts 按票值分组得到的派生计数，从不单独存储
type VoteCounts struct {
	Up   int64 `json:"up"`
	Down int64 `json:"down"`
}
