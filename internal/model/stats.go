package model

import (
	"time"
)

// CourseUserStat 每用户每课程的解题汇总，仅由 Solve 写入路径维护。
// TotalSolves 只增不减，FirstSolvedAt 只会取更早值。
// swagger:model CourseUserStat
type CourseUserStat struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID      uint      `gorm:"uniqueIndex:idx_stat_course_user;type:bigint unsigned;not null" json:"courseId"`
	UserID        uint      `gorm:"uniqueIndex:idx_stat_course_user;type:bigint unsigned;not null" json:"userId"`
	TotalSolves   int       `gorm:"default:0;not null" json:"totalSolves"`
	FirstSolvedAt time.Time `gorm:"not null" json:"firstSolvedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (CourseUserStat) TableName() string {
	return "course_user_stats"
}
