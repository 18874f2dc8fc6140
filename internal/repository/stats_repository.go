package repository

import (
	"mentor_site_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type StatsRepository struct {
	DB *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{DB: db}
}

// upsertCourseUserStat 只在 Solve 插入的同一事务里执行恰好一次，
// 所以这里的 total_solves + 1 不会重复计数。first_solved_at 只取更早值。
func upsertCourseUserStat(db *gorm.DB, courseID, userID uint, solvedAt time.Time) error {
	return db.Exec(`
		INSERT INTO course_user_stats (course_id, user_id, total_solves, first_solved_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON DUPLICATE KEY UPDATE
			total_solves = total_solves + 1,
			first_solved_at = LEAST(first_solved_at, VALUES(first_solved_at)),
			updated_at = VALUES(updated_at)`,
		courseID, userID, solvedAt, time.Now()).Error
}

func (r *StatsRepository) FindByCourse(courseID uint) ([]model.CourseUserStat, error) {
	var stats []model.CourseUserStat
	err := r.DB.Where("course_id = ?", courseID).Find(&stats).Error
	return stats, err
}

// GlobalStatRow 全局范围：跨课程求和 total_solves、取最早 first_solved_at
type GlobalStatRow struct {
	UserID        uint
	TotalSolves   int
	FirstSolvedAt time.Time
}

func (r *StatsRepository) AggregateGlobal() ([]GlobalStatRow, error) {
	var rows []GlobalStatRow
	err := r.DB.Model(&model.CourseUserStat{}).
		Select("user_id, SUM(total_solves) AS total_solves, MIN(first_solved_at) AS first_solved_at").
		Group("user_id").
		Scan(&rows).Error
	return rows, err
}
