package repository

import (
	"mentor_site_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// CreateAttempt 插入做题事实。唯一索引冲突由调用方通过
// util.IsDuplicateKeyError 识别并按成功处理，不在这里吞掉，
// 因为 Solve 路径需要区分"真的新插入"和"早已存在"。
func (r *ProgressRepository) CreateAttempt(attempt *model.Attempt) error {
	return r.DB.Create(attempt).Error
}

func (r *ProgressRepository) FindAttempt(userID, problemID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.Where("user_id = ? AND problem_id = ?", userID, problemID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// MarkUnlocked 落盘解锁标记。WHERE unlocked_at IS NULL 保证只写一次，
// 两个客户端同时到点触发也不会报错，晚到的一个是空更新。
func (r *ProgressRepository) MarkUnlocked(userID, problemID uint, unlockedAt time.Time) error {
	return r.DB.Model(&model.Attempt{}).
		Where("user_id = ? AND problem_id = ? AND unlocked_at IS NULL", userID, problemID).
		Update("unlocked_at", unlockedAt).Error
}

// CreateSolveWithStats 解题事实、解锁标记、课程聚合累加在同一事务里提交，
// 要么全部落盘要么全部回滚。没有这层原子性，聚合那步一旦瞬时失败，
// 后续重试会被 Solve 的重复键吞掉，course_user_stats 从此永久少计。
// Solve 已存在时事务以重复键错误回滚，调用方照旧按成功吞掉。
func (r *ProgressRepository) CreateSolveWithStats(solve *model.Solve, courseID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(solve).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Attempt{}).
			Where("user_id = ? AND problem_id = ? AND unlocked_at IS NULL", solve.UserID, solve.ProblemID).
			Update("unlocked_at", solve.SolvedAt).Error; err != nil {
			return err
		}
		return upsertCourseUserStat(tx, courseID, solve.UserID, solve.SolvedAt)
	})
}

func (r *ProgressRepository) FindSolve(userID, problemID uint) (*model.Solve, error) {
	var solve model.Solve
	err := r.DB.Where("user_id = ? AND problem_id = ?", userID, problemID).
		First(&solve).Error
	if err != nil {
		return nil, err
	}
	return &solve, nil
}

func (r *ProgressRepository) FindAttemptsByUser(userID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("user_id = ?", userID).Find(&attempts).Error
	return attempts, err
}

func (r *ProgressRepository) FindSolvesByUser(userID uint) ([]model.Solve, error) {
	var solves []model.Solve
	err := r.DB.Where("user_id = ?", userID).Find(&solves).Error
	return solves, err
}

// SolveFactRow 原始折算路径的聚合行，按用户分组统计
type SolveFactRow struct {
	UserID        uint
	TotalSolves   int
	FirstSolvedAt time.Time
}

// AggregateSolves 在 solves 表上直接分组聚合。
// problemIDs 为空表示全局范围（所有题目）。
func (r *ProgressRepository) AggregateSolves(problemIDs []uint) ([]SolveFactRow, error) {
	var rows []SolveFactRow
	query := r.DB.Model(&model.Solve{}).
		Select("user_id, COUNT(*) AS total_solves, MIN(solved_at) AS first_solved_at").
		Group("user_id")
	if len(problemIDs) > 0 {
		query = query.Where("problem_id IN ?", problemIDs)
	}
	err := query.Scan(&rows).Error
	return rows, err
}
