package service

import (
	"context"
	"errors"
	"mentor_site_backend/internal/config"
	"mentor_site_backend/internal/model"
	"mentor_site_backend/internal/util"
	"mentor_site_backend/pkg/monitoring"
	"time"

	"gorm.io/gorm"
)

// SolveNotifier 解题事实落库后的下游通知（榜单在线推送）
type SolveNotifier interface {
	NotifySolve(courseID, userID uint)
}

// ProgressStore 进度事实的持久层。repository.ProgressRepository 是生产实现，
// 创建类方法靠唯一索引把重复插入变成可识别的冲突错误
type ProgressStore interface {
	CreateAttempt(attempt *model.Attempt) error
	FindAttempt(userID, problemID uint) (*model.Attempt, error)
	MarkUnlocked(userID, problemID uint, unlockedAt time.Time) error
	CreateSolveWithStats(solve *model.Solve, courseID uint) error
	FindSolve(userID, problemID uint) (*model.Solve, error)
	FindAttemptsByUser(userID uint) ([]model.Attempt, error)
	FindSolvesByUser(userID uint) ([]model.Solve, error)
}

// ProblemCatalog 题目目录查询，repository.CourseRepository 是生产实现
type ProblemCatalog interface {
	FindProblemByID(id uint) (*model.Problem, error)
	FindProblemsByIDs(ids []uint) ([]model.Problem, error)
}

// ProgressService 实现 题目生命周期状态机：
// Unattempted → Attempted → Unlocked，Solved 为终态且立即强制解锁。
// 状态永远由持久时间戳 + 当前时间推导，服务端不持有任何运行中的计时器，
// 任何时刻接入的客户端都能重算出一致的结果。
type ProgressService struct {
	ProgressRepo ProgressStore
	CourseRepo   ProblemCatalog
	Cache        *ProgressCacheService
	Notifier     SolveNotifier
	Cfg          *config.Config
}

func NewProgressService(
	progressRepo ProgressStore,
	courseRepo ProblemCatalog,
	cache *ProgressCacheService,
	cfg *config.Config,
) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		CourseRepo:   courseRepo,
		Cache:        cache,
		Cfg:          cfg,
	}
}

// computeViewState 由持久事实推导视图状态。
// unlocked 的三个来源：已落盘的 unlocked_at、Solve 存在、now 已过 deadline。
// 第三个来源保证客户端清掉本地缓存后重新进来也不会看到过期的"未解锁"。
func computeViewState(attempt *model.Attempt, solve *model.Solve, delay time.Duration, now time.Time) model.ViewState {
	if attempt == nil && solve == nil {
		return model.ViewState{
			Status:   model.StatusUnattempted,
			Unlocked: false,
		}
	}

	state := model.ViewState{Status: model.StatusAttempted}

	if attempt != nil {
		deadline := attempt.AttemptedAt.Add(delay)
		deadlineMs := deadline.UnixMilli()
		state.UnlockDeadline = &deadlineMs

		if attempt.UnlockedAt != nil || !now.Before(deadline) {
			state.Unlocked = true
		} else {
			state.RemainingMs = deadline.Sub(now).Milliseconds()
		}
	}

	if solve != nil {
		state.Status = model.StatusSolved
		state.Unlocked = true
		state.RemainingMs = 0
	}

	return state
}

func (s *ProgressService) loadFacts(userID, problemID uint) (*model.Attempt, *model.Solve, error) {
	attempt, err := s.ProgressRepo.FindAttempt(userID, problemID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}
	solve, err := s.ProgressRepo.FindSolve(userID, problemID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}
	return attempt, solve, nil
}

// ViewState 读取某用户在某题上的当前状态
func (s *ProgressService) ViewState(userID, problemID uint) (*model.ViewState, error) {
	problem, err := s.CourseRepo.FindProblemByID(problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProblemNotFound
		}
		return nil, err
	}

	attempt, solve, err := s.loadFacts(userID, problemID)
	if err != nil {
		return nil, err
	}

	state := computeViewState(attempt, solve, s.Cfg.Progress.UnlockDelay(string(problem.Difficulty)), time.Now())

	s.mirror(userID, problemID, attempt, solve, &state)
	return &state, nil
}

// RecordAttempt 幂等记录做题事实。重复调用吞掉唯一索引冲突并按成功返回，
// 不会产生新计时、不会重置 deadline：以最早的 attempted_at 为准。
func (s *ProgressService) RecordAttempt(userID, problemID uint) (*model.ViewState, error) {
	problem, err := s.CourseRepo.FindProblemByID(problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProblemNotFound
		}
		return nil, err
	}

	now := time.Now()
	attempt := &model.Attempt{
		UserID:      userID,
		ProblemID:   problemID,
		AttemptedAt: now,
	}

	err = s.ProgressRepo.CreateAttempt(attempt)
	switch {
	case err == nil:
		monitoring.ProgressEventCounter.WithLabelValues("attempt", "created").Inc()
	case util.IsDuplicateKeyError(err):
		// 多 Tab / 重试 / 双击并发：另一边已提交，取已有事实
		monitoring.ProgressEventCounter.WithLabelValues("attempt", "duplicate").Inc()
		attempt, err = s.ProgressRepo.FindAttempt(userID, problemID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	solve, err := s.ProgressRepo.FindSolve(userID, problemID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	state := computeViewState(attempt, solve, s.Cfg.Progress.UnlockDelay(string(problem.Difficulty)), now)
	s.mirror(userID, problemID, attempt, solve, &state)
	return &state, nil
}

// RecordSolve 幂等记录解题事实。Solve 插入、解锁标记、课程聚合累加
// 在同一事务里提交，首次成功后恰好一次地广播榜单事件；
// 事务任何一步失败都整体回滚，留给调用方重试。
// 重复调用是 no-op，按成功返回。
func (s *ProgressService) RecordSolve(userID, problemID uint) (*model.ViewState, error) {
	problem, err := s.CourseRepo.FindProblemByID(problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProblemNotFound
		}
		return nil, err
	}

	now := time.Now()

	// Solve 蕴含 Attempt：缺失时按解题时间补齐
	attempt := &model.Attempt{
		UserID:      userID,
		ProblemID:   problemID,
		AttemptedAt: now,
	}
	err = s.ProgressRepo.CreateAttempt(attempt)
	if err != nil {
		if !util.IsDuplicateKeyError(err) {
			return nil, err
		}
		attempt, err = s.ProgressRepo.FindAttempt(userID, problemID)
		if err != nil {
			return nil, err
		}
	}

	solve := &model.Solve{
		UserID:    userID,
		ProblemID: problemID,
		SolvedAt:  now,
	}
	// 解题立即解锁并取消倒计时；Solve 插入的唯一性保证
	// 聚合累加只会执行一次，计数器不会翻倍
	err = s.ProgressRepo.CreateSolveWithStats(solve, problem.CourseID)
	switch {
	case err == nil:
		monitoring.ProgressEventCounter.WithLabelValues("solve", "created").Inc()

		if s.Notifier != nil {
			s.Notifier.NotifySolve(problem.CourseID, userID)
		}
	case util.IsDuplicateKeyError(err):
		// 已解过：终态，不重复计数
		monitoring.ProgressEventCounter.WithLabelValues("solve", "duplicate").Inc()
		solve, err = s.ProgressRepo.FindSolve(userID, problemID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	unlockedAt := now
	if attempt.UnlockedAt == nil {
		attempt.UnlockedAt = &unlockedAt
	}

	state := computeViewState(attempt, solve, s.Cfg.Progress.UnlockDelay(string(problem.Difficulty)), now)
	s.mirror(userID, problemID, attempt, solve, &state)
	return &state, nil
}

// PersistUnlock 到点客户端上报解锁，懒落盘 unlocked_at。
// 没有客户端恰好在 deadline 在线也没关系：下一个读者自己会算出已解锁，
// 并通过这里把标记补上。deadline 未到时拒绝。
func (s *ProgressService) PersistUnlock(userID, problemID uint) (*model.ViewState, error) {
	problem, err := s.CourseRepo.FindProblemByID(problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProblemNotFound
		}
		return nil, err
	}

	attempt, solve, err := s.loadFacts(userID, problemID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	delay := s.Cfg.Progress.UnlockDelay(string(problem.Difficulty))
	state := computeViewState(attempt, solve, delay, now)

	if !state.Unlocked {
		return nil, util.ErrSolutionLocked
	}

	if attempt != nil && attempt.UnlockedAt == nil {
		if err := s.ProgressRepo.MarkUnlocked(userID, problemID, now); err != nil {
			return nil, err
		}
		monitoring.ProgressEventCounter.WithLabelValues("unlock", "persisted").Inc()
		attempt.UnlockedAt = &now
	}

	s.mirror(userID, problemID, attempt, solve, &state)
	return &state, nil
}

// Solution 解锁后才下发题解，未解锁返回 ErrSolutionLocked 和带剩余倒计时的状态
func (s *ProgressService) Solution(userID, problemID uint) (string, *model.ViewState, error) {
	problem, err := s.CourseRepo.FindProblemByID(problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrProblemNotFound
		}
		return "", nil, err
	}

	attempt, solve, err := s.loadFacts(userID, problemID)
	if err != nil {
		return "", nil, err
	}

	state := computeViewState(attempt, solve, s.Cfg.Progress.UnlockDelay(string(problem.Difficulty)), time.Now())
	if !state.Unlocked {
		return "", &state, util.ErrSolutionLocked
	}

	return problem.Solution, &state, nil
}

// ProgressSummary 某用户全部题目的权威进度汇总，
// 形状与缓存镜像一致，客户端拿到它后直接覆盖本地缓存
type ProgressSummary struct {
	Attempted []uint         `json:"attempted"`
	Unlocked  []uint         `json:"unlocked"`
	Solved    []uint         `json:"solved"`
	Deadlines map[uint]int64 `json:"deadlines"` // 仍在倒计时的题目 → 毫秒时间戳
}

// Summary 权威进度汇总。逐题用同一套推导逻辑，不信任任何缓存
func (s *ProgressService) Summary(userID uint) (*ProgressSummary, error) {
	attempts, err := s.ProgressRepo.FindAttemptsByUser(userID)
	if err != nil {
		return nil, err
	}
	solves, err := s.ProgressRepo.FindSolvesByUser(userID)
	if err != nil {
		return nil, err
	}

	solveByProblem := make(map[uint]*model.Solve, len(solves))
	for i := range solves {
		solveByProblem[solves[i].ProblemID] = &solves[i]
	}

	problemIDs := make([]uint, 0, len(attempts))
	attemptedSet := make(map[uint]bool, len(attempts))
	for _, a := range attempts {
		problemIDs = append(problemIDs, a.ProblemID)
		attemptedSet[a.ProblemID] = true
	}
	problems, err := s.CourseRepo.FindProblemsByIDs(problemIDs)
	if err != nil {
		return nil, err
	}
	difficultyByProblem := make(map[uint]model.Difficulty, len(problems))
	for _, p := range problems {
		difficultyByProblem[p.ID] = p.Difficulty
	}

	summary := &ProgressSummary{
		Attempted: []uint{},
		Unlocked:  []uint{},
		Solved:    []uint{},
		Deadlines: map[uint]int64{},
	}

	now := time.Now()
	for i := range attempts {
		attempt := &attempts[i]
		pid := attempt.ProblemID
		summary.Attempted = append(summary.Attempted, pid)

		delay := s.Cfg.Progress.UnlockDelay(string(difficultyByProblem[pid]))
		state := computeViewState(attempt, solveByProblem[pid], delay, now)

		if state.Status == model.StatusSolved {
			summary.Solved = append(summary.Solved, pid)
		}
		if state.Unlocked {
			summary.Unlocked = append(summary.Unlocked, pid)
		} else if state.UnlockDeadline != nil {
			summary.Deadlines[pid] = *state.UnlockDeadline
		}
	}

	// 没有 Attempt 的 Solve（理论上 Solve 蕴含 Attempt，防御历史数据）
	for pid := range solveByProblem {
		if !attemptedSet[pid] {
			summary.Attempted = append(summary.Attempted, pid)
			summary.Solved = append(summary.Solved, pid)
			summary.Unlocked = append(summary.Unlocked, pid)
		}
	}

	return summary, nil
}

// mirror 写透本地进度缓存，失败只记日志，绝不影响主流程
func (s *ProgressService) mirror(userID, problemID uint, attempt *model.Attempt, solve *model.Solve, state *model.ViewState) {
	if s.Cache == nil {
		return
	}

	ctx := context.Background()
	if solve != nil || state.Unlocked {
		s.Cache.MirrorUnlock(ctx, userID, problemID)
	} else if attempt != nil && state.UnlockDeadline != nil {
		s.Cache.MirrorAttempt(ctx, userID, problemID, *state.UnlockDeadline)
	}
}
