package service

import (
	"errors"
	"mentor_site_backend/internal/config"
	"mentor_site_backend/internal/model"
	"mentor_site_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type factKey struct {
	userID    uint
	problemID uint
}

// fakeProgressStore 模拟唯一索引语义：重复插入返回重复键错误，
// CreateSolveWithStats 模拟事务——任何一步失败都不留下部分写入
type fakeProgressStore struct {
	attempts map[factKey]*model.Attempt
	solves   map[factKey]*model.Solve
	stats    map[uint]int // courseID → total_solves
	statErr  error        // 注入聚合累加阶段的故障
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{
		attempts: map[factKey]*model.Attempt{},
		solves:   map[factKey]*model.Solve{},
		stats:    map[uint]int{},
	}
}

func (f *fakeProgressStore) CreateAttempt(attempt *model.Attempt) error {
	k := factKey{attempt.UserID, attempt.ProblemID}
	if _, ok := f.attempts[k]; ok {
		return gorm.ErrDuplicatedKey
	}
	stored := *attempt
	f.attempts[k] = &stored
	return nil
}

func (f *fakeProgressStore) FindAttempt(userID, problemID uint) (*model.Attempt, error) {
	if a, ok := f.attempts[factKey{userID, problemID}]; ok {
		found := *a
		return &found, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeProgressStore) MarkUnlocked(userID, problemID uint, unlockedAt time.Time) error {
	if a, ok := f.attempts[factKey{userID, problemID}]; ok && a.UnlockedAt == nil {
		at := unlockedAt
		a.UnlockedAt = &at
	}
	return nil
}

func (f *fakeProgressStore) CreateSolveWithStats(solve *model.Solve, courseID uint) error {
	k := factKey{solve.UserID, solve.ProblemID}
	if _, ok := f.solves[k]; ok {
		return gorm.ErrDuplicatedKey
	}
	if f.statErr != nil {
		return f.statErr
	}
	stored := *solve
	f.solves[k] = &stored
	f.MarkUnlocked(solve.UserID, solve.ProblemID, solve.SolvedAt)
	f.stats[courseID]++
	return nil
}

func (f *fakeProgressStore) FindSolve(userID, problemID uint) (*model.Solve, error) {
	if s, ok := f.solves[factKey{userID, problemID}]; ok {
		found := *s
		return &found, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeProgressStore) FindAttemptsByUser(userID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	for k, a := range f.attempts {
		if k.userID == userID {
			attempts = append(attempts, *a)
		}
	}
	return attempts, nil
}

func (f *fakeProgressStore) FindSolvesByUser(userID uint) ([]model.Solve, error) {
	var solves []model.Solve
	for k, s := range f.solves {
		if k.userID == userID {
			solves = append(solves, *s)
		}
	}
	return solves, nil
}

type fakeCatalog struct {
	problems map[uint]*model.Problem
}

func (f *fakeCatalog) FindProblemByID(id uint) (*model.Problem, error) {
	if p, ok := f.problems[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalog) FindProblemsByIDs(ids []uint) ([]model.Problem, error) {
	var problems []model.Problem
	for _, id := range ids {
		if p, ok := f.problems[id]; ok {
			problems = append(problems, *p)
		}
	}
	return problems, nil
}

type fakeNotifier struct {
	calls int
}

func (f *fakeNotifier) NotifySolve(courseID, userID uint) {
	f.calls++
}

const (
	testCourseID  = uint(7)
	testProblemID = uint(42)
)

func progressFixture(store *fakeProgressStore) (*ProgressService, *fakeNotifier) {
	cfg := &config.Config{Progress: *pacing()}
	catalog := &fakeCatalog{problems: map[uint]*model.Problem{
		testProblemID: {
			BaseModel:  model.BaseModel{ID: testProblemID},
			CourseID:   testCourseID,
			Title:      "两数之和",
			Difficulty: model.DifficultyMedium,
			Solution:   "用哈希表",
		},
	}}

	svc := NewProgressService(store, catalog, nil, cfg)
	notifier := &fakeNotifier{}
	svc.Notifier = notifier
	return svc, notifier
}

func TestRecordAttemptIdempotent(t *testing.T) {
	store := newFakeProgressStore()
	svc, _ := progressFixture(store)

	first, err := svc.RecordAttempt(1, testProblemID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAttempted, first.Status)
	assert.False(t, first.Unlocked)
	require.Len(t, store.attempts, 1)

	// 把已存事实拨早 5 分钟：重复记录必须沿用最早的 attempted_at
	t0 := time.Now().Add(-5 * time.Minute)
	store.attempts[factKey{1, testProblemID}].AttemptedAt = t0

	second, err := svc.RecordAttempt(1, testProblemID)
	require.NoError(t, err)
	assert.Len(t, store.attempts, 1, "重复记录只有一行事实")
	require.NotNil(t, second.UnlockDeadline)
	assert.Equal(t, t0.Add(20*time.Minute).UnixMilli(), *second.UnlockDeadline,
		"重复记录不重置 deadline")
	assert.Equal(t, model.StatusAttempted, second.Status)
	assert.False(t, second.Unlocked)
}

func TestRecordAttemptUnknownProblem(t *testing.T) {
	svc, _ := progressFixture(newFakeProgressStore())

	_, err := svc.RecordAttempt(1, 999)
	assert.ErrorIs(t, err, util.ErrProblemNotFound)
}

func TestRecordSolveExactlyOnce(t *testing.T) {
	store := newFakeProgressStore()
	svc, notifier := progressFixture(store)

	state, err := svc.RecordSolve(1, testProblemID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, state.Status)
	assert.True(t, state.Unlocked)
	assert.Equal(t, 1, store.stats[testCourseID])
	assert.Equal(t, 1, notifier.calls)

	// Solve 蕴含 Attempt，缺失时按解题时间补齐并带解锁标记
	attempt := store.attempts[factKey{1, testProblemID}]
	require.NotNil(t, attempt)
	require.NotNil(t, attempt.UnlockedAt)
	solve := store.solves[factKey{1, testProblemID}]
	require.NotNil(t, solve)
	assert.Equal(t, solve.SolvedAt, attempt.AttemptedAt)

	// 重复解题是 no-op：不加聚合、不再广播、仍然只有一行
	again, err := svc.RecordSolve(1, testProblemID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, again.Status)
	assert.True(t, again.Unlocked)
	assert.Len(t, store.solves, 1)
	assert.Equal(t, 1, store.stats[testCourseID], "重复解题不再累加聚合")
	assert.Equal(t, 1, notifier.calls, "重复解题不再广播")

	// Solved 是终态：之后的 RecordAttempt 不改变状态
	after, err := svc.RecordAttempt(1, testProblemID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, after.Status)
	assert.True(t, after.Unlocked)
}

func TestRecordSolveAtomicOnStatsFailure(t *testing.T) {
	store := newFakeProgressStore()
	svc, notifier := progressFixture(store)

	// 聚合累加阶段故障：整个事务回滚，不能留下 Solve 行，
	// 否则之后的重试会被重复键吞掉，聚合表永久少计
	store.statErr = errors.New("connection reset")
	_, err := svc.RecordSolve(1, testProblemID)
	require.Error(t, err)
	assert.Empty(t, store.solves)
	assert.Zero(t, store.stats[testCourseID])
	assert.Zero(t, notifier.calls)

	// 故障恢复后重试成功，聚合恰好 +1
	store.statErr = nil
	state, err := svc.RecordSolve(1, testProblemID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, state.Status)
	assert.Equal(t, 1, store.stats[testCourseID])
	assert.Equal(t, 1, notifier.calls)
}
