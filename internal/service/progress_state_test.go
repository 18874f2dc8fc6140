package service

import (
	"mentor_site_backend/internal/config"
	"mentor_site_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pacing() *config.ProgressConfig {
	return &config.ProgressConfig{
		UnlockDelayEasyMinutes:   15,
		UnlockDelayMediumMinutes: 20,
		UnlockDelayHardMinutes:   30,
	}
}

func TestComputeViewStateUnattempted(t *testing.T) {
	state := computeViewState(nil, nil, 20*time.Minute, time.Now())

	assert.Equal(t, model.StatusUnattempted, state.Status)
	assert.False(t, state.Unlocked)
	assert.Nil(t, state.UnlockDeadline)
}

func TestComputeViewStateAttemptedBeforeDeadline(t *testing.T) {
	t0 := time.Now()
	attempt := &model.Attempt{AttemptedAt: t0}
	delay := pacing().UnlockDelay("medium")

	// T0+19分：还差 1 分钟
	state := computeViewState(attempt, nil, delay, t0.Add(19*time.Minute))

	assert.Equal(t, model.StatusAttempted, state.Status)
	assert.False(t, state.Unlocked)
	require.NotNil(t, state.UnlockDeadline)
	assert.Equal(t, t0.Add(20*time.Minute).UnixMilli(), *state.UnlockDeadline)
	assert.InDelta(t, time.Minute.Milliseconds(), state.RemainingMs, 10)
}

func TestComputeViewStateAttemptedAtDeadline(t *testing.T) {
	t0 := time.Now()
	attempt := &model.Attempt{AttemptedAt: t0}
	delay := pacing().UnlockDelay("medium")

	// 正好到点：解锁，边界算已到
	state := computeViewState(attempt, nil, delay, t0.Add(20*time.Minute))

	assert.Equal(t, model.StatusAttempted, state.Status)
	assert.True(t, state.Unlocked)
	assert.Zero(t, state.RemainingMs)
}

func TestComputeViewStateEasyCountdown(t *testing.T) {
	t0 := time.Now()
	attempt := &model.Attempt{AttemptedAt: t0}
	delay := pacing().UnlockDelay("easy")

	// easy 15 分钟，T0+10分 剩 5 分钟
	state := computeViewState(attempt, nil, delay, t0.Add(10*time.Minute))

	assert.False(t, state.Unlocked)
	assert.InDelta(t, (5 * time.Minute).Milliseconds(), state.RemainingMs, 10)
}

func TestComputeViewStatePersistedUnlockWins(t *testing.T) {
	t0 := time.Now()
	unlockedAt := t0.Add(time.Minute)
	attempt := &model.Attempt{AttemptedAt: t0, UnlockedAt: &unlockedAt}

	// 已落盘的解锁标记优先于倒计时
	state := computeViewState(attempt, nil, 20*time.Minute, t0.Add(2*time.Minute))

	assert.Equal(t, model.StatusAttempted, state.Status)
	assert.True(t, state.Unlocked)
}

func TestComputeViewStateSolveForcesUnlock(t *testing.T) {
	t0 := time.Now()
	attempt := &model.Attempt{AttemptedAt: t0}
	solve := &model.Solve{SolvedAt: t0.Add(time.Minute)}

	// 解题立即解锁并取消倒计时，deadline 远未到也一样
	state := computeViewState(attempt, solve, 30*time.Minute, t0.Add(2*time.Minute))

	assert.Equal(t, model.StatusSolved, state.Status)
	assert.True(t, state.Unlocked)
	assert.Zero(t, state.RemainingMs)
}

func TestComputeViewStateSolveWithoutAttempt(t *testing.T) {
	solve := &model.Solve{SolvedAt: time.Now()}

	state := computeViewState(nil, solve, 20*time.Minute, time.Now())

	assert.Equal(t, model.StatusSolved, state.Status)
	assert.True(t, state.Unlocked)
	assert.Nil(t, state.UnlockDeadline)
}

func TestUnlockDelayByDifficulty(t *testing.T) {
	cfg := pacing()

	assert.Equal(t, 15*time.Minute, cfg.UnlockDelay("easy"))
	assert.Equal(t, 20*time.Minute, cfg.UnlockDelay("medium"))
	assert.Equal(t, 30*time.Minute, cfg.UnlockDelay("hard"))

	// 未识别的难度按 medium 处理
	assert.Equal(t, 20*time.Minute, cfg.UnlockDelay("legendary"))
	assert.Equal(t, 20*time.Minute, cfg.UnlockDelay(""))
}
