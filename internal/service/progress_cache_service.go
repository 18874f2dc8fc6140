package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mentor_site_backend/internal/config"
	"mentor_site_backend/pkg/logger"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const progressCacheTTL = 30 * 24 * time.Hour

// ProgressCacheService 按身份镜像进度结果：已做题集合、已解锁集合、
// 未解锁题目的 deadline。严格只读穿透——它只在权威结果到达前垫一下 UI，
// 从不发起状态迁移；权威读写都会覆盖这里。所有写入尽力而为。
type ProgressCacheService struct {
	Redis *redis.Client
	Cfg   *config.Config
}

func NewProgressCacheService(rdb *redis.Client, cfg *config.Config) *ProgressCacheService {
	return &ProgressCacheService{Redis: rdb, Cfg: cfg}
}

// CachedProgress 缓存快照，只用于权威结果返回前的首屏
type CachedProgress struct {
	Attempted []uint         `json:"attempted"`
	Unlocked  []uint         `json:"unlocked"`
	Deadlines map[uint]int64 `json:"deadlines"` // problemId → 毫秒时间戳
}

// KnownIdentity 浏览器侧"见过的身份"，供未登录时切换展示
type KnownIdentity struct {
	UserID uint   `json:"userId"`
	Label  string `json:"label"`
}

func attemptedKey(userID uint) string {
	return fmt.Sprintf("progress:%d:attempted", userID)
}

func unlockedKey(userID uint) string {
	return fmt.Sprintf("progress:%d:unlocked", userID)
}

func deadlinesKey(userID uint) string {
	return fmt.Sprintf("progress:%d:deadlines", userID)
}

func identitiesKey(deviceID string) string {
	return fmt.Sprintf("known_identities:%s", deviceID)
}

// MirrorAttempt 做题事实写透：记入 attempted 集合并存 deadline
func (s *ProgressCacheService) MirrorAttempt(ctx context.Context, userID, problemID uint, deadlineMs int64) {
	if s.Redis == nil {
		return
	}
	pid := strconv.FormatUint(uint64(problemID), 10)

	pipe := s.Redis.Pipeline()
	pipe.SAdd(ctx, attemptedKey(userID), pid)
	pipe.HSet(ctx, deadlinesKey(userID), pid, deadlineMs)
	pipe.Expire(ctx, attemptedKey(userID), progressCacheTTL)
	pipe.Expire(ctx, deadlinesKey(userID), progressCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("progress cache mirror failed", zap.Uint("userId", userID), zap.Error(err))
	}
}

// MirrorUnlock 解锁（含解题）写透：记入 unlocked 集合并清掉 deadline
func (s *ProgressCacheService) MirrorUnlock(ctx context.Context, userID, problemID uint) {
	if s.Redis == nil {
		return
	}
	pid := strconv.FormatUint(uint64(problemID), 10)

	pipe := s.Redis.Pipeline()
	pipe.SAdd(ctx, attemptedKey(userID), pid)
	pipe.SAdd(ctx, unlockedKey(userID), pid)
	pipe.HDel(ctx, deadlinesKey(userID), pid)
	pipe.Expire(ctx, attemptedKey(userID), progressCacheTTL)
	pipe.Expire(ctx, unlockedKey(userID), progressCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("progress cache mirror failed", zap.Uint("userId", userID), zap.Error(err))
	}
}

// Snapshot 读取某身份的缓存镜像
func (s *ProgressCacheService) Snapshot(ctx context.Context, userID uint) (*CachedProgress, error) {
	snapshot := &CachedProgress{
		Attempted: []uint{},
		Unlocked:  []uint{},
		Deadlines: map[uint]int64{},
	}
	if s.Redis == nil {
		return snapshot, nil
	}

	attempted, err := s.Redis.SMembers(ctx, attemptedKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	unlocked, err := s.Redis.SMembers(ctx, unlockedKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	deadlines, err := s.Redis.HGetAll(ctx, deadlinesKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	for _, v := range attempted {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			snapshot.Attempted = append(snapshot.Attempted, uint(id))
		}
	}
	for _, v := range unlocked {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			snapshot.Unlocked = append(snapshot.Unlocked, uint(id))
		}
	}
	for k, v := range deadlines {
		id, err1 := strconv.ParseUint(k, 10, 32)
		ms, err2 := strconv.ParseInt(v, 10, 64)
		if err1 == nil && err2 == nil {
			snapshot.Deadlines[uint(id)] = ms
		}
	}

	return snapshot, nil
}

// RememberIdentity 把身份记入该设备的已知身份列表（去重、置前、限长）
func (s *ProgressCacheService) RememberIdentity(ctx context.Context, deviceID string, identity KnownIdentity) {
	if s.Redis == nil || deviceID == "" {
		return
	}

	current, err := s.KnownIdentities(ctx, deviceID)
	if err != nil {
		logger.Log.Warn("known identities read failed", zap.String("deviceId", deviceID), zap.Error(err))
		current = nil
	}

	updated := appendIdentity(current, identity, s.Cfg.Progress.KnownIdentityLimit)
	data, err := json.Marshal(updated)
	if err != nil {
		return
	}

	if err := s.Redis.Set(ctx, identitiesKey(deviceID), data, progressCacheTTL).Err(); err != nil {
		logger.Log.Warn("known identities write failed", zap.String("deviceId", deviceID), zap.Error(err))
	}
}

// KnownIdentities 该设备见过的身份列表，最近使用的在前
func (s *ProgressCacheService) KnownIdentities(ctx context.Context, deviceID string) ([]KnownIdentity, error) {
	if s.Redis == nil || deviceID == "" {
		return []KnownIdentity{}, nil
	}

	data, err := s.Redis.Get(ctx, identitiesKey(deviceID)).Result()
	if err == redis.Nil {
		return []KnownIdentity{}, nil
	}
	if err != nil {
		return nil, err
	}

	var identities []KnownIdentity
	if err := json.Unmarshal([]byte(data), &identities); err != nil {
		return nil, err
	}
	return identities, nil
}

// ClearIdentities 显式清空设备的已知身份
func (s *ProgressCacheService) ClearIdentities(ctx context.Context, deviceID string) error {
	if s.Redis == nil || deviceID == "" {
		return nil
	}
	return s.Redis.Del(ctx, identitiesKey(deviceID)).Err()
}

// appendIdentity 有界列表维护：同一身份去重后置前，超过上限截断。
// 显式有界，不是只增不减的日志。
func appendIdentity(list []KnownIdentity, entry KnownIdentity, limit int) []KnownIdentity {
	if limit <= 0 {
		limit = 8
	}

	updated := make([]KnownIdentity, 0, len(list)+1)
	updated = append(updated, entry)
	for _, existing := range list {
		if existing.UserID == entry.UserID {
			continue
		}
		updated = append(updated, existing)
	}

	if len(updated) > limit {
		updated = updated[:limit]
	}
	return updated
}
