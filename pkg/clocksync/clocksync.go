// Package clocksync 提供服务器时间同步客户端。
// 解锁倒计时一律用 服务器时间 = 本地时间 + offset 计算，避免本地时钟偏差。
package clocksync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const DefaultSyncInterval = 5 * time.Minute

type timeResponse struct {
	Code int `json:"code"`
	Data struct {
		ServerTime int64 `json:"serverTime"`
	} `json:"data"`
}

// Syncer 定期向 /api/time 对时并缓存偏移量。
// 同步失败不致命：保留上一次 offset，从未成功过则退化为本地时间。
type Syncer struct {
	endpoint string
	client   *http.Client

	mu       sync.RWMutex
	offsetMs int64
	synced   bool
}

func NewSyncer(endpoint string) *Syncer {
	return &Syncer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Sync 单次对时。offset = serverTime - localTime，取请求中点近似网络延迟
func (s *Syncer) Sync(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return err
	}

	sentAt := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clocksync: unexpected status %d", resp.StatusCode)
	}

	var body timeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	receivedAt := time.Now()
	midpoint := sentAt.Add(receivedAt.Sub(sentAt) / 2)

	s.mu.Lock()
	s.offsetMs = ComputeOffset(body.Data.ServerTime, midpoint)
	s.synced = true
	s.mu.Unlock()

	return nil
}

// Run 启动周期对时，直到 ctx 取消。首次对时立即执行。
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	s.Sync(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sync(ctx)
		}
	}
}

// Now 返回校准后的当前时间
func (s *Syncer) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Now().Add(time.Duration(s.offsetMs) * time.Millisecond)
}

// Offset 当前偏移量（毫秒）。未同步过为 0
func (s *Syncer) Offset() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offsetMs
}

// Synced 是否至少成功对时过一次
func (s *Syncer) Synced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.synced
}

// ComputeOffset 纯函数：服务器毫秒时间戳与本地参考时间的偏移
func ComputeOffset(serverMillis int64, local time.Time) int64 {
	return serverMillis - local.UnixMilli()
}
