package clocksync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeOffset(t *testing.T) {
	local := time.UnixMilli(1_000_000)

	tests := []struct {
		name         string
		serverMillis int64
		want         int64
	}{
		{"server ahead", 1_005_000, 5000},
		{"server behind", 995_000, -5000},
		{"in sync", 1_000_000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeOffset(tt.serverMillis, local))
		})
	}
}

func TestSyncer_Sync(t *testing.T) {
	serverTime := time.Now().Add(42 * time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"code":200,"message":"success","data":{"serverTime":%d}}`, serverTime.UnixMilli())
	}))
	defer srv.Close()

	s := NewSyncer(srv.URL)
	require.False(t, s.Synced())

	err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Synced())

	// 偏移约 42s，允许网络与调度抖动
	assert.InDelta(t, 42_000, s.Offset(), 2000)
	assert.InDelta(t, float64(serverTime.UnixMilli()), float64(s.Now().UnixMilli()), 2000)
}

func TestSyncer_SyncFailureKeepsLastOffset(t *testing.T) {
	healthy := true
	serverTime := time.Now().Add(10 * time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, `{"code":200,"data":{"serverTime":%d}}`, serverTime.UnixMilli())
	}))
	defer srv.Close()

	s := NewSyncer(srv.URL)
	require.NoError(t, s.Sync(context.Background()))
	first := s.Offset()

	healthy = false
	err := s.Sync(context.Background())
	require.Error(t, err)

	// 失败后沿用上一次的偏移量
	assert.Equal(t, first, s.Offset())
	assert.True(t, s.Synced())
}

func TestSyncer_NeverSyncedFallsBackToLocalTime(t *testing.T) {
	s := NewSyncer("http://127.0.0.1:0/api/time")

	err := s.Sync(context.Background())
	require.Error(t, err)

	assert.False(t, s.Synced())
	assert.Equal(t, int64(0), s.Offset())
	assert.InDelta(t, float64(time.Now().UnixMilli()), float64(s.Now().UnixMilli()), 100)
}
