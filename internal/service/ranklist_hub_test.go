package service

import (
	"mentor_site_backend/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hubFixture() *RanklistHub {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	facts := []SolveFact{
		{UserID: 1, TotalSolves: 3, FirstSolvedAt: base},
	}
	ranklist := ranklistFixture(facts, profileFixture(1))

	cfg := &config.Config{}
	cfg.Ranklist.DefaultPageSize = 20
	return NewRanklistHub(ranklist, nil, cfg)
}

func TestPushPageDeliversToRegisteredClient(t *testing.T) {
	hub := hubFixture()
	client := &RanklistClient{
		Send:  make(chan []byte, 1),
		Scope: GlobalScope(),
		Page:  1,
		Limit: 10,
	}
	hub.clients[client] = true

	hub.pushPage(client, "event")

	select {
	case msg := <-client.Send:
		assert.Contains(t, string(msg), "RANKLIST_PAGE")
	default:
		t.Fatal("已注册的连接应收到一帧榜单")
	}
}

func TestPushPageSkipsUnregisteredClient(t *testing.T) {
	hub := hubFixture()

	// 连接已被注销、Send 已关闭：推送必须先查成员资格再写，
	// 否则这里会向已关闭的通道发送
	client := &RanklistClient{
		Send:  make(chan []byte, 1),
		Scope: GlobalScope(),
		Page:  1,
		Limit: 10,
	}
	close(client.Send)

	assert.NotPanics(t, func() {
		hub.pushPage(client, "event")
	})
}

func TestClientDetachAfterStop(t *testing.T) {
	hub := hubFixture()
	hub.Stop()

	// hub 停止后 Run 不再消费 unregister，detach 不能永久阻塞
	client := &RanklistClient{Hub: hub}
	done := make(chan struct{})
	go func() {
		client.detach()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub 停止后 detach 不应阻塞")
	}
}

func TestStopIdempotent(t *testing.T) {
	hub := hubFixture()
	require.NotPanics(t, func() {
		hub.Stop()
		hub.Stop()
	})
}
