package service

import (
	"context"
	"encoding/json"
	"mentor_site_backend/internal/config"
	"mentor_site_backend/pkg/logger"
	"mentor_site_backend/pkg/monitoring"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 512
	ranklistChannel = "ranklist:solve_events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SolveEvent 通过 Redis 发布的解题事件，多实例部署时扇出到所有 hub
type SolveEvent struct {
	CourseID uint `json:"courseId"`
	UserID   uint `json:"userId"`
}

// RanklistClient 一条订阅了某个榜单视图的 websocket 连接
type RanklistClient struct {
	Hub     *RanklistHub
	Conn    *websocket.Conn
	Send    chan []byte
	Limiter *rate.Limiter

	mu      sync.Mutex // 保护视图参数：readPump 改，hub 读
	Scope   Scope
	Filters RanklistFilters
	Page    int
	Limit   int
}

func (c *RanklistClient) view() (Scope, RanklistFilters, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Scope, c.Filters, c.Page, c.Limit
}

// pageMessage 客户端换页/换过滤时上行的消息
type pageMessage struct {
	Type string `json:"type"`
	Data struct {
		Page        int    `json:"page"`
		Limit       int    `json:"limit"`
		Search      string `json:"search"`
		Institution string `json:"institution"`
		Country     string `json:"country"`
	} `json:"data"`
}

// RanklistHub 榜单在线推送中枢。
// 收到解题事件后只重算受影响客户端的当前页并推送，不重算整张表；
// 推送不可用时由固定间隔的轮询兜底做同一份重算。
type RanklistHub struct {
	Ranklist *RanklistService
	Redis    *redis.Client
	Cfg      *config.Config

	mu         sync.RWMutex
	clients    map[*RanklistClient]bool
	register   chan *RanklistClient
	unregister chan *RanklistClient
	local      chan SolveEvent
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewRanklistHub(ranklist *RanklistService, rdb *redis.Client, cfg *config.Config) *RanklistHub {
	return &RanklistHub{
		Ranklist:   ranklist,
		Redis:      rdb,
		Cfg:        cfg,
		clients:    make(map[*RanklistClient]bool),
		register:   make(chan *RanklistClient),
		unregister: make(chan *RanklistClient),
		local:      make(chan SolveEvent, 64),
		stop:       make(chan struct{}),
	}
}

// NotifySolve 实现 SolveNotifier。优先走 Redis 发布，
// 发布失败降级为本进程内直接广播，单实例部署不受影响。
func (h *RanklistHub) NotifySolve(courseID, userID uint) {
	event := SolveEvent{CourseID: courseID, UserID: userID}

	if h.Redis != nil {
		data, err := json.Marshal(event)
		if err == nil {
			if err := h.Redis.Publish(context.Background(), ranklistChannel, data).Err(); err == nil {
				return
			}
			logger.Log.Warn("ranklist event publish failed, falling back to local broadcast", zap.Error(err))
		}
	}

	select {
	case h.local <- event:
	default:
		// 本地队列满了就丢：轮询兜底会补上
	}
}

func (h *RanklistHub) Run() {
	var pubsubCh <-chan *redis.Message
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(context.Background(), ranklistChannel)
		defer pubsub.Close()
		pubsubCh = pubsub.Channel()
	}

	pollInterval := time.Duration(h.Cfg.Ranklist.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			// 新连接立刻给一份当前页
			h.pushPage(client, "subscribe")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg, ok := <-pubsubCh:
			if !ok {
				pubsubCh = nil
				continue
			}
			var event SolveEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			h.broadcast(event, "event")

		case event := <-h.local:
			h.broadcast(event, "event")

		case <-ticker.C:
			// 轮询兜底：推送通道不可用时仍以固定间隔重算
			h.broadcast(SolveEvent{}, "poll")

		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				client.Conn.Close()
			}
			h.clients = make(map[*RanklistClient]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *RanklistHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// broadcast 重算受影响客户端的当前页并推送。
// trigger == "poll" 或 CourseID == 0 时视为影响全部范围。
func (h *RanklistHub) broadcast(event SolveEvent, trigger string) {
	h.mu.RLock()
	clients := make([]*RanklistClient, 0, len(h.clients))
	for client := range h.clients {
		scope, _, _, _ := client.view()
		if trigger == "poll" || event.CourseID == 0 ||
			scope.Global || scope.CourseID == event.CourseID {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.pushPage(client, trigger)
	}
}

// pushPage 重算单个客户端的当前页。重算失败不推送，
// 客户端保留上一次成功渲染的榜单，不清空视图。
func (h *RanklistHub) pushPage(client *RanklistClient, trigger string) {
	h.mu.RLock()
	registered := h.clients[client]
	h.mu.RUnlock()
	if !registered {
		return
	}

	scope, filters, pageNum, limit := client.view()
	page, err := h.Ranklist.Rank(scope, filters, pageNum, limit, trigger)
	if err != nil {
		monitoring.LivePushCounter.WithLabelValues("recompute_error").Inc()
		logger.Log.Error("ranklist page recompute failed",
			zap.String("scope", scope.String()),
			zap.Error(err))
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"type": "RANKLIST_PAGE",
		"data": page,
	})
	if err != nil {
		return
	}

	// Send 只会在写锁内被 unregister/stop 关闭，
	// 持读锁确认还在 clients 里再写，排除向已关闭通道发送
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.Send <- data:
		monitoring.LivePushCounter.WithLabelValues("pushed").Inc()
	default:
		// 写不进去说明连接已经死了，交给 writePump 收尾
		monitoring.LivePushCounter.WithLabelValues("dropped").Inc()
	}
}

// ServeWS 升级连接并挂入 hub
func (h *RanklistHub) ServeWS(w http.ResponseWriter, r *http.Request, scope Scope, filters RanklistFilters, page, limit int) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = h.Cfg.Ranklist.DefaultPageSize
	}

	client := &RanklistClient{
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, 16),
		Scope:   scope,
		Filters: filters,
		Page:    page,
		Limit:   limit,
		Limiter: rate.NewLimiter(rate.Limit(10), 20),
	}

	select {
	case h.register <- client:
	case <-h.stop:
		// hub 已停止，不再接收新连接
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// detach 把连接交还 hub。hub 停止后 Run 不再消费 unregister，
// 由 stop 通道放行，goroutine 不会永久阻塞。
func (c *RanklistClient) detach() {
	select {
	case c.Hub.unregister <- c:
	case <-c.Hub.stop:
	}
}

func (c *RanklistClient) readPump() {
	defer func() {
		c.detach()
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("ranklist websocket unexpected close", zap.Error(err))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var msg pageMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == "PAGE" {
			c.mu.Lock()
			if msg.Data.Page >= 1 {
				c.Page = msg.Data.Page
			}
			if msg.Data.Limit > 0 && msg.Data.Limit <= 100 {
				c.Limit = msg.Data.Limit
			}
			c.Filters = RanklistFilters{
				Search:      msg.Data.Search,
				Institution: msg.Data.Institution,
				Country:     msg.Data.Country,
			}
			c.mu.Unlock()
			c.Hub.pushPage(c, "page_change")
		}
	}
}

func (c *RanklistClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
