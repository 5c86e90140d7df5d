package realtime

import (
	"ThinkSync/internal/pkg/consts"
	"context"
	log "log/slog"
	"sync"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const sessionQueueSize = 256

// Session 一条 WS 连接在 Hub 中的登记
type Session struct {
	UserID uint64
	send   chan []byte
	rooms  map[ChannelID]struct{}
	closed bool
}

// Send 下行消息队列，Hub 丢弃会话时关闭
func (s *Session) Send() <-chan []byte {
	return s.send
}

// Hub 进程内唯一的 Redis 模式订阅，按频道把消息路由给本地会话
type Hub struct {
	mu       sync.RWMutex
	channels map[ChannelID]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{channels: make(map[ChannelID]map[*Session]struct{})}
}

// Run 订阅 im:rt:* 并分发，直到 ctx 结束
func (h *Hub) Run(ctx context.Context, rdb redis.UniversalClient) error {
	pubsub := rdb.PSubscribe(ctx, consts.IMRealtimeKey+"*")
	defer func() {
		_ = pubsub.Close()
	}()
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	log.Info("实时频道订阅已建立")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			channel, ok := ChannelFromTopic(msg.Channel)
			if !ok {
				continue
			}
			h.Dispatch(channel, []byte(msg.Payload))
		}
	}
}

// Dispatch 把负载投递给订阅了该频道的所有本地会话，队列已满的会话被丢弃
func (h *Hub) Dispatch(channel ChannelID, payload []byte) {
	var slow []*Session
	h.mu.RLock()
	for s := range h.channels[channel] {
		select {
		case s.send <- payload:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		log.Warn("WS 会话下行队列已满，断开", "userID", s.UserID, "channel", channel)
		h.Remove(s)
	}
}

// NewSession 创建会话，尚未订阅任何频道
func (h *Hub) NewSession(userID uint64) *Session {
	return &Session{
		UserID: userID,
		send:   make(chan []byte, sessionQueueSize),
		rooms:  make(map[ChannelID]struct{}),
	}
}

func (h *Hub) Join(s *Session, channel ChannelID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	set, ok := h.channels[channel]
	if !ok {
		set = make(map[*Session]struct{})
		h.channels[channel] = set
	}
	set[s] = struct{}{}
	s.rooms[channel] = struct{}{}
}

func (h *Hub) Leave(s *Session, channel ChannelID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, channel)
}

func (h *Hub) leaveLocked(s *Session, channel ChannelID) {
	delete(s.rooms, channel)
	set, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.channels, channel)
	}
}

// Remove 退出全部频道并关闭下行队列，可重复调用
func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	for channel := range s.rooms {
		h.leaveLocked(s, channel)
	}
	s.closed = true
	close(s.send)
}

// Notify 直接向单个会话写入一帧，用于错误回执
func (h *Hub) Notify(s *Session, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.send <- payload:
	default:
	}
}

// Subscribers 当前订阅某频道的本地会话数
func (h *Hub) Subscribers(channel ChannelID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}
