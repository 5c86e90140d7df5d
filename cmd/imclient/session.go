package main

import (
	"ThinkSync/internal/api/dto"
	"ThinkSync/internal/chatview"
	"ThinkSync/internal/pkg/realtime"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var errNoConversation = errors.New("尚未打开会话，使用 /open <用户ID>")

// session 把 WS 事件与 REST 调用汇入同一个 View
type session struct {
	userID uint64
	api    *apiClient
	out    io.Writer

	mu   sync.Mutex
	view *chatview.View
	conn *websocket.Conn
	wmu  sync.Mutex
}

func newSession(userID uint64, api *apiClient, out io.Writer) *session {
	return &session{userID: userID, api: api, out: out, view: chatview.New(userID)}
}

// wsURL http(s)://host -> ws(s)://host/api/im/ws?token=
func wsURL(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/im/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func (s *session) Connect(ctx context.Context, server, token string) error {
	target, err := wsURL(server, token)
	if err != nil {
		return err
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("连接实时通道失败: %w", err)
	}
	s.conn = conn
	return s.control(realtime.ControlRegisterUser, s.userID)
}

// Seed 拉取 REST 快照
func (s *session) Seed(ctx context.Context) error {
	recent, err := s.api.Recent(ctx)
	if err != nil {
		return err
	}
	contacts, err := s.api.Contacts(ctx)
	if err != nil {
		return err
	}
	unread, err := s.api.UnreadCount(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.view.Seed(recent, contacts, unread)
	s.mu.Unlock()
	s.render()
	return nil
}

func (s *session) control(typ string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(realtime.ControlFrame{Type: typ, Data: raw})
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Listen 读取实时事件直到连接关闭
func (s *session) Listen(ctx context.Context) error {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		ev, err := decodeEvent(data)
		if err != nil {
			log.Warn("无法解析的实时事件", "err", err)
			continue
		}
		if ev == nil {
			continue
		}

		s.mu.Lock()
		effects := s.view.Apply(ev)
		s.mu.Unlock()
		s.run(ctx, effects)
		s.render()
	}
}

func (s *session) run(ctx context.Context, effects []chatview.Effect) {
	for _, eff := range effects {
		switch e := eff.(type) {
		case chatview.MarkReadRequest:
			if _, err := s.api.MarkRead(ctx, e.CounterpartID); err != nil {
				log.Warn("标记已读失败", "counterpartID", e.CounterpartID, "err", err)
			}
		}
	}
}

// Open 先打开本地会话再加入双人频道，加入后拉取的历史与期间收到的实时消息合并。
// 拉取接口同时完成服务端已读
func (s *session) Open(ctx context.Context, counterpartID uint64) error {
	room, err := realtime.PairChannel(s.userID, counterpartID)
	if err != nil {
		return err
	}
	s.Close()

	s.mu.Lock()
	s.view.Open(counterpartID, nil)
	s.mu.Unlock()
	if err := s.control(realtime.ControlJoinRoom, string(room)); err != nil {
		return err
	}
	msgs, err := s.api.Messages(ctx, counterpartID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.view.Load(counterpartID, msgs)
	s.mu.Unlock()
	s.render()
	return nil
}

func (s *session) Close() {
	s.mu.Lock()
	id, _, ok := s.view.OpenConversation()
	s.view.Close()
	s.mu.Unlock()
	if !ok {
		return
	}
	room, _ := realtime.PairChannel(s.userID, id)
	if err := s.control(realtime.ControlLeaveRoom, string(room)); err != nil {
		log.Warn("离开会话频道失败", "room", room, "err", err)
	}
}

// Send 向当前会话发送消息，本地展示等待 chat:message 回推
func (s *session) Send(ctx context.Context, content string) error {
	s.mu.Lock()
	id, _, ok := s.view.OpenConversation()
	s.mu.Unlock()
	if !ok {
		return errNoConversation
	}
	_, err := s.api.Send(ctx, id, content)
	return err
}

func (s *session) Shutdown() {
	if s.conn == nil {
		return
	}
	s.wmu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.wmu.Unlock()
	_ = s.conn.Close()
}

func (s *session) render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	renderView(s.out, s.userID, s.view)
}

// decodeEvent 未关心的事件返回 nil
func decodeEvent(data []byte) (chatview.Event, error) {
	var env realtime.RawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Event {
	case realtime.EventMessage:
		var e dto.MessageEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return chatview.MessageReceived{Message: e.Message, RoomID: e.RoomID}, nil
	case realtime.EventConversationUpdated:
		var e dto.ConversationUpdatedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return chatview.ConversationUpdated{Conversation: e.Conversation}, nil
	case realtime.EventUnreadTotal:
		var e dto.UnreadTotalEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return chatview.UnreadTotalChanged{Count: e.Count}, nil
	case realtime.EventMessagesRead:
		var e dto.MessagesReadEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return chatview.MessagesRead{ReaderID: e.ReaderID, OtherUserID: e.OtherUserID}, nil
	case realtime.EventError:
		var e realtime.ErrorData
		_ = json.Unmarshal(env.Data, &e)
		log.Warn("服务端返回错误", "message", e.Message)
		return nil, nil
	default:
		return nil, nil
	}
}

func renderView(w io.Writer, userID uint64, v *chatview.View) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n==== 用户 %d  未读 %d ====\n", userID, v.UnreadTotal())
	for _, c := range v.Conversations() {
		line := "(暂无消息)"
		if c.LastMessage != nil {
			line = c.LastMessage.Content
		}
		badge := ""
		if c.UnreadCount > 0 {
			badge = " [" + strconv.FormatInt(c.UnreadCount, 10) + "]"
		}
		fmt.Fprintf(&b, "  %d %s%s: %s\n", c.ID, c.DisplayName, badge, line)
	}

	if id, msgs, ok := v.OpenConversation(); ok {
		fmt.Fprintf(&b, "---- 与 %d 的会话 ----\n", id)
		for _, m := range msgs {
			mark := ""
			if m.SenderID == userID && m.Read {
				mark = " ✓"
			}
			fmt.Fprintf(&b, "  [%s] %d: %s%s\n", m.CreatedAt.Local().Format("15:04:05"), m.SenderID, m.Content, mark)
		}
	}
	_, _ = io.WriteString(w, b.String())
}
