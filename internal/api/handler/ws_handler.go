package handler

import (
	"ThinkSync/internal/api/middleware"
	"ThinkSync/internal/pkg/realtime"
	"errors"
	log "log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxControlSize = 1024
)

var (
	errBadFrame     = errors.New("无法解析的控制帧")
	errUnknownFrame = errors.New("未知的控制帧类型")
	errUserMismatch = errors.New("只能订阅自己的通知频道")
	errNotInRoom    = errors.New("无权加入该会话")
	errUserChannel  = errors.New("个人频道只能通过 registerUser 订阅")
)

type WsHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewWsHandler allowedOrigins 为空时不校验 Origin
func NewWsHandler(hub *realtime.Hub, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
	}
}

// Connect 升级为 WS 连接，身份由 QueryTokenAuth 注入
func (s *WsHandler) Connect(c *gin.Context) {
	userID := c.GetUint64("user_id")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "WS 协议升级失败", "err", err)
		return
	}

	session := s.hub.NewSession(userID)
	log.InfoContext(c.Request.Context(), "用户 WS 连接已建立", "userID", userID)

	go s.writeLoop(conn, session)
	s.readLoop(conn, session)

	s.hub.Remove(session)
	log.InfoContext(c.Request.Context(), "用户 WS 连接已断开", "userID", userID)
}

// readLoop 处理客户端控制帧，连接断开时返回
func (s *WsHandler) readLoop(conn *websocket.Conn, session *realtime.Session) {
	conn.SetReadLimit(maxControlSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WS 读取失败", "userID", session.UserID, "err", err)
			}
			return
		}

		if err := s.handleFrame(session, data); err != nil {
			s.hub.Notify(session, realtime.Envelope{
				Event: realtime.EventError,
				Data:  realtime.ErrorData{Message: err.Error()},
			})
		}
	}
}

// writeLoop 把会话队列写到连接上，队列关闭后发送关闭帧
func (s *WsHandler) writeLoop(conn *websocket.Conn, session *realtime.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-session.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Warn("WS 推送失败", "userID", session.UserID, "err", err)
				s.hub.Remove(session)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.Remove(session)
				return
			}
		}
	}
}

func (s *WsHandler) handleFrame(session *realtime.Session, data []byte) error {
	var frame realtime.ControlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return errBadFrame
	}

	switch frame.Type {
	case realtime.ControlRegisterUser:
		id, ok := decodeUserID(frame.Data)
		if !ok || id != session.UserID {
			return errUserMismatch
		}
		channel, err := realtime.UserChannel(id)
		if err != nil {
			return err
		}
		s.hub.Join(session, channel)
	case realtime.ControlJoinRoom, realtime.ControlLeaveRoom:
		var raw string
		if err := json.Unmarshal(frame.Data, &raw); err != nil {
			return errBadFrame
		}
		channel := realtime.ChannelID(raw)
		if channel.IsUserChannel() {
			return errUserChannel
		}
		a, b, err := realtime.ParsePairChannel(channel)
		if err != nil {
			return err
		}
		if frame.Type == realtime.ControlLeaveRoom {
			s.hub.Leave(session, channel)
			return nil
		}
		if a != session.UserID && b != session.UserID {
			return errNotInRoom
		}
		s.hub.Join(session, channel)
	default:
		return errUnknownFrame
	}
	return nil
}

// decodeUserID 用户 ID 可能以数字或字符串形式出现
func decodeUserID(raw json.RawMessage) (uint64, bool) {
	var id uint64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, id != 0
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(str, 10, 64)
	return id, err == nil && id != 0
}
