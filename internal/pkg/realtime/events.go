package realtime

import "github.com/goccy/go-json"

const (
	EventMessage             = "chat:message"
	EventConversationUpdated = "chat:conversation-updated"
	EventUnreadTotal         = "chat:unread-total"
	EventMessagesRead        = "chat:messages-read"
	EventError               = "error"
)

// 客户端控制帧类型
const (
	ControlRegisterUser = "registerUser"
	ControlJoinRoom     = "joinRoom"
	ControlLeaveRoom    = "leaveRoom"
)

// Envelope Redis 负载与 WS 下行帧共用的结构
type Envelope struct {
	Event   string    `json:"event"`
	Channel ChannelID `json:"channel,omitempty"`
	Data    any       `json:"data"`
}

// RawEnvelope 解码侧使用，data 延迟解析
type RawEnvelope struct {
	Event   string          `json:"event"`
	Channel ChannelID       `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// ControlFrame 客户端上行控制帧
type ControlFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrorData 下行错误帧负载
type ErrorData struct {
	Message string `json:"message"`
}
