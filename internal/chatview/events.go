package chatview

import "ThinkSync/internal/api/dto"

// Event 输入 View 的事件
type Event interface {
	isEvent()
}

// MessageReceived chat:message
type MessageReceived struct {
	Message *dto.MessageDTO
	RoomID  string
}

// ConversationUpdated chat:conversation-updated
type ConversationUpdated struct {
	Conversation *dto.ConversationSummaryDTO
}

// UnreadTotalChanged chat:unread-total
type UnreadTotalChanged struct {
	Count int64
}

// MessagesRead chat:messages-read
type MessagesRead struct {
	ReaderID    uint64
	OtherUserID uint64
}

// LocalRead 打开会话时的乐观已读，不等待服务端确认
type LocalRead struct {
	CounterpartID uint64
}

func (MessageReceived) isEvent()     {}
func (ConversationUpdated) isEvent() {}
func (UnreadTotalChanged) isEvent()  {}
func (MessagesRead) isEvent()        {}
func (LocalRead) isEvent()           {}

// Effect Apply 产生的副作用，由调用方执行
type Effect interface {
	isEffect()
}

// MarkReadRequest 需要调用服务端的标记已读接口
type MarkReadRequest struct {
	CounterpartID uint64
}

func (MarkReadRequest) isEffect() {}
