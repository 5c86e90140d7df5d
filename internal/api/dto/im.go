package dto

import (
	"ThinkSync/internal/model"
	"ThinkSync/internal/pkg/consts"
	"time"
)

// SendMessageReq 发送私信请求体
type SendMessageReq struct {
	ReceiverID uint64 `json:"receiverId" validate:"required"`
	Content    string `json:"content"`
}

// MessageDTO 私信明细
type MessageDTO struct {
	ID         string    `json:"id"`
	SenderID   uint64    `json:"senderId"`
	ReceiverID uint64    `json:"receiverId"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProfileDetailsDTO 资料明细
type ProfileDetailsDTO struct {
	Avatar string `json:"avatar"`
	Bio    string `json:"bio"`
	Gender uint8  `json:"gender"`
	Region string `json:"region"`
}

// UserProfileDTO 会话对方的公开资料，头像同时以 avatar 与 profileImage 输出
type UserProfileDTO struct {
	ID           uint64            `json:"id"`
	Username     string            `json:"username"`
	DisplayName  string            `json:"displayName"`
	Details      ProfileDetailsDTO `json:"details"`
	Avatar       string            `json:"avatar"`
	ProfileImage string            `json:"profileImage"`
}

// ConversationSummaryDTO 会话摘要
type ConversationSummaryDTO struct {
	UserProfileDTO
	LastMessage *MessageDTO `json:"lastMessage"`
	UnreadCount int64       `json:"unreadCount"`
}

// UnreadCountDTO 未读总数
type UnreadCountDTO struct {
	UnreadCount int64 `json:"unreadCount"`
}

// MarkReadResultDTO 标记已读结果
type MarkReadResultDTO struct {
	RowsUpdated int64 `json:"rowsUpdated"`
}

// MessageEvent chat:message
type MessageEvent struct {
	Message *MessageDTO `json:"message"`
	RoomID  string      `json:"roomId"`
}

// ConversationUpdatedEvent chat:conversation-updated
type ConversationUpdatedEvent struct {
	Conversation *ConversationSummaryDTO `json:"conversation"`
}

// UnreadTotalEvent chat:unread-total
type UnreadTotalEvent struct {
	Count int64 `json:"count"`
}

// MessagesReadEvent chat:messages-read
type MessagesReadEvent struct {
	ReaderID    uint64 `json:"readerId"`
	OtherUserID uint64 `json:"otherUserId"`
}

// NewUserProfile 资料格式化的唯一入口，昵称为空时回退到用户名
func NewUserProfile(user *model.User) *UserProfileDTO {
	if user == nil {
		return nil
	}
	detail := user.UserDetail
	avatar := detail.AvatarURL
	if avatar == "" {
		avatar = consts.DefaultAvatarURL
	}

	profile := &UserProfileDTO{
		ID:           user.ID,
		Username:     user.UsernameOrEmpty(),
		DisplayName:  user.DisplayName(),
		Avatar:       avatar,
		ProfileImage: avatar,
		Details:      ProfileDetailsDTO{Avatar: avatar},
	}
	if detail.Bio != nil {
		profile.Details.Bio = *detail.Bio
	}
	if detail.Gender != nil {
		profile.Details.Gender = *detail.Gender
	}
	if detail.Region != nil {
		profile.Details.Region = *detail.Region
	}
	return profile
}
