package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message 私信，除已读标记外创建后不可变
type Message struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	SenderID   uint64    `gorm:"not null;index:idx_sender_receiver_read,priority:1" bson:"sender_id" json:"senderId"`
	ReceiverID uint64    `gorm:"not null;index:idx_sender_receiver_read,priority:2;index:idx_receiver_read,priority:1" bson:"receiver_id" json:"receiverId"`
	Content    string    `gorm:"type:varchar(2000);not null" bson:"content" json:"content"`
	Read       bool      `gorm:"column:is_read;not null;default:false;index:idx_sender_receiver_read,priority:3;index:idx_receiver_read,priority:2" bson:"is_read" json:"read"`
	CreatedAt  time.Time `gorm:"not null;index" bson:"created_at" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

// Stamp 持久化前分配 UUIDv7 与毫秒精度的创建时间
func (m *Message) Stamp() error {
	if m.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id.String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	return nil
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	return m.Stamp()
}
