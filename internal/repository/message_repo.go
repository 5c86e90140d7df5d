package repository

import (
	"ThinkSync/internal/model"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MessageRepo 私信存储，MySQL 与 MongoDB 两种实现共用
type MessageRepo interface {
	Create(ctx context.Context, msg *model.Message) error
	LastBetween(ctx context.Context, a, b uint64) (*model.Message, error)
	CountUnread(ctx context.Context, receiverID, senderID uint64) (int64, error)
	CountUnreadTotal(ctx context.Context, receiverID uint64) (int64, error)
	ListBetween(ctx context.Context, a, b uint64) ([]*model.Message, error)
	MarkRead(ctx context.Context, receiverID, senderID uint64) (int64, error)
	ListCounterpartIDs(ctx context.Context, userID uint64) ([]uint64, error)
}

type MessageRepoImpl struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &MessageRepoImpl{db: db}
}

const pairCondition = "(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)"

// Create 写入一条消息，ID 与创建时间由 BeforeCreate 分配
func (s *MessageRepoImpl) Create(ctx context.Context, msg *model.Message) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return errors.Wrap(err, "create message")
	}
	return nil
}

// LastBetween 两人之间最新的一条消息，没有则返回 nil
func (s *MessageRepoImpl) LastBetween(ctx context.Context, a, b uint64) (*model.Message, error) {
	var msgs []*model.Message
	err := s.db.WithContext(ctx).
		Where(pairCondition, a, b, b, a).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "last message between")
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[0], nil
}

// CountUnread senderID 发给 receiverID 的未读数
func (s *MessageRepoImpl) CountUnread(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count unread")
	}
	return count, nil
}

// CountUnreadTotal receiverID 的全部未读数
func (s *MessageRepoImpl) CountUnreadTotal(ctx context.Context, receiverID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count unread total")
	}
	return count, nil
}

// ListBetween 两人之间的全部消息，按时间升序
func (s *MessageRepoImpl) ListBetween(ctx context.Context, a, b uint64) ([]*model.Message, error) {
	msgs := make([]*model.Message, 0)
	err := s.db.WithContext(ctx).
		Where(pairCondition, a, b, b, a).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "list messages between")
	}
	return msgs, nil
}

// MarkRead 将 senderID 发给 receiverID 的未读消息置为已读，返回影响行数
func (s *MessageRepoImpl) MarkRead(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", receiverID, senderID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "mark messages read")
	}
	return result.RowsAffected, nil
}

type counterpartRow struct {
	Counterpart uint64
}

// ListCounterpartIDs 与 userID 有过消息往来的用户，按最近一条消息倒序
func (s *MessageRepoImpl) ListCounterpartIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var rows []counterpartRow
	err := s.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS counterpart, MAX(created_at) AS last_at, MAX(id) AS last_id", userID).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Group("counterpart").
		Order("last_at DESC").
		Order("last_id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list counterparts")
	}

	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.Counterpart)
	}
	return ids, nil
}
