package kafka

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

const (
	invalidateAttempts = 5
	invalidateBackoff  = 100 * time.Millisecond
)

var (
	ErrTableMismatch = errors.New("canal: table name not match")
	ErrNoRows        = errors.New("canal: no row data")
)

// LogicFunc 处理单条消息，返回错误时按退避重试
type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// consumeClaim 按分区顺序逐条处理并标记位点
func consumeClaim(name string, session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	ctx := session.Context()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !invokeWithRetry(ctx, name, msg, logic) {
				return nil
			}
			session.MarkMessage(msg, "")
		case <-ctx.Done():
			return nil
		}
	}
}

// invokeWithRetry 重试耗尽后跳过该消息，遗留的缓存由 TTL 过期；ctx 结束时返回 false
func invokeWithRetry(ctx context.Context, name string, msg *sarama.ConsumerMessage, logic LogicFunc) bool {
	backoff := invalidateBackoff
	for attempt := 1; ; attempt++ {
		err := logic(ctx, msg)
		if err == nil {
			return true
		}
		if attempt >= invalidateAttempts {
			log.Error("缓存失效重试耗尽，跳过消息",
				"consumer", name, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
			return true
		}
		log.Warn("缓存失效失败，稍后重试", "consumer", name, "offset", msg.Offset, "attempt", attempt, "err", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// ToCanalMessage 解析 canal 消息，表名不符或无行数据时返回哨兵错误
func ToCanalMessage(msg *sarama.ConsumerMessage, tableName string) (*CanalMessage, error) {
	var canalMsg CanalMessage
	if err := json.Unmarshal(msg.Value, &canalMsg); err != nil {
		return nil, err
	}
	if canalMsg.Table != tableName {
		return nil, ErrTableMismatch
	}
	if canalMsg.IsDDL || len(canalMsg.Data) == 0 {
		return nil, ErrNoRows
	}
	return &canalMsg, nil
}

// decodeRows 解析失败的消息无法重放成功，记录后丢弃
func decodeRows(msg *sarama.ConsumerMessage, tableName string) *CanalMessage {
	canalMsg, err := ToCanalMessage(msg, tableName)
	switch {
	case err == nil:
		return canalMsg
	case errors.Is(err, ErrTableMismatch), errors.Is(err, ErrNoRows):
	default:
		log.Error("unmarshal canal message error", "topic", msg.Topic, "offset", msg.Offset, "err", err)
	}
	return nil
}
