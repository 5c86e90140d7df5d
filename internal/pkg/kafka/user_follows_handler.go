package kafka

import (
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

const userFollowsTable = "user_follows"

// ConnectionInvalidator 关注关系变化后清除私信权限缓存
type ConnectionInvalidator interface {
	Invalidate(ctx context.Context, a, b uint64) error
}

type UserFollowsHandler struct {
	gate ConnectionInvalidator
}

func NewUserFollowsHandler(gate ConnectionInvalidator) *UserFollowsHandler {
	return &UserFollowsHandler{gate: gate}
}

func (s *UserFollowsHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("user follows consumer setup")
	return nil
}

func (s *UserFollowsHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("user follows consumer cleanup")
	return nil
}

func (s *UserFollowsHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	return consumeClaim("user_follows", session, claim, s.logic)
}

func (s *UserFollowsHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg := decodeRows(msg, userFollowsTable)
	if canalMsg == nil {
		return nil
	}

	rows := canalMsg.Data
	if canalMsg.Type == UPDATE {
		rows = append(rows, mergeOld(canalMsg)...)
	}

	for _, row := range rows {
		followerID := StrToUint64(row["follower_id"])
		followingID := StrToUint64(row["following_id"])
		if followerID == 0 || followingID == 0 {
			continue
		}
		if err := s.gate.Invalidate(ctx, followerID, followingID); err != nil {
			return err
		}
	}
	return nil
}

// mergeOld UPDATE 时 old 只包含被修改的列，补齐后得到变更前的完整行
func mergeOld(canalMsg *CanalMessage) []map[string]interface{} {
	merged := make([]map[string]interface{}, 0, len(canalMsg.Old))
	for i, old := range canalMsg.Old {
		if i >= len(canalMsg.Data) {
			break
		}
		row := make(map[string]interface{}, len(canalMsg.Data[i]))
		for k, v := range canalMsg.Data[i] {
			row[k] = v
		}
		for k, v := range old {
			row[k] = v
		}
		merged = append(merged, row)
	}
	return merged
}
