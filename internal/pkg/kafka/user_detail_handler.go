package kafka

import (
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

const userDetailTable = "user_detail"

// ProfileInvalidator 用户资料变化后清除资料缓存
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, userID uint64) error
}

type UserDetailHandler struct {
	profiles ProfileInvalidator
}

func NewUserDetailHandler(profiles ProfileInvalidator) *UserDetailHandler {
	return &UserDetailHandler{profiles: profiles}
}

func (s *UserDetailHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("user detail consumer setup")
	return nil
}

func (s *UserDetailHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("user detail consumer cleanup")
	return nil
}

func (s *UserDetailHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	return consumeClaim("user_detail", session, claim, s.logic)
}

func (s *UserDetailHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	canalMsg := decodeRows(msg, userDetailTable)
	if canalMsg == nil {
		return nil
	}
	for _, row := range canalMsg.Data {
		userID := StrToUint64(row["user_id"])
		if userID == 0 {
			continue
		}
		if err := s.profiles.Invalidate(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}
