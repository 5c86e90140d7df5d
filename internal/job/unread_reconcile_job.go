package job

import (
	"ThinkSync/internal/pkg/logger"
	"ThinkSync/internal/service"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

const (
	reconcileBatchSize = 100
	reconcileMaxRounds = 50
)

// DirtyQueue 推送失败待校准的用户集合
type DirtyQueue interface {
	Pop(ctx context.Context, n int64) ([]uint64, error)
	Mark(ctx context.Context, userIDs ...uint64) error
}

// UnreadReconcileJob 为推送失败的用户重新下发未读总数
type UnreadReconcileJob struct {
	dirty     DirtyQueue
	imService service.IMService
}

func NewUnreadReconcileJob(dirty DirtyQueue, imService service.IMService) *UnreadReconcileJob {
	return &UnreadReconcileJob{dirty: dirty, imService: imService}
}

func (s *UnreadReconcileJob) Run() {
	ctx := logger.WithTrace(context.Background(), "job-unread-"+uuid.NewString())

	total, failed := 0, 0
	for round := 0; round < reconcileMaxRounds; round++ {
		userIDs, err := s.dirty.Pop(ctx, reconcileBatchSize)
		if err != nil {
			log.ErrorContext(ctx, "pop unread dirty set error", "err", err)
			break
		}
		if len(userIDs) == 0 {
			break
		}

		var retry []uint64
		for _, uid := range userIDs {
			if err := s.imService.RepublishUnreadTotal(ctx, uid); err != nil {
				log.WarnContext(ctx, "republish unread total error", "uid", uid, "err", err)
				retry = append(retry, uid)
			}
		}
		total += len(userIDs)

		// 失败的用户放回集合，留给下一次调度
		if len(retry) > 0 {
			failed += len(retry)
			if err := s.dirty.Mark(ctx, retry...); err != nil {
				log.ErrorContext(ctx, "re-mark unread dirty users error", "err", err)
			}
			break
		}
	}

	if total > 0 {
		log.InfoContext(ctx, "unread reconcile job finished", "processed", total, "failed", failed)
	}
}
