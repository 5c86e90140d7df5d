package service

import (
	"ThinkSync/internal/pkg/consts"
	"ThinkSync/internal/pkg/realtime"
	"ThinkSync/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RelationGate 私信权限：任一方向存在关注关系即可互发
type RelationGate interface {
	CanMessage(ctx context.Context, a, b uint64) (bool, error)
	Invalidate(ctx context.Context, a, b uint64) error
}

type relationGateImpl struct {
	followRepo repository.UserFollowRepo
	cache      redis.Cmdable
	ttl        time.Duration
}

// NewRelationGate cache 为 nil 或 ttl 非正时不缓存。
// 缓存依赖关注变更事件失效，未消费该事件时应传 0
func NewRelationGate(followRepo repository.UserFollowRepo, cache redis.Cmdable, ttl time.Duration) RelationGate {
	return &relationGateImpl{followRepo: followRepo, cache: cache, ttl: ttl}
}

func connectionKey(a, b uint64) (string, error) {
	pair, err := realtime.PairChannel(a, b)
	if err != nil {
		return "", err
	}
	return consts.IMConnectionKey + string(pair), nil
}

func (s *relationGateImpl) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

func (s *relationGateImpl) CanMessage(ctx context.Context, a, b uint64) (bool, error) {
	key, err := connectionKey(a, b)
	if err != nil {
		return false, nil
	}

	if s.cacheEnabled() {
		val, err := s.cache.Get(ctx, key).Result()
		switch {
		case err == nil:
			if val == "1" {
				return true, nil
			}
		case !errors.Is(err, redis.Nil):
			log.WarnContext(ctx, "读取私信权限缓存失败", "key", key, "err", err)
		}
	}

	ok, err := s.followRepo.ExistsConnection(ctx, a, b)
	if err != nil {
		return false, err
	}

	// 只缓存放行结果，未放行时每次查库
	if ok && s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, "1", s.ttl).Err(); err != nil {
			log.WarnContext(ctx, "写入私信权限缓存失败", "key", key, "err", err)
		}
	}
	return ok, nil
}

// Invalidate 关注关系变化后清除缓存
func (s *relationGateImpl) Invalidate(ctx context.Context, a, b uint64) error {
	if s.cache == nil {
		return nil
	}
	key, err := connectionKey(a, b)
	if err != nil {
		return err
	}
	return s.cache.Del(ctx, key).Err()
}
