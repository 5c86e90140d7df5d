package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DirtySet 记录需要后台重新校准的用户 ID (Redis Set)
type DirtySet struct {
	rdb redis.Cmdable
	key string
}

func NewDirtySet(rdb redis.Cmdable, key string) *DirtySet {
	return &DirtySet{rdb: rdb, key: key}
}

// Mark 标记用户
func (s *DirtySet) Mark(ctx context.Context, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, strconv.FormatUint(id, 10))
	}
	return s.rdb.SAdd(ctx, s.key, members...).Err()
}

// Pop 随机弹出至多 n 个用户，弹出即视为已认领
func (s *DirtySet) Pop(ctx context.Context, n int64) ([]uint64, error) {
	values, err := s.rdb.SPopN(ctx, s.key, n).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
