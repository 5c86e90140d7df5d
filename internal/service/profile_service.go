package service

import (
	"ThinkSync/internal/api/dto"
	"ThinkSync/internal/pkg/consts"
	"ThinkSync/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// DefaultProfileCacheTTL 资料变更事件可达时的缓存时长
const DefaultProfileCacheTTL = time.Hour

// ProfileService 会话对方的公开资料
type ProfileService interface {
	GetProfile(ctx context.Context, userID uint64) (*dto.UserProfileDTO, error)
	GetProfiles(ctx context.Context, userIDs []uint64) ([]*dto.UserProfileDTO, error)
	Invalidate(ctx context.Context, userID uint64) error
}

type profileServiceImpl struct {
	userRepo repository.UserRepo
	cache    redis.Cmdable
	ttl      time.Duration
}

// NewProfileService cache 为 nil 或 ttl 非正时直接查库
func NewProfileService(userRepo repository.UserRepo, cache redis.Cmdable, ttl time.Duration) ProfileService {
	return &profileServiceImpl{userRepo: userRepo, cache: cache, ttl: ttl}
}

func (s *profileServiceImpl) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

func profileKey(userID uint64) string {
	return consts.IMProfileKey + strconv.FormatUint(userID, 10)
}

// GetProfile 用户不存在时返回 nil
func (s *profileServiceImpl) GetProfile(ctx context.Context, userID uint64) (*dto.UserProfileDTO, error) {
	key := profileKey(userID)
	if s.cacheEnabled() {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			profile := &dto.UserProfileDTO{}
			if err := json.Unmarshal(raw, profile); err == nil {
				return profile, nil
			}
			log.WarnContext(ctx, "资料缓存反序列化失败", "key", key, "err", err)
		} else if !errors.Is(err, redis.Nil) {
			log.WarnContext(ctx, "读取资料缓存失败", "key", key, "err", err)
		}
	}

	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := dto.NewUserProfile(user)
	if profile == nil {
		return nil, nil
	}

	if s.cacheEnabled() {
		if raw, err := json.Marshal(profile); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
				log.WarnContext(ctx, "写入资料缓存失败", "key", key, "err", err)
			}
		}
	}
	return profile, nil
}

// GetProfiles 批量查询，按入参顺序返回，缺失的用户被跳过
func (s *profileServiceImpl) GetProfiles(ctx context.Context, userIDs []uint64) ([]*dto.UserProfileDTO, error) {
	users, err := s.userRepo.GetUserByIds(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*dto.UserProfileDTO, len(users))
	for _, u := range users {
		byID[u.ID] = dto.NewUserProfile(u)
	}

	profiles := make([]*dto.UserProfileDTO, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := byID[id]; ok {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

func (s *profileServiceImpl) Invalidate(ctx context.Context, userID uint64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, profileKey(userID)).Err()
}
