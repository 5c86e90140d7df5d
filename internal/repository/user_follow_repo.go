package repository

import (
	"ThinkSync/internal/model"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserFollowRepo interface {
	ExistsConnection(ctx context.Context, a, b uint64) (bool, error)
	GetUserFollowing(ctx context.Context, userID uint64, limit, offset int) ([]*model.UserFollow, error)
}

type UserFollowRepoImpl struct {
	db *gorm.DB
}

func NewUserFollowRepo(db *gorm.DB) UserFollowRepo {
	return &UserFollowRepoImpl{db: db}
}

// ExistsConnection 任一方向存在关注关系即视为可私信
func (s *UserFollowRepoImpl) ExistsConnection(ctx context.Context, a, b uint64) (bool, error) {
	var follows []model.UserFollow
	err := s.db.WithContext(ctx).
		Select("follower_id", "following_id").
		Where("(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)", a, b, b, a).
		Limit(1).
		Find(&follows).Error
	if err != nil {
		return false, errors.Wrap(err, "check connection")
	}
	return len(follows) > 0 && follows[0].Involves(a, b), nil
}

// GetUserFollowing 获取用户的关注列表
func (s *UserFollowRepoImpl) GetUserFollowing(ctx context.Context, userID uint64, limit, offset int) ([]*model.UserFollow, error) {
	var userFollows []*model.UserFollow
	result := s.db.WithContext(ctx).
		Where("follower_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&userFollows)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "list following")
	}
	return userFollows, nil
}
