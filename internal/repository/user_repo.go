package repository

import (
	"ThinkSync/internal/model"
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UserRepo interface {
	GetUserById(ctx context.Context, id uint64) (*model.User, error)
	GetUserByIds(ctx context.Context, ids []uint64) ([]*model.User, error)
}

type UserRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &UserRepoImpl{db: db}
}

// GetUserById 已注销的用户视为不存在
func (s *UserRepoImpl) GetUserById(ctx context.Context, id uint64) (*model.User, error) {
	var users []*model.User
	result := s.db.WithContext(ctx).
		Preload("UserDetail").
		Where("id = ? AND is_delete = ?", id, false).
		Limit(1).
		Find(&users)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "get user")
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (s *UserRepoImpl) GetUserByIds(ctx context.Context, ids []uint64) ([]*model.User, error) {
	users := make([]*model.User, 0)
	if len(ids) == 0 {
		return users, nil
	}
	result := s.db.WithContext(ctx).
		Preload("UserDetail").
		Where("id IN ? AND is_delete = ?", ids, false).
		Find(&users)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "get users")
	}
	return users, nil
}
