package model

import "time"

// UserFollow 关注关系，任一方向存在即可互发私信
type UserFollow struct {
	FollowerID  uint64 `gorm:"primaryKey"`
	FollowingID uint64 `gorm:"primaryKey;index:idx_following_id"`
	CreatedAt   time.Time
}

func (UserFollow) TableName() string {
	return "user_follows"
}

// Involves 关系是否发生在 a 与 b 之间，不区分方向
func (f *UserFollow) Involves(a, b uint64) bool {
	return (f.FollowerID == a && f.FollowingID == b) || (f.FollowerID == b && f.FollowingID == a)
}
