package repository

import (
	"ThinkSync/internal/api/config"
	"ThinkSync/internal/model"
	"ThinkSync/internal/pkg/database"
	"context"
	log "log/slog"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	log.SetDefault(slogt.New(t))

	db, err := database.Open(sqlite.Open(":memory:"), &config.DBConfig{MaxOpen: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.UserDetail{}, &model.UserFollow{}, &model.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id uint64, username, nickname string) {
	t.Helper()
	user := &model.User{
		ID:         id,
		Username:   &username,
		UserDetail: model.UserDetail{UserID: id, Nickname: nickname, AvatarURL: username + ".png"},
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user %d: %v", id, err)
	}
}

func seedFollow(t *testing.T, db *gorm.DB, follower, following uint64) {
	t.Helper()
	if err := db.Create(&model.UserFollow{FollowerID: follower, FollowingID: following}).Error; err != nil {
		t.Fatalf("seed follow: %v", err)
	}
}

func seedMessage(t *testing.T, repo MessageRepo, from, to uint64, content string, offset time.Duration) *model.Message {
	t.Helper()
	msg := &model.Message{SenderID: from, ReceiverID: to, Content: content, CreatedAt: baseTime.Add(offset)}
	if err := repo.Create(context.Background(), msg); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return msg
}
