package repository

import (
	"ThinkSync/internal/model"
	"context"
	"testing"
)

func TestUserFollowRepo_ExistsConnection(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserFollowRepo(db)
	ctx := context.Background()

	seedFollow(t, db, 1, 2)

	tests := []struct {
		name string
		a, b uint64
		want bool
	}{
		{name: "Forward", a: 1, b: 2, want: true},
		{name: "Reverse", a: 2, b: 1, want: true},
		{name: "Stranger", a: 1, b: 3, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ExistsConnection(ctx, tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ExistsConnection(%d,%d) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestUserFollowRepo_GetUserFollowing(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserFollowRepo(db)

	seedFollow(t, db, 1, 2)
	seedFollow(t, db, 1, 3)
	seedFollow(t, db, 4, 1)

	follows, err := repo.GetUserFollowing(context.Background(), 1, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	got := map[uint64]bool{}
	for _, f := range follows {
		got[f.FollowingID] = true
	}
	if len(got) != 2 || !got[2] || !got[3] {
		t.Errorf("GetUserFollowing() = %v", got)
	}
}

func TestUserRepo_GetUserById(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	seedUser(t, db, 1, "alice", "Alice")
	seedUser(t, db, 2, "bob", "")
	if err := db.Model(&model.User{}).Where("id = ?", 2).Update("is_delete", true).Error; err != nil {
		t.Fatal(err)
	}

	user, err := repo.GetUserById(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if user == nil || user.UserDetail.Nickname != "Alice" || user.UserDetail.AvatarURL != "alice.png" {
		t.Errorf("GetUserById(1) = %+v", user)
	}

	for _, id := range []uint64{2, 3} {
		user, err := repo.GetUserById(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if user != nil {
			t.Errorf("GetUserById(%d) = %+v, want nil", id, user)
		}
	}

	users, err := repo.GetUserByIds(ctx, []uint64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].ID != 1 {
		t.Errorf("GetUserByIds() = %+v", users)
	}
	empty, err := repo.GetUserByIds(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("GetUserByIds(nil) = %v, %v", empty, err)
	}
}
