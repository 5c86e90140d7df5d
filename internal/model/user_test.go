package model

import "testing"

func TestUser_DisplayName(t *testing.T) {
	name := "alice"
	tests := []struct {
		name string
		user User
		want string
	}{
		{"Nickname", User{Username: &name, UserDetail: UserDetail{Nickname: " Ali "}}, "Ali"},
		{"FallbackToUsername", User{Username: &name, UserDetail: UserDetail{Nickname: "  "}}, "alice"},
		{"Nothing", User{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserFollow_Involves(t *testing.T) {
	f := UserFollow{FollowerID: 1, FollowingID: 2}
	if !f.Involves(1, 2) || !f.Involves(2, 1) {
		t.Error("Involves should ignore direction")
	}
	if f.Involves(1, 3) {
		t.Error("Involves(1, 3) = true")
	}
}
