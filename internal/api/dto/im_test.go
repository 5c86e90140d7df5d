package dto

import (
	"ThinkSync/internal/model"
	"ThinkSync/internal/pkg/consts"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func strPtr(s string) *string { return &s }

func TestNewUserProfile(t *testing.T) {
	gender := uint8(1)
	tests := []struct {
		name string
		user *model.User
		want *UserProfileDTO
	}{
		{
			name: "Nil",
			user: nil,
			want: nil,
		},
		{
			name: "Full",
			user: &model.User{
				ID:       7,
				Username: strPtr("alice"),
				UserDetail: model.UserDetail{
					Nickname:  "Alice",
					AvatarURL: "a.png",
					Bio:       strPtr("hello"),
					Gender:    &gender,
					Region:    strPtr("Tokyo"),
				},
			},
			want: &UserProfileDTO{
				ID:           7,
				Username:     "alice",
				DisplayName:  "Alice",
				Avatar:       "a.png",
				ProfileImage: "a.png",
				Details:      ProfileDetailsDTO{Avatar: "a.png", Bio: "hello", Gender: 1, Region: "Tokyo"},
			},
		},
		{
			name: "Fallbacks",
			user: &model.User{ID: 8, Username: strPtr("bob"), UserDetail: model.UserDetail{Nickname: "  "}},
			want: &UserProfileDTO{
				ID:           8,
				Username:     "bob",
				DisplayName:  "bob",
				Avatar:       consts.DefaultAvatarURL,
				ProfileImage: consts.DefaultAvatarURL,
				Details:      ProfileDetailsDTO{Avatar: consts.DefaultAvatarURL},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, NewUserProfile(tt.user)); diff != "" {
				t.Errorf("NewUserProfile() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConversationSummaryDTO_FlatJSON(t *testing.T) {
	summary := ConversationSummaryDTO{
		UserProfileDTO: UserProfileDTO{ID: 3, Username: "carol", DisplayName: "Carol", Avatar: "c.png", ProfileImage: "c.png"},
		UnreadCount:    2,
	}
	b, err := json.Marshal(summary)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "username", "displayName", "details", "avatar", "profileImage", "lastMessage", "unreadCount"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %s", key, b)
		}
	}
}
