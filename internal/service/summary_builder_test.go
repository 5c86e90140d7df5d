package service

import (
	"ThinkSync/internal/api/dto"
	"ThinkSync/internal/model"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jinzhu/copier"
)

func newTestBuilder(t *testing.T) (*memMessageRepo, *memUserRepo, SummaryBuilder) {
	t.Helper()
	messages := newMemMessageRepo()
	users := newMemUserRepo()
	users.add(1, "alice", "Alice")
	users.add(2, "bob", "Bob")
	users.add(3, "carol", "Carol")
	users.add(4, "dave", "Dave")
	return messages, users, NewSummaryBuilder(messages, NewProfileService(users, nil, 0))
}

func TestSummaryBuilder_Build(t *testing.T) {
	messages, _, builder := newTestBuilder(t)
	ctx := context.Background()

	summary, err := builder.Build(ctx, 1, 2)
	if err != nil || summary != nil {
		t.Fatalf("Build() without messages = %+v, %v, want absent", summary, err)
	}

	_ = messages.Create(ctx, &model.Message{SenderID: 2, ReceiverID: 1, Content: "hello"})
	_ = messages.Create(ctx, &model.Message{SenderID: 2, ReceiverID: 1, Content: "again"})
	_ = messages.Create(ctx, &model.Message{SenderID: 1, ReceiverID: 2, Content: "yo"})

	summary, err = builder.Build(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if summary.ID != 2 || summary.DisplayName != "Bob" || summary.LastMessage.Content != "yo" || summary.UnreadCount != 2 {
		t.Errorf("Build() = %+v", summary)
	}

	// 对方不存在
	_ = messages.Create(ctx, &model.Message{SenderID: 1, ReceiverID: 77, Content: "ghost"})
	summary, err = builder.Build(ctx, 1, 77)
	if err != nil || summary != nil {
		t.Errorf("Build() for unknown counterpart = %+v, %v, want absent", summary, err)
	}
}

func TestSummaryBuilder_BuildFailsWhole(t *testing.T) {
	messages, _, builder := newTestBuilder(t)
	ctx := context.Background()
	_ = messages.Create(ctx, &model.Message{SenderID: 2, ReceiverID: 1, Content: "hello"})

	messages.countErr = errBoom
	summary, err := builder.Build(ctx, 1, 2)
	if !errors.Is(err, errBoom) || summary != nil {
		t.Errorf("Build() = %+v, %v, want error and no partial summary", summary, err)
	}
}

func TestSummaryBuilder_BuildRecentOrder(t *testing.T) {
	messages, _, builder := newTestBuilder(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	send := func(from, to uint64, offset time.Duration) {
		if err := messages.Create(ctx, &model.Message{SenderID: from, ReceiverID: to, Content: "x", CreatedAt: base.Add(offset)}); err != nil {
			t.Fatal(err)
		}
	}
	send(1, 2, 0)
	send(3, 1, time.Minute)
	// 与 3 的最后一条同时间，ID 更大者在前
	send(1, 4, time.Minute)
	send(2, 3, 5*time.Minute)
	send(1, 77, 10*time.Minute)

	recent, err := builder.BuildRecent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	var got []uint64
	for _, r := range recent {
		got = append(got, r.ID)
	}
	if diff := cmp.Diff([]uint64{4, 3, 2}, got); diff != "" {
		t.Errorf("BuildRecent() order mismatch (-want +got):\n%s", diff)
	}

	empty, err := builder.BuildRecent(ctx, 99)
	if err != nil || len(empty) != 0 {
		t.Errorf("BuildRecent() for silent user = %v, %v", empty, err)
	}
}

func TestToMessageDTO(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := toMessageDTO(&model.Message{ID: "m1", SenderID: 1, ReceiverID: 2, Content: "hi", Read: true, CreatedAt: at})
	if err != nil {
		t.Fatal(err)
	}
	want := &dto.MessageDTO{ID: "m1", SenderID: 1, ReceiverID: 2, Content: "hi", Read: true, CreatedAt: at}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toMessageDTO() mismatch (-want +got):\n%s", diff)
	}

	if _, err := toMessageDTO(nil); !errors.Is(err, copier.ErrInvalidCopyFrom) {
		t.Errorf("toMessageDTO(nil) error = %v, want %v", err, copier.ErrInvalidCopyFrom)
	}
}
