package main

import (
	"ThinkSync/internal/api/dto"
	"ThinkSync/internal/chatview"
	"ThinkSync/internal/pkg/realtime"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want chatview.Event
	}{
		{
			name: "UnreadTotal",
			raw:  `{"event":"chat:unread-total","channel":"user:2","data":{"count":3}}`,
			want: chatview.UnreadTotalChanged{Count: 3},
		},
		{
			name: "MessagesRead",
			raw:  `{"event":"chat:messages-read","channel":"1_2","data":{"readerId":2,"otherUserId":1}}`,
			want: chatview.MessagesRead{ReaderID: 2, OtherUserID: 1},
		},
		{
			name: "Message",
			raw:  `{"event":"chat:message","channel":"1_2","data":{"message":{"id":"m1","senderId":2,"receiverId":1,"content":"hi"},"roomId":"1_2"}}`,
			want: chatview.MessageReceived{Message: &dto.MessageDTO{ID: "m1", SenderID: 2, ReceiverID: 1, Content: "hi"}, RoomID: "1_2"},
		},
		{
			name: "Error",
			raw:  `{"event":"error","data":{"message":"no"}}`,
			want: nil,
		},
		{
			name: "Unknown",
			raw:  `{"event":"chat:typing","data":{}}`,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEvent([]byte(tt.raw))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("event mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := decodeEvent([]byte(`{`)); err == nil {
		t.Error("expected error for malformed frame")
	}
}

func TestWsURL(t *testing.T) {
	got, err := wsURL("https://im.example/base/", "a b")
	if err != nil {
		t.Fatal(err)
	}
	if got != "wss://im.example/base/api/im/ws?token=a+b" {
		t.Errorf("wsURL = %s", got)
	}
}

func TestAPIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer tok" {
			_, _ = w.Write([]byte(`{"code":401,"message":"Token 缺失或格式错误","data":null}`))
			return
		}
		switch r.URL.Path {
		case "/api/im/unread-count":
			_, _ = w.Write([]byte(`{"code":200,"message":"success","data":{"unreadCount":4}}`))
		case "/api/im/messages/2/read":
			_, _ = w.Write([]byte(`{"code":200,"message":"success","data":{"rowsUpdated":1}}`))
		default:
			_, _ = w.Write([]byte(`{"code":403,"message":"互相关注后才能私信","data":null}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := newAPIClient(srv.URL, "tok")
	if n, err := c.UnreadCount(ctx); err != nil || n != 4 {
		t.Errorf("UnreadCount = %d, %v", n, err)
	}
	if n, err := c.MarkRead(ctx, 2); err != nil || n != 1 {
		t.Errorf("MarkRead = %d, %v", n, err)
	}
	if _, err := c.Send(ctx, 3, "hi"); err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("Send err = %v, want 403", err)
	}
	if _, err := newAPIClient(srv.URL, "bad").UnreadCount(ctx); err == nil {
		t.Error("expected unauthorized error")
	}
}

func TestRenderView(t *testing.T) {
	v := chatview.New(1)
	v.Seed([]*dto.ConversationSummaryDTO{{
		UserProfileDTO: dto.UserProfileDTO{ID: 2, DisplayName: "bob"},
		LastMessage:    &dto.MessageDTO{ID: "m", SenderID: 2, ReceiverID: 1, Content: "hi"},
		UnreadCount:    1,
	}}, nil, 1)

	var buf bytes.Buffer
	renderView(&buf, 1, v)
	if out := buf.String(); !strings.Contains(out, "未读 1") || !strings.Contains(out, "2 bob [1]: hi") {
		t.Errorf("render output:\n%s", out)
	}
}

func TestSessionOpen_KeepsMessagesArrivingBeforeHistory(t *testing.T) {
	var s *session
	live := `{"event":"chat:message","channel":"1_2","data":{"message":{"id":"m3","senderId":2,"receiverId":1,"content":"live"},"roomId":"1_2"}}`

	// 历史接口在实时消息进入会话后才返回，模拟两者交错
	liveSeen := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, msgs, _ := s.view.OpenConversation()
		for _, m := range msgs {
			if m.ID == "m3" {
				return true
			}
		}
		return false
	}

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/im/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame realtime.ControlFrame
			if json.Unmarshal(data, &frame) == nil && frame.Type == realtime.ControlJoinRoom {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(live))
			}
		}
	})
	mux.HandleFunc("/api/im/messages/2", func(w http.ResponseWriter, r *http.Request) {
		deadline := time.Now().Add(2 * time.Second)
		for !liveSeen() && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{"code":200,"message":"success","data":[` +
			`{"id":"m1","senderId":1,"receiverId":2,"content":"a","read":true},` +
			`{"id":"m2","senderId":2,"receiverId":1,"content":"b","read":true}]}`))
	})
	mux.HandleFunc("/api/im/messages/2/read", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"message":"success","data":{"rowsUpdated":1}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s = newSession(1, newAPIClient(srv.URL, "tok"), io.Discard)
	if err := s.Connect(ctx, srv.URL, "tok"); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Listen(ctx)
	}()
	defer func() {
		cancel()
		s.Shutdown()
		<-done
	}()

	if err := s.Open(ctx, 2); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	_, msgs, _ := s.view.OpenConversation()
	s.mu.Unlock()
	var ids []string
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if diff := cmp.Diff([]string{"m1", "m2", "m3"}, ids); diff != "" {
		t.Errorf("open conversation mismatch (-want +got):\n%s", diff)
	}
}
