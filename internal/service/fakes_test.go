package service

import (
	"ThinkSync/internal/model"
	"ThinkSync/internal/pkg/realtime"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/neilotoole/slogt"
	"github.com/redis/go-redis/v9"
)

var errBoom = errors.New("boom")

// memMessageRepo 内存版消息存储
type memMessageRepo struct {
	mu    sync.Mutex
	msgs  []*model.Message
	clock time.Time

	createErr error
	lastErr   error
	countErr  error
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (r *memMessageRepo) Create(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if msg.CreatedAt.IsZero() {
		r.clock = r.clock.Add(time.Second)
		msg.CreatedAt = r.clock
	}
	if err := msg.Stamp(); err != nil {
		return err
	}
	cp := *msg
	r.msgs = append(r.msgs, &cp)
	return nil
}

func between(m *model.Message, a, b uint64) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func newer(x, y *model.Message) bool {
	if !x.CreatedAt.Equal(y.CreatedAt) {
		return x.CreatedAt.After(y.CreatedAt)
	}
	return x.ID > y.ID
}

func (r *memMessageRepo) LastBetween(_ context.Context, a, b uint64) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastErr != nil {
		return nil, r.lastErr
	}
	var last *model.Message
	for _, m := range r.msgs {
		if between(m, a, b) && (last == nil || newer(m, last)) {
			last = m
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (r *memMessageRepo) CountUnread(_ context.Context, receiverID, senderID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	var n int64
	for _, m := range r.msgs {
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepo) CountUnreadTotal(_ context.Context, receiverID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	var n int64
	for _, m := range r.msgs {
		if m.ReceiverID == receiverID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepo) ListBetween(_ context.Context, a, b uint64) ([]*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*model.Message, 0)
	for _, m := range r.msgs {
		if between(m, a, b) {
			cp := *m
			res = append(res, &cp)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return newer(res[j], res[i]) })
	return res, nil
}

func (r *memMessageRepo) MarkRead(_ context.Context, receiverID, senderID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.msgs {
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.Read {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (r *memMessageRepo) ListCounterpartIDs(_ context.Context, userID uint64) ([]uint64, error) {
	r.mu.Lock()
	sorted := append([]*model.Message(nil), r.msgs...)
	r.mu.Unlock()
	sort.SliceStable(sorted, func(i, j int) bool { return newer(sorted[i], sorted[j]) })

	seen := map[uint64]bool{}
	var ids []uint64
	for _, m := range sorted {
		var other uint64
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}
	return ids, nil
}

func (r *memMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

// memFollowRepo 关注关系
type memFollowRepo struct {
	mu      sync.Mutex
	follows [][2]uint64
	calls   int
	err     error
}

func (r *memFollowRepo) follow(follower, following uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.follows = append(r.follows, [2]uint64{follower, following})
}

func (r *memFollowRepo) unfollow(follower, following uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.follows = slices.DeleteFunc(r.follows, func(f [2]uint64) bool {
		return f[0] == follower && f[1] == following
	})
}

func (r *memFollowRepo) ExistsConnection(_ context.Context, a, b uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return false, r.err
	}
	for _, f := range r.follows {
		if (f[0] == a && f[1] == b) || (f[0] == b && f[1] == a) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memFollowRepo) GetUserFollowing(_ context.Context, userID uint64, limit, offset int) ([]*model.UserFollow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*model.UserFollow
	for _, f := range r.follows {
		if f[0] == userID {
			res = append(res, &model.UserFollow{FollowerID: f[0], FollowingID: f[1]})
		}
	}
	if offset >= len(res) {
		return nil, nil
	}
	res = res[offset:]
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// memUserRepo 用户资料
type memUserRepo struct {
	mu    sync.Mutex
	users map[uint64]*model.User
	calls int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[uint64]*model.User{}}
}

func (r *memUserRepo) add(id uint64, username, nickname string) {
	r.users[id] = &model.User{
		ID:         id,
		Username:   &username,
		UserDetail: model.UserDetail{UserID: id, Nickname: nickname, AvatarURL: username + ".png"},
	}
}

func (r *memUserRepo) GetUserById(_ context.Context, id uint64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.users[id], nil
}

func (r *memUserRepo) GetUserByIds(_ context.Context, ids []uint64) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*model.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

// publication 一次推送记录，data 经过 JSON 往返便于断言
type publication struct {
	Channel realtime.ChannelID
	Event   string
	Data    map[string]any
}

type recordingPublisher struct {
	mu    sync.Mutex
	pubs  []publication
	fail  func(channel realtime.ChannelID, event string) error
	calls int
}

func (p *recordingPublisher) Publish(_ context.Context, channel realtime.ChannelID, event string, data any) error {
	p.mu.Lock()
	p.calls++
	fail := p.fail
	p.mu.Unlock()
	if fail != nil {
		if err := fail(channel, event); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pubs = append(p.pubs, publication{Channel: channel, Event: event, Data: decoded})
	return nil
}

func (p *recordingPublisher) all() []publication {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publication(nil), p.pubs...)
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pubs = nil
}

func (p *recordingPublisher) on(channel realtime.ChannelID, event string) []publication {
	var res []publication
	for _, pub := range p.all() {
		if pub.Channel == channel && pub.Event == event {
			res = append(res, pub)
		}
	}
	return res
}

type recordingDirty struct {
	mu    sync.Mutex
	users map[uint64]bool
}

func (d *recordingDirty) Mark(_ context.Context, ids ...uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.users == nil {
		d.users = map[uint64]bool{}
	}
	for _, id := range ids {
		d.users[id] = true
	}
	return nil
}

func (d *recordingDirty) has(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[id]
}

// fakeCache 只实现 Get/Set/Del 的 Redis
type fakeCache struct {
	redis.Cmdable
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return redis.NewStringResult("", c.getErr)
	}
	v, ok := c.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.values[key] = string(v)
	default:
		c.values[key] = fmt.Sprint(v)
	}
	c.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := c.values[k]; ok {
			n++
			delete(c.values, k)
		}
	}
	return redis.NewIntResult(n, nil)
}

// imFixture 组装好的服务与其依赖
type imFixture struct {
	messages  *memMessageRepo
	follows   *memFollowRepo
	users     *memUserRepo
	publisher *recordingPublisher
	dirty     *recordingDirty
	svc       IMService
}

func newIMFixture(t *testing.T, opts FanoutOptions) *imFixture {
	t.Helper()
	log.SetDefault(slogt.New(t))

	f := &imFixture{
		messages:  newMemMessageRepo(),
		follows:   &memFollowRepo{},
		users:     newMemUserRepo(),
		publisher: &recordingPublisher{},
		dirty:     &recordingDirty{},
	}
	f.users.add(1, "alice", "Alice")
	f.users.add(2, "bob", "Bob")
	f.users.add(3, "carol", "")

	// 单工作协程使不同用户的事件也按入队顺序发出
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	profiles := NewProfileService(f.users, nil, 0)
	f.svc = NewIMService(
		f.messages,
		f.follows,
		NewRelationGate(f.follows, nil, 0),
		profiles,
		NewSummaryBuilder(f.messages, profiles),
		f.publisher,
		f.dirty,
		opts,
	)
	t.Cleanup(f.svc.Close)
	return f
}

// flush 等待此前入队的派生推送全部完成
func (f *imFixture) flush(t *testing.T) {
	t.Helper()
	svc := f.svc.(*imServiceImpl)
	var wg sync.WaitGroup
	wg.Add(len(svc.queues))
	for i := range svc.queues {
		svc.enqueue(context.Background(), &fanoutTask{key: uint64(i), steps: []publishStep{{
			name: "flush",
			run: func(context.Context) error {
				wg.Done()
				return nil
			},
		}}})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fan-out queue did not drain")
	}
}
