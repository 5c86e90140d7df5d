package service

import (
	"ThinkSync/internal/api/dto"
	"ThinkSync/internal/model"
	"ThinkSync/internal/pkg/consts"
	"ThinkSync/internal/pkg/realtime"
	"ThinkSync/internal/repository"
	"context"
	log "log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// IMService 私信服务：写入后同步推送原始消息，派生的摘要与未读数交给异步工作池
type IMService interface {
	SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	ListMessages(ctx context.Context, viewerID, counterpartID uint64) ([]*dto.MessageDTO, error)
	MarkRead(ctx context.Context, viewerID, counterpartID uint64) (int64, error)
	ListRecentConversations(ctx context.Context, viewerID uint64) ([]*dto.ConversationSummaryDTO, error)
	GetUnreadTotal(ctx context.Context, viewerID uint64) (int64, error)
	ListContacts(ctx context.Context, viewerID uint64) ([]*dto.UserProfileDTO, error)
	RepublishUnreadTotal(ctx context.Context, userID uint64) error
	Close()
}

// DirtyMarker 记录推送失败、需要后台校准未读数的用户
type DirtyMarker interface {
	Mark(ctx context.Context, userIDs ...uint64) error
}

// FanoutOptions 异步推送工作池参数
type FanoutOptions struct {
	Workers        int
	QueueSize      int
	PublishRetries int
	RetryBackoff   time.Duration
	PublishTimeout time.Duration
}

func (o FanoutOptions) withDefaults() FanoutOptions {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.PublishRetries < 0 {
		o.PublishRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 100 * time.Millisecond
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 2 * time.Second
	}
	return o
}

// publishStep 一次推送，失败时 users 被标记为脏
type publishStep struct {
	name  string
	users []uint64
	run   func(ctx context.Context) error
}

// fanoutTask 同一次变更推给同一用户的事件，按顺序执行。
// 相同 key 的任务进入同一个队列，保证该用户收到的事件不乱序
type fanoutTask struct {
	ctx   context.Context
	key   uint64
	steps []publishStep
}

type imServiceImpl struct {
	messageRepo repository.MessageRepo
	followRepo  repository.UserFollowRepo
	gate        RelationGate
	profiles    ProfileService
	summaries   SummaryBuilder
	publisher   realtime.Publisher
	dirty       DirtyMarker
	opts        FanoutOptions

	queues []chan *fanoutTask
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewIMService 构造函数：初始化服务并启动异步推送工作池
func NewIMService(
	messageRepo repository.MessageRepo,
	followRepo repository.UserFollowRepo,
	gate RelationGate,
	profiles ProfileService,
	summaries SummaryBuilder,
	publisher realtime.Publisher,
	dirty DirtyMarker,
	opts FanoutOptions,
) IMService {
	opts = opts.withDefaults()
	s := &imServiceImpl{
		messageRepo: messageRepo,
		followRepo:  followRepo,
		gate:        gate,
		profiles:    profiles,
		summaries:   summaries,
		publisher:   publisher,
		dirty:       dirty,
		opts:        opts,
		queues:      make([]chan *fanoutTask, opts.Workers),
	}

	s.wg.Add(opts.Workers)
	for i := range s.queues {
		s.queues[i] = make(chan *fanoutTask, opts.QueueSize)
		go s.fanoutWorker(s.queues[i])
	}
	return s
}

// SendMessage 发送私信
func (s *imServiceImpl) SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if req == nil || senderID == 0 || req.ReceiverID == 0 {
		return nil, ErrParamInvalid
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrParamInvalid
	}
	if utf8.RuneCountInString(content) > consts.MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if err := s.checkGate(ctx, senderID, req.ReceiverID); err != nil {
		return nil, err
	}

	msg := &model.Message{SenderID: senderID, ReceiverID: req.ReceiverID, Content: content}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	res, err := toMessageDTO(msg)
	if err != nil {
		return nil, err
	}

	// 原始消息先于派生事件发出
	room, _ := realtime.PairChannel(senderID, req.ReceiverID)
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	err = s.publisher.Publish(pubCtx, room, realtime.EventMessage, &dto.MessageEvent{Message: res, RoomID: string(room)})
	cancel()
	if err != nil {
		log.WarnContext(ctx, "推送原始消息失败", "room", room, "messageID", msg.ID, "err", err)
	}

	s.enqueue(ctx, &fanoutTask{key: senderID, steps: []publishStep{
		s.summaryStep(senderID, req.ReceiverID),
	}})
	s.enqueue(ctx, &fanoutTask{key: req.ReceiverID, steps: []publishStep{
		s.summaryStep(req.ReceiverID, senderID),
		s.unreadStep(req.ReceiverID),
	}})
	return res, nil
}

// ListMessages 拉取两人全部消息并将对方发来的消息置为已读
func (s *imServiceImpl) ListMessages(ctx context.Context, viewerID, counterpartID uint64) ([]*dto.MessageDTO, error) {
	if err := s.checkGate(ctx, viewerID, counterpartID); err != nil {
		return nil, err
	}
	if _, err := s.markRead(ctx, viewerID, counterpartID); err != nil {
		return nil, err
	}

	msgs, err := s.messageRepo.ListBetween(ctx, viewerID, counterpartID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		item, err := toMessageDTO(m)
		if err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, nil
}

// MarkRead 标记对方发来的消息为已读，返回影响行数
func (s *imServiceImpl) MarkRead(ctx context.Context, viewerID, counterpartID uint64) (int64, error) {
	if err := s.checkGate(ctx, viewerID, counterpartID); err != nil {
		return 0, err
	}
	return s.markRead(ctx, viewerID, counterpartID)
}

func (s *imServiceImpl) markRead(ctx context.Context, viewerID, counterpartID uint64) (int64, error) {
	rows, err := s.messageRepo.MarkRead(ctx, viewerID, counterpartID)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, nil
	}

	room, _ := realtime.PairChannel(viewerID, counterpartID)
	s.enqueue(ctx, &fanoutTask{key: counterpartID, steps: []publishStep{
		s.summaryStep(counterpartID, viewerID),
	}})
	s.enqueue(ctx, &fanoutTask{key: viewerID, steps: []publishStep{
		s.summaryStep(viewerID, counterpartID),
		s.unreadStep(viewerID),
		{
			name: realtime.EventMessagesRead,
			run: func(ctx context.Context) error {
				return s.publisher.Publish(ctx, room, realtime.EventMessagesRead, &dto.MessagesReadEvent{
					ReaderID:    viewerID,
					OtherUserID: counterpartID,
				})
			},
		},
	}})
	return rows, nil
}

func (s *imServiceImpl) ListRecentConversations(ctx context.Context, viewerID uint64) ([]*dto.ConversationSummaryDTO, error) {
	return s.summaries.BuildRecent(ctx, viewerID)
}

func (s *imServiceImpl) GetUnreadTotal(ctx context.Context, viewerID uint64) (int64, error) {
	return s.messageRepo.CountUnreadTotal(ctx, viewerID)
}

// ListContacts 关注列表中可发起私信的用户
func (s *imServiceImpl) ListContacts(ctx context.Context, viewerID uint64) ([]*dto.UserProfileDTO, error) {
	viewer, err := s.profiles.GetProfile(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return nil, ErrUserNotFound
	}

	follows, err := s.followRepo.GetUserFollowing(ctx, viewerID, consts.MaxContactCount+1, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(follows))
	for _, f := range follows {
		if f.FollowingID == viewerID {
			continue
		}
		if len(ids) == consts.MaxContactCount {
			break
		}
		ids = append(ids, f.FollowingID)
	}
	return s.profiles.GetProfiles(ctx, ids)
}

// RepublishUnreadTotal 重新计算并推送用户的未读总数
func (s *imServiceImpl) RepublishUnreadTotal(ctx context.Context, userID uint64) error {
	return s.unreadStep(userID).run(ctx)
}

// Close 停止接收新任务，等待队列中的任务执行完毕
func (s *imServiceImpl) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, q := range s.queues {
		close(q)
	}
	s.mu.Unlock()

	s.wg.Wait()
	log.Info("IMService shut down gracefully")
}

func (s *imServiceImpl) checkGate(ctx context.Context, a, b uint64) error {
	ok, err := s.gate.CanMessage(ctx, a, b)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConnected
	}
	return nil
}

// summaryStep 把 viewer 视角的会话摘要推到 viewer 的个人频道
func (s *imServiceImpl) summaryStep(viewerID, counterpartID uint64) publishStep {
	return publishStep{
		name:  realtime.EventConversationUpdated,
		users: []uint64{viewerID},
		run: func(ctx context.Context) error {
			summary, err := s.summaries.Build(ctx, viewerID, counterpartID)
			if err != nil {
				// 摘要构建失败视为无摘要，不重试
				log.WarnContext(ctx, "构建会话摘要失败", "viewerID", viewerID, "counterpartID", counterpartID, "err", err)
				return nil
			}
			if summary == nil {
				return nil
			}
			channel, err := realtime.UserChannel(viewerID)
			if err != nil {
				return err
			}
			return s.publisher.Publish(ctx, channel, realtime.EventConversationUpdated, &dto.ConversationUpdatedEvent{Conversation: summary})
		},
	}
}

func (s *imServiceImpl) unreadStep(userID uint64) publishStep {
	return publishStep{
		name:  realtime.EventUnreadTotal,
		users: []uint64{userID},
		run: func(ctx context.Context) error {
			count, err := s.messageRepo.CountUnreadTotal(ctx, userID)
			if err != nil {
				return err
			}
			channel, err := realtime.UserChannel(userID)
			if err != nil {
				return err
			}
			return s.publisher.Publish(ctx, channel, realtime.EventUnreadTotal, &dto.UnreadTotalEvent{Count: count})
		},
	}
}

// enqueue 按 key 选择队列，队列已满或服务已关闭时直接标记为脏，交给校准任务
func (s *imServiceImpl) enqueue(ctx context.Context, task *fanoutTask) {
	task.ctx = context.WithoutCancel(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.closed {
		select {
		case s.queues[task.key%uint64(len(s.queues))] <- task:
			return
		default:
		}
	}

	log.WarnContext(ctx, "推送队列已满，转入后台校准", "closed", s.closed)
	for _, step := range task.steps {
		s.markDirty(task.ctx, step.users)
	}
}

func (s *imServiceImpl) fanoutWorker(tasks <-chan *fanoutTask) {
	defer s.wg.Done()
	for task := range tasks {
		for _, step := range task.steps {
			s.runStep(task.ctx, step)
		}
	}
}

// runStep 带指数退避的有限次重试
func (s *imServiceImpl) runStep(ctx context.Context, step publishStep) {
	backoff := s.opts.RetryBackoff
	var err error
	for attempt := 0; attempt <= s.opts.PublishRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		stepCtx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
		err = step.run(stepCtx)
		cancel()
		if err == nil {
			return
		}
	}
	log.WarnContext(ctx, "派生事件推送失败", "event", step.name, "users", step.users, "err", err)
	s.markDirty(ctx, step.users)
}

func (s *imServiceImpl) markDirty(ctx context.Context, users []uint64) {
	if s.dirty == nil || len(users) == 0 {
		return
	}
	if err := s.dirty.Mark(ctx, users...); err != nil {
		log.ErrorContext(ctx, "标记待校准用户失败", "users", users, "err", err)
	}
}
