package chatview

import (
	"ThinkSync/internal/api/dto"
	"cmp"
	"slices"
	"strings"
)

type openConversation struct {
	counterpartID uint64
	messages      []*dto.MessageDTO
	seen          map[string]struct{}
}

// View 客户端的会话列表与未读角标，只通过事件增量修改，非并发安全
type View struct {
	viewerID uint64
	entries  map[uint64]*dto.ConversationSummaryDTO
	order    []uint64
	unread   int64
	open     *openConversation
}

func New(viewerID uint64) *View {
	return &View{
		viewerID: viewerID,
		entries:  make(map[uint64]*dto.ConversationSummaryDTO),
	}
}

// Seed 用 REST 快照重置状态：最近会话、尚无消息的联系人与未读总数
func (v *View) Seed(recent []*dto.ConversationSummaryDTO, contacts []*dto.UserProfileDTO, unreadTotal int64) {
	v.entries = make(map[uint64]*dto.ConversationSummaryDTO, len(recent)+len(contacts))
	for _, c := range recent {
		if c == nil || c.ID == v.viewerID {
			continue
		}
		cp := *c
		v.entries[c.ID] = &cp
	}
	for _, p := range contacts {
		if p == nil || p.ID == v.viewerID {
			continue
		}
		if _, ok := v.entries[p.ID]; ok {
			continue
		}
		v.entries[p.ID] = &dto.ConversationSummaryDTO{UserProfileDTO: *p}
	}
	v.unread = max(unreadTotal, 0)
	v.resort()
}

// Open 打开会话并立即清零该会话的未读
func (v *View) Open(counterpartID uint64, messages []*dto.MessageDTO) {
	v.open = &openConversation{
		counterpartID: counterpartID,
		seen:          make(map[string]struct{}, len(messages)),
	}
	for _, m := range messages {
		v.appendMessage(m)
	}
	v.Apply(LocalRead{CounterpartID: counterpartID})
}

// Load 用拉取到的历史消息补全已打开的会话，打开后实时收到的消息排在历史之后且不重复
func (v *View) Load(counterpartID uint64, history []*dto.MessageDTO) {
	if v.open == nil || v.open.counterpartID != counterpartID {
		return
	}
	live := v.open.messages
	v.open.messages = make([]*dto.MessageDTO, 0, len(history)+len(live))
	v.open.seen = make(map[string]struct{}, len(history)+len(live))
	for _, m := range history {
		v.appendMessage(m)
	}
	for _, m := range live {
		v.appendMessage(m)
	}
	v.Apply(LocalRead{CounterpartID: counterpartID})
}

func (v *View) Close() {
	v.open = nil
}

// Apply 处理一个事件，返回需要调用方执行的副作用
func (v *View) Apply(ev Event) []Effect {
	switch e := ev.(type) {
	case MessageReceived:
		return v.applyMessage(e)
	case ConversationUpdated:
		if e.Conversation == nil || e.Conversation.ID == 0 {
			return nil
		}
		cp := *e.Conversation
		v.entries[cp.ID] = &cp
		v.resort()
	case UnreadTotalChanged:
		v.unread = max(e.Count, 0)
	case MessagesRead:
		// 对方读了我发出的消息
		if v.open == nil || e.ReaderID != v.open.counterpartID || e.OtherUserID != v.viewerID {
			return nil
		}
		for _, m := range v.open.messages {
			if m.SenderID == v.viewerID {
				m.Read = true
			}
		}
	case LocalRead:
		entry, ok := v.entries[e.CounterpartID]
		if !ok {
			return nil
		}
		cleared := entry.UnreadCount
		entry.UnreadCount = 0
		v.unread = max(v.unread-cleared, 0)
	}
	return nil
}

func (v *View) applyMessage(e MessageReceived) []Effect {
	m := e.Message
	if m == nil || v.open == nil {
		return nil
	}
	cp := v.open.counterpartID
	inbound := m.SenderID == cp && m.ReceiverID == v.viewerID
	outbound := m.SenderID == v.viewerID && m.ReceiverID == cp
	if !inbound && !outbound {
		return nil
	}
	if !v.appendMessage(m) || !inbound {
		return nil
	}

	v.Apply(LocalRead{CounterpartID: cp})
	return []Effect{MarkReadRequest{CounterpartID: cp}}
}

// appendMessage 按消息 ID 去重
func (v *View) appendMessage(m *dto.MessageDTO) bool {
	if m == nil {
		return false
	}
	if _, ok := v.open.seen[m.ID]; ok {
		return false
	}
	v.open.seen[m.ID] = struct{}{}
	cp := *m
	v.open.messages = append(v.open.messages, &cp)
	return true
}

// resort 有消息的按最后一条消息时间倒序，时间相同按消息 ID 倒序；无消息的排在最后，按显示名再按 ID
func (v *View) resort() {
	v.order = v.order[:0]
	for id := range v.entries {
		v.order = append(v.order, id)
	}
	slices.SortFunc(v.order, func(a, b uint64) int {
		return compareEntries(v.entries[a], v.entries[b])
	})
}

func compareEntries(x, y *dto.ConversationSummaryDTO) int {
	xm, ym := x.LastMessage, y.LastMessage
	switch {
	case xm != nil && ym != nil:
		if c := ym.CreatedAt.Compare(xm.CreatedAt); c != 0 {
			return c
		}
		if c := strings.Compare(ym.ID, xm.ID); c != 0 {
			return c
		}
	case xm != nil:
		return -1
	case ym != nil:
		return 1
	default:
		if c := strings.Compare(x.DisplayName, y.DisplayName); c != 0 {
			return c
		}
	}
	return cmp.Compare(x.ID, y.ID)
}

// Conversations 按展示顺序返回会话快照
func (v *View) Conversations() []dto.ConversationSummaryDTO {
	res := make([]dto.ConversationSummaryDTO, 0, len(v.order))
	for _, id := range v.order {
		res = append(res, *v.entries[id])
	}
	return res
}

func (v *View) UnreadTotal() int64 {
	return v.unread
}

// OpenConversation 当前打开的会话及其本地消息
func (v *View) OpenConversation() (uint64, []dto.MessageDTO, bool) {
	if v.open == nil {
		return 0, nil, false
	}
	msgs := make([]dto.MessageDTO, 0, len(v.open.messages))
	for _, m := range v.open.messages {
		msgs = append(msgs, *m)
	}
	return v.open.counterpartID, msgs, true
}
