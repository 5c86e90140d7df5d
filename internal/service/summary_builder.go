package service

import (
	"ThinkSync/internal/api/dto"
	"ThinkSync/internal/model"
	"ThinkSync/internal/repository"
	"context"
	"sort"

	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"
)

const recentBuildConcurrency = 8

// SummaryBuilder 组合对方资料、最后一条消息与未读数
type SummaryBuilder interface {
	Build(ctx context.Context, viewerID, counterpartID uint64) (*dto.ConversationSummaryDTO, error)
	BuildRecent(ctx context.Context, viewerID uint64) ([]*dto.ConversationSummaryDTO, error)
}

type summaryBuilderImpl struct {
	messageRepo repository.MessageRepo
	profiles    ProfileService
}

func NewSummaryBuilder(messageRepo repository.MessageRepo, profiles ProfileService) SummaryBuilder {
	return &summaryBuilderImpl{messageRepo: messageRepo, profiles: profiles}
}

// Build 对方不存在或两人没有消息往来时返回 (nil, nil)
func (s *summaryBuilderImpl) Build(ctx context.Context, viewerID, counterpartID uint64) (*dto.ConversationSummaryDTO, error) {
	var (
		profile *dto.UserProfileDTO
		last    *model.Message
		unread  int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = s.profiles.GetProfile(gctx, counterpartID)
		return err
	})
	g.Go(func() (err error) {
		last, err = s.messageRepo.LastBetween(gctx, viewerID, counterpartID)
		return err
	})
	g.Go(func() (err error) {
		unread, err = s.messageRepo.CountUnread(gctx, viewerID, counterpartID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if profile == nil || last == nil {
		return nil, nil
	}
	lastMessage, err := toMessageDTO(last)
	if err != nil {
		return nil, err
	}
	return &dto.ConversationSummaryDTO{
		UserProfileDTO: *profile,
		LastMessage:    lastMessage,
		UnreadCount:    unread,
	}, nil
}

// BuildRecent 最近会话列表，按最后一条消息倒序
func (s *summaryBuilderImpl) BuildRecent(ctx context.Context, viewerID uint64) ([]*dto.ConversationSummaryDTO, error) {
	counterparts, err := s.messageRepo.ListCounterpartIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	results := make([]*dto.ConversationSummaryDTO, len(counterparts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recentBuildConcurrency)
	for i, id := range counterparts {
		g.Go(func() error {
			summary, err := s.Build(gctx, viewerID, id)
			if err != nil {
				return err
			}
			results[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]*dto.ConversationSummaryDTO, 0, len(results))
	for _, r := range results {
		if r != nil {
			summaries = append(summaries, r)
		}
	}
	// 稳定排序，时间与 ID 都相同时保留扫描顺序
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessage, summaries[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return summaries, nil
}

func toMessageDTO(m *model.Message) (*dto.MessageDTO, error) {
	res := &dto.MessageDTO{}
	if err := copier.Copy(res, m); err != nil {
		return nil, err
	}
	return res, nil
}
