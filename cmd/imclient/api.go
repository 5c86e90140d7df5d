package main

import (
	"ThinkSync/internal/api/dto"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// apiClient /api/im 下的 REST 接口
type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")
	client.JSONMarshal = json.Marshal
	client.JSONUnmarshal = json.Unmarshal
	return &apiClient{http: client}
}

func call[T any](ctx context.Context, c *apiClient, method, path string, body any) (T, error) {
	var res envelope[T]
	req := c.http.R().SetContext(ctx).SetResult(&res)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return res.Data, err
	}
	if resp.IsError() {
		return res.Data, fmt.Errorf("%s %s: http %d", method, path, resp.StatusCode())
	}
	if res.Code != 200 {
		return res.Data, fmt.Errorf("%s %s: %d %s", method, path, res.Code, res.Message)
	}
	return res.Data, nil
}

func (c *apiClient) Recent(ctx context.Context) ([]*dto.ConversationSummaryDTO, error) {
	return call[[]*dto.ConversationSummaryDTO](ctx, c, resty.MethodGet, "/api/im/recent", nil)
}

func (c *apiClient) Contacts(ctx context.Context) ([]*dto.UserProfileDTO, error) {
	return call[[]*dto.UserProfileDTO](ctx, c, resty.MethodGet, "/api/im/contacts", nil)
}

func (c *apiClient) UnreadCount(ctx context.Context) (int64, error) {
	res, err := call[dto.UnreadCountDTO](ctx, c, resty.MethodGet, "/api/im/unread-count", nil)
	return res.UnreadCount, err
}

func (c *apiClient) Messages(ctx context.Context, counterpartID uint64) ([]*dto.MessageDTO, error) {
	return call[[]*dto.MessageDTO](ctx, c, resty.MethodGet, "/api/im/messages/"+strconv.FormatUint(counterpartID, 10), nil)
}

func (c *apiClient) MarkRead(ctx context.Context, counterpartID uint64) (int64, error) {
	res, err := call[dto.MarkReadResultDTO](ctx, c, resty.MethodPost, "/api/im/messages/"+strconv.FormatUint(counterpartID, 10)+"/read", nil)
	return res.RowsUpdated, err
}

func (c *apiClient) Send(ctx context.Context, receiverID uint64, content string) (*dto.MessageDTO, error) {
	return call[*dto.MessageDTO](ctx, c, resty.MethodPost, "/api/im/send", &dto.SendMessageReq{ReceiverID: receiverID, Content: content})
}
