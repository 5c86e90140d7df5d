package handler

import (
	"ThinkSync/internal/api/dto"
	"ThinkSync/internal/pkg/response"
	"ThinkSync/internal/pkg/util"
	"ThinkSync/internal/service"

	"github.com/gin-gonic/gin"
)

type IMHandler struct {
	imService service.IMService
}

func NewIMHandler(imService service.IMService) *IMHandler {
	return &IMHandler{imService: imService}
}

// SendMessage 发送私信
func (s *IMHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Fail(c, response.BadRequest, err.Error())
		return
	}

	senderID := c.GetUint64("user_id")
	res, err := s.imService.SendMessage(c.Request.Context(), senderID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetRecentConversations 最近会话
func (s *IMHandler) GetRecentConversations(c *gin.Context) {
	userID := c.GetUint64("user_id")
	list, err := s.imService.ListRecentConversations(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// GetUnreadCount 未读总数
func (s *IMHandler) GetUnreadCount(c *gin.Context) {
	userID := c.GetUint64("user_id")
	count, err := s.imService.GetUnreadTotal(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.UnreadCountDTO{UnreadCount: count})
}

// GetContacts 可发起私信的联系人
func (s *IMHandler) GetContacts(c *gin.Context) {
	userID := c.GetUint64("user_id")
	contacts, err := s.imService.ListContacts(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, contacts)
}

// GetMessages 拉取与某人的消息，同时标记已读
func (s *IMHandler) GetMessages(c *gin.Context) {
	counterpartID, ok := util.ParseID(c.Param("user_id"))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	msgs, err := s.imService.ListMessages(c.Request.Context(), userID, counterpartID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msgs)
}

// MarkRead 标记与某人的会话已读
func (s *IMHandler) MarkRead(c *gin.Context) {
	counterpartID, ok := util.ParseID(c.Param("user_id"))
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	rows, err := s.imService.MarkRead(c.Request.Context(), userID, counterpartID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.MarkReadResultDTO{RowsUpdated: rows})
}
