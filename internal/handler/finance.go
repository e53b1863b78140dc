package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lightcore/internal/model"
	"lightcore/internal/service"
)

// FinanceHandler 金融AI演示代理处理器
type FinanceHandler struct {
	chatSvc *service.ChatService
}

// NewFinanceHandler 创建金融代理处理器
func NewFinanceHandler(chatSvc *service.ChatService) *FinanceHandler {
	return &FinanceHandler{chatSvc: chatSvc}
}

// FinanceChat 金融演示对话接口
// POST /api/v1/finance-chat
// 上游失败时透传其 HTTP 状态码
func (h *FinanceHandler) FinanceChat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ChatResponse{
			Success: false,
			Message: model.KindInvalidMessage.UserMessage(),
			Error:   err.Error(),
		})
		return
	}

	resp, status := h.chatSvc.SendFinance(c.Request.Context(), &req)
	c.JSON(status, resp)
}
