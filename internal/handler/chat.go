package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lightcore/internal/model"
	"lightcore/internal/service"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	chatSvc *service.ChatService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(chatSvc *service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// Chat 对话接口
// POST /api/v1/chat
// Request: { "message": "...", "sessionId": "...", "userId": "..." }
// Response: { "success": true, "message": "...", "sessionId": "...", "photo": "..." }
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ChatResponse{
			Success: false,
			Message: model.KindInvalidMessage.UserMessage(),
			Error:   err.Error(),
		})
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, model.ChatResponse{
			Success: false,
			Message: model.KindInvalidMessage.UserMessage(),
		})
		return
	}

	resp := h.chatSvc.Send(c.Request.Context(), &req)
	c.JSON(http.StatusOK, resp)
}

// Status AI 服务状态探测
// GET /api/v1/chat/status
func (h *ChatHandler) Status(c *gin.Context) {
	status := h.chatSvc.Status(c.Request.Context())
	c.JSON(http.StatusOK, status)
}
