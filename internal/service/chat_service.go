package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"lightcore/internal/config"
	"lightcore/internal/model"
	"lightcore/internal/pkg/id"
	"lightcore/internal/pkg/n8n"
)

// SessionCounter 会话消息计数，cache.SessionCache 是生产实现
type SessionCounter interface {
	IncrMessages(ctx context.Context, sessionID string) (int64, error)
}

// ChatService 聊天代理服务
// 负责校验、会话限额、重试编排；每次调用相互独立，无共享可变状态
type ChatService struct {
	webhookCfg config.WebhookConfig
	chatCfg    config.ChatConfig
	client     *n8n.Client
	sessions   SessionCounter // 可为 nil，表示不启用会话限额
}

// NewChatService 创建聊天服务
func NewChatService(cfg *config.Config, client *n8n.Client, sessions SessionCounter) *ChatService {
	return &ChatService{
		webhookCfg: cfg.Webhook,
		chatCfg:    cfg.Chat,
		client:     client,
		sessions:   sessions,
	}
}

// Send 校验请求并转发到通用 webhook，瞬时失败按指数退避重试
// 始终返回 ChatResponse，不向外抛错
func (s *ChatService) Send(ctx context.Context, req *model.ChatRequest) *model.ChatResponse {
	return s.send(ctx, req, true)
}

// countSession 为 false 时跳过会话限额（内部探测不计入用户会话）
func (s *ChatService) send(ctx context.Context, req *model.ChatRequest, countSession bool) *model.ChatResponse {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return failure(model.KindInvalidMessage, "message is empty after trimming", req.SessionID)
	}

	if utf8.RuneCountInString(message) > s.chatCfg.MaxMessageLength {
		resp := failure(model.KindMessageTooLong, "message exceeds max length", req.SessionID)
		resp.Message = model.TooLongMessage(s.chatCfg.MaxMessageLength)
		return resp
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = id.NewSessionID()
	}
	userID := req.UserID
	if userID == "" {
		userID = id.NewUserID()
	}

	if countSession {
		if resp := s.checkSessionLimit(ctx, sessionID); resp != nil {
			return resp
		}
	}

	payload := &model.WebhookPayload{
		Message:   message,
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    s.webhookCfg.Source,
	}

	log.Info().
		Str("url", s.webhookCfg.URL).
		Str("session_id", sessionID).
		Str("user_id", userID).
		Msg("转发消息到 n8n webhook")

	return s.sendWithRetry(ctx, s.webhookCfg.URL, payload)
}

// sendWithRetry 重试编排：仅网络/超时类失败重试，退避间隔逐次翻倍
// 尝试严格串行，首次尝试前不等待
func (s *ChatService) sendWithRetry(ctx context.Context, url string, payload *model.WebhookPayload) *model.ChatResponse {
	delay := s.chatCfg.RetryDelay
	var lastErr *n8n.Error

	for attempt := 1; attempt <= s.chatCfg.MaxRetries; attempt++ {
		if attempt > 1 {
			log.Warn().
				Int("attempt", attempt-1).
				Dur("delay", delay).
				Str("kind", lastErr.Kind.String()).
				Msg("webhook 调用失败，退避后重试")

			select {
			case <-ctx.Done():
				return failure(model.KindUnknown, ctx.Err().Error(), payload.SessionID)
			case <-time.After(delay):
			}
			delay *= 2
		}

		reply, err := s.client.Send(ctx, url, payload)
		if err == nil {
			return &model.ChatResponse{
				Success:   true,
				Message:   reply.Message,
				SessionID: payload.SessionID,
				Photo:     reply.Photo,
			}
		}

		werr := asWebhookError(err)
		if !werr.Kind.Retryable() {
			return failure(werr.Kind, werr.Detail, payload.SessionID)
		}
		lastErr = werr
	}

	return &model.ChatResponse{
		Success:   false,
		Message:   model.RetryExhaustedMessage(s.chatCfg.MaxRetries),
		SessionID: payload.SessionID,
		Error:     lastErr.Detail,
	}
}

// SendFinance 金融演示代理：POST 404 时回退 GET，不做重试
// 返回响应和应向调用方传播的 HTTP 状态码
func (s *ChatService) SendFinance(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, int) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return failure(model.KindInvalidMessage, "message is empty after trimming", req.SessionID), http.StatusBadRequest
	}

	if utf8.RuneCountInString(message) > s.chatCfg.MaxMessageLength {
		resp := failure(model.KindMessageTooLong, "message exceeds max length", req.SessionID)
		resp.Message = model.TooLongMessage(s.chatCfg.MaxMessageLength)
		return resp, http.StatusBadRequest
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = id.NewFinanceSessionID()
	}
	userID := req.UserID
	if userID == "" {
		userID = id.NewFinanceUserID()
	}

	payload := &model.WebhookPayload{
		Message:   message,
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    s.webhookCfg.Source + ":finance",
	}

	log.Info().
		Str("url", s.webhookCfg.FinanceURL).
		Str("session_id", sessionID).
		Msg("金融代理转发到 n8n webhook")

	reply, err := s.client.SendWithFallback(ctx, s.webhookCfg.FinanceURL, payload)
	if err != nil {
		werr := asWebhookError(err)
		status := http.StatusInternalServerError
		if werr.Kind == model.KindServer && werr.Status != 0 {
			status = werr.Status
		}
		return failure(werr.Kind, werr.Detail, sessionID), status
	}

	return &model.ChatResponse{
		Success:   true,
		Message:   reply.Message,
		SessionID: sessionID,
		Photo:     reply.Photo,
	}, http.StatusOK
}

// Status 向通用 webhook 发送连接测试消息，探测 AI 服务可用性
func (s *ChatService) Status(ctx context.Context) *model.ServiceStatus {
	status := &model.ServiceStatus{
		Status:      model.StatusUnknown,
		Message:     "无法检测AI服务状态",
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}

	resp := s.send(ctx, &model.ChatRequest{
		Message:   "你好，这是一个连接测试",
		SessionID: "test_session",
		UserID:    "test_user",
	}, false)

	if resp.Success {
		status.Status = model.StatusOnline
		status.Message = "AI服务正常运行"
	} else {
		status.Status = model.StatusOffline
		status.Message = "AI服务暂时不可用"
	}
	return status
}

// checkSessionLimit 限制每会话消息数，Redis 异常时放行
func (s *ChatService) checkSessionLimit(ctx context.Context, sessionID string) *model.ChatResponse {
	if s.sessions == nil || s.chatCfg.MaxMessagesPerSession <= 0 {
		return nil
	}

	n, err := s.sessions.IncrMessages(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("会话计数失败，跳过限额检查")
		return nil
	}

	if n > int64(s.chatCfg.MaxMessagesPerSession) {
		return failure(model.KindSessionLimit, "session message limit reached", sessionID)
	}
	return nil
}

func failure(kind model.ErrorKind, detail, sessionID string) *model.ChatResponse {
	return &model.ChatResponse{
		Success:   false,
		Message:   kind.UserMessage(),
		SessionID: sessionID,
		Error:     detail,
	}
}

func asWebhookError(err error) *n8n.Error {
	var werr *n8n.Error
	if errors.As(err, &werr) {
		return werr
	}
	return &n8n.Error{Kind: model.KindUnknown, Detail: err.Error()}
}
