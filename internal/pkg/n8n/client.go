package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"lightcore/internal/model"
)

// Error webhook 调用的类型化错误
// Kind 决定上层是否重试；Detail 仅用于日志和响应 error 字段
type Error struct {
	Kind   model.ErrorKind
	Detail string
	Status int // 非 2xx 时的 HTTP 状态码
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Reply 归一化后的 webhook 响应
type Reply struct {
	Message string
	Photo   string
}

// Client n8n webhook 客户端
// 每次调用以 context 超时为唯一取消点，超时后丢弃在途请求的结果
type Client struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

// NewClient 创建 webhook 客户端
func NewClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		// 不设置 http.Client 自身的 Timeout，统一由每次调用的 context deadline 控制
		httpClient: &http.Client{},
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Send 以 POST 调用 webhook 并归一化响应
func (c *Client) Send(ctx context.Context, webhookURL string, payload *model.WebhookPayload) (*Reply, error) {
	raw, err := c.roundTrip(ctx, http.MethodPost, webhookURL, payload)
	if err != nil {
		return nil, err
	}
	return normalize(raw)
}

// SendWithFallback POST 调用 webhook，404 时以查询参数编码回退到 GET 一次
// 兼容上游端点在 POST/GET 模式之间切换
func (c *Client) SendWithFallback(ctx context.Context, webhookURL string, payload *model.WebhookPayload) (*Reply, error) {
	raw, err := c.roundTrip(ctx, http.MethodPost, webhookURL, payload)

	var werr *Error
	if errors.As(err, &werr) && werr.Status == http.StatusNotFound {
		getURL := queryURL(webhookURL, payload)
		log.Warn().Str("url", getURL).Msg("webhook POST 返回 404，回退到 GET")
		raw, err = c.roundTrip(ctx, http.MethodGet, getURL, nil)
	}

	if err != nil {
		return nil, err
	}
	return normalize(raw)
}

// roundTrip 执行一次带超时的 HTTP 调用，返回原始响应体或类型化错误
func (c *Client) roundTrip(ctx context.Context, method, reqURL string, payload *model.WebhookPayload) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Kind: model.KindUnknown, Detail: fmt.Sprintf("marshal payload: %v", err)}
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, &Error{Kind: model.KindUnknown, Detail: fmt.Sprintf("create request: %v", err)}
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Int("status", resp.StatusCode).
			Str("url", reqURL).
			Str("body", string(raw)).
			Msg("webhook 响应错误")

		return nil, &Error{
			Kind:   model.KindServer,
			Status: resp.StatusCode,
			Detail: fmt.Sprintf("服务器响应错误 (%d): %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	return raw, nil
}

// classifyTransport 区分超时与连接级失败
func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: model.KindTimeout, Detail: err.Error()}
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &Error{Kind: model.KindTimeout, Detail: err.Error()}
	}

	return &Error{Kind: model.KindNetwork, Detail: err.Error()}
}

// queryURL 将 payload 编码为查询参数（GET 回退）
func queryURL(webhookURL string, payload *model.WebhookPayload) string {
	q := url.Values{}
	q.Set("message", payload.Message)
	q.Set("sessionId", payload.SessionID)
	q.Set("userId", payload.UserID)
	q.Set("timestamp", payload.Timestamp)
	q.Set("source", payload.Source)

	sep := "?"
	if strings.Contains(webhookURL, "?") {
		sep = "&"
	}
	return webhookURL + sep + q.Encode()
}

// imageURLPattern 匹配消息文本中以图片扩展名结尾的链接（尽力而为）
var imageURLPattern = regexp.MustCompile(`(?i)https?://[\w\-./%]+\.(?:png|jpg|jpeg|gif)(?:\?[\w=&%.-]*)?`)

// normalize 从不稳定的上游响应中提取展示消息和可选图片URL
// 依序尝试：裸字符串；对象字段 output/message/response/text/content；整体序列化兜底
func normalize(raw []byte) (*Reply, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &Error{Kind: model.KindEmptyResponse, Detail: "服务器返回空响应"}
	}

	var message, photo string

	var data any
	if err := json.Unmarshal(trimmed, &data); err != nil {
		// 非 JSON 响应按纯文本处理
		message = string(trimmed)
	} else {
		switch v := data.(type) {
		case string:
			message = v
		case map[string]any:
			message = lo.CoalesceOrEmpty(
				stringField(v, "output"),
				stringField(v, "message"),
				stringField(v, "response"),
				stringField(v, "text"),
				stringField(v, "content"),
			)
			if message == "" {
				// 没有明确的消息字段时，整个响应作为消息返回
				message = string(trimmed)
			}
			photo = lo.CoalesceOrEmpty(
				stringField(v, "photo"),
				stringField(v, "image"),
				stringField(v, "picture"),
			)
		default:
			message = string(trimmed)
		}
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &Error{Kind: model.KindInvalidResponse, Detail: "响应中没有可用的消息内容"}
	}

	if photo == "" {
		photo = imageURLPattern.FindString(message)
	}

	return &Reply{Message: message, Photo: photo}, nil
}

// stringField 取对象的字符串字段，字段缺失或非字符串时返回空串
func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
