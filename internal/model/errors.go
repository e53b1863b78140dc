package model

import "fmt"

// ErrorKind 失败分类
// 每条失败路径最终都归入且仅归入一个分类
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindTimeout
	KindServer
	KindInvalidMessage
	KindMessageTooLong
	KindInvalidResponse
	KindEmptyResponse
	KindSessionLimit
)

// String 分类名（用于日志）
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindInvalidMessage:
		return "invalid-message"
	case KindMessageTooLong:
		return "message-too-long"
	case KindInvalidResponse:
		return "invalid-response"
	case KindEmptyResponse:
		return "empty-response"
	case KindSessionLimit:
		return "session-limit"
	default:
		return "unknown"
	}
}

// Retryable 仅网络/超时类失败视为瞬时，允许重试
func (k ErrorKind) Retryable() bool {
	return k == KindNetwork || k == KindTimeout
}

// 用户可见文案，固定表；原始错误细节不进这里
var userMessages = map[ErrorKind]string{
	KindNetwork:         "网络连接异常，请检查网络后重试",
	KindTimeout:         "请求超时，请稍后重试",
	KindServer:          "AI服务暂时繁忙，请稍后重试",
	KindInvalidMessage:  "消息内容不能为空",
	KindMessageTooLong:  "消息内容过长，请缩短后重试",
	KindInvalidResponse: "AI响应格式无效",
	KindEmptyResponse:   "服务器返回空响应",
	KindSessionLimit:    "当前会话消息数量已达上限，请开启新会话",
	KindUnknown:         "抱歉，AI服务暂时不可用，请稍后重试",
}

// UserMessage 返回分类对应的用户可见文案
func (k ErrorKind) UserMessage() string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	return userMessages[KindUnknown]
}

// TooLongMessage 超长消息文案（带上限）
func TooLongMessage(maxLen int) string {
	return fmt.Sprintf("消息内容过长，请控制在%d字符以内", maxLen)
}

// RetryExhaustedMessage 重试耗尽文案
func RetryExhaustedMessage(attempts int) string {
	return fmt.Sprintf("经过%d次尝试后仍然失败，请稍后重试", attempts)
}
