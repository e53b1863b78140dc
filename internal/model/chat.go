package model

// ChatRequest 对话请求
// SessionID/UserID 缺省时由服务端生成
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// ChatResponse 对话响应
// Message 始终为可直接展示的文案；技术细节只进 Error 字段
type ChatResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
	Photo     string `json:"photo,omitempty"` // 可选的图片URL（用于金融AI演示返回）
}

// WebhookPayload 转发到 n8n webhook 的请求体
type WebhookPayload struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Timestamp string `json:"timestamp"` // ISO-8601
	Source    string `json:"source"`
}

// ServiceStatus AI 服务状态
type ServiceStatus struct {
	Status      string `json:"status"` // online/offline/unknown
	Message     string `json:"message"`
	LastChecked string `json:"lastChecked"`
}

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)
