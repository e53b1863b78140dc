package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Log     LogConfig     `mapstructure:"log"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// WebhookConfig n8n webhook 配置
type WebhookConfig struct {
	URL        string `mapstructure:"url"`         // 通用聊天 webhook（首页）
	FinanceURL string `mapstructure:"finance_url"` // 金融AI演示专用 webhook
	UserAgent  string `mapstructure:"user_agent"`
	Source     string `mapstructure:"source"` // 下游按 source 区分渠道路由
}

// ChatConfig 聊天管线配置
type ChatConfig struct {
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	MaxRetries            int           `mapstructure:"max_retries"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
	MaxMessageLength      int           `mapstructure:"max_message_length"`
	MaxMessagesPerSession int           `mapstructure:"max_messages_per_session"`
	SessionTTL            time.Duration `mapstructure:"session_ttl"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// RedisConfig Redis 配置（会话消息计数，可选）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Webhook.URL == "" {
		return errors.New("webhook url is required")
	}

	if c.Chat.RequestTimeout < time.Second {
		return fmt.Errorf("chat request_timeout too small: %s", c.Chat.RequestTimeout)
	}

	if c.Chat.MaxMessageLength < 1 {
		return errors.New("chat max_message_length must be positive")
	}

	if c.Chat.MaxRetries < 1 {
		return errors.New("chat max_retries must be at least 1")
	}

	return nil
}
