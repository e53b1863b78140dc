package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// suffix 取 UUID 去连字符后的前 n 位作为随机后缀
func suffix(n int) string {
	s := strings.ReplaceAll(uuid.New().String(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// NewSessionID 生成会话ID（时间戳 + 随机后缀）
func NewSessionID() string {
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix(9))
}

// NewUserID 生成用户ID（时间戳 + 随机后缀）
func NewUserID() string {
	return fmt.Sprintf("user_%d_%s", time.Now().UnixMilli(), suffix(9))
}

// NewFinanceSessionID 金融演示会话ID
func NewFinanceSessionID() string {
	return fmt.Sprintf("finance_%d", time.Now().UnixMilli())
}

// NewFinanceUserID 金融演示用户ID
func NewFinanceUserID() string {
	return fmt.Sprintf("finance_user_%s", suffix(6))
}
