package id

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// Generate 生成 UUID，用于用户 ID、jti 与任务 ID
func Generate() string {
	return uuid.New().String()
}

// Hex 生成 128 位随机数的十六进制表示，用于会话 ID
func Hex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Token 生成 n 字节随机数的 base64url 编码（无填充）
func Token(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
