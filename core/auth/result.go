package auth

import (
	"net/http"
	"time"
)

// 对外消息
const (
	MsgEmailExists           = "Email already exists"
	MsgSignupSuccessful      = "Signup successful"
	MsgInvalidCredentials    = "Invalid credentials"
	MsgLoginSuccessful       = "Login successful"
	MsgMissingRefreshToken   = "Missing refresh token"
	MsgInvalidRefreshToken   = "Invalid refresh token"
	MsgTokenRefreshed        = "Token refreshed"
	MsgLoggedOut             = "Logged out successfully"
	MsgSessionNotFound       = "Session not found"
	MsgUserNotFound          = "User not found"
	MsgNotAuthenticated      = "Not authenticated"
	MsgPasswordChanged       = "Password changed successfully"
	MsgResetLinkSent         = "If the email exists, a reset link has been sent"
	MsgInvalidRequest        = "Invalid request"
	MsgPasswordResetDone     = "Password reset successful"
	MsgSessionsRetrieved     = "Sessions retrieved"
	msgSessionsRevokedFormat = "All sessions revoked (%d)"
)

// Result 用例结果，与 HTTP 响应信封同构
type Result[T any] struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       *T     `json:"data"`
}

// Empty 无数据的结果
type Empty struct{}

// OK 成功结果
func OK[T any](data *T, message string) *Result[T] {
	return &Result[T]{Success: true, StatusCode: http.StatusOK, Message: message, Data: data}
}

// Fail 预期内的失败结果
func Fail[T any](code int, message string) *Result[T] {
	return &Result[T]{StatusCode: code, Message: message}
}

// TokenPayload 访问令牌响应
type TokenPayload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
}

// SessionView 会话列表项
type SessionView struct {
	SessionID string    `json:"sessionId"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
