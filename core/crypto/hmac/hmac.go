package hmac

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptySecret      = errors.New("hmac: secret cannot be empty")
	ErrMalformedToken   = errors.New("hmac: malformed token")
	ErrExpired          = errors.New("hmac: signature expired")
	ErrFutureTimestamp  = errors.New("hmac: timestamp is in the future")
	ErrSignatureInvalid = errors.New("hmac: signature mismatch")
)

// SignResult 签名结果
type SignResult struct {
	Signature string
	Timestamp int64
}

// Token 编码为可放入 URL 的单个字符串
func (r *SignResult) Token() string {
	raw := strconv.FormatInt(r.Timestamp, 10) + "." + r.Signature
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseToken 解析 Token 生成的字符串
func ParseToken(token string) (*SignResult, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrMalformedToken
	}
	ts, sig, ok := strings.Cut(string(raw), ".")
	if !ok || sig == "" {
		return nil, ErrMalformedToken
	}
	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || timestamp <= 0 {
		return nil, ErrMalformedToken
	}
	return &SignResult{Signature: sig, Timestamp: timestamp}, nil
}

type options struct {
	payload    string
	expiration time.Duration
	now        func() time.Time
}

// Option 签名与验证选项，两端必须一致
type Option func(*options)

// WithPayload 绑定到签名的数据
func WithPayload(payload string) Option {
	return func(o *options) { o.payload = payload }
}

// WithExpiration 有效期，默认 5 分钟
func WithExpiration(d time.Duration) Option {
	return func(o *options) { o.expiration = d }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func build(opts []Option) *options {
	o := &options{expiration: 5 * time.Minute, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sign 生成 HMAC-SHA256 签名
func Sign(secret string, opts ...Option) (*SignResult, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	o := build(opts)
	ts := o.now().Unix()
	return &SignResult{Signature: signature(secret, ts, o.payload), Timestamp: ts}, nil
}

// Verify 验证签名与有效期
func Verify(secret, sig string, timestamp int64, opts ...Option) error {
	if secret == "" {
		return ErrEmptySecret
	}
	o := build(opts)

	elapsed := o.now().Unix() - timestamp
	if elapsed < 0 {
		return ErrFutureTimestamp
	}
	if elapsed > int64(o.expiration.Seconds()) {
		return ErrExpired
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrSignatureInvalid
	}
	want, _ := hex.DecodeString(signature(secret, timestamp, o.payload))
	if !hmac.Equal(got, want) {
		return ErrSignatureInvalid
	}
	return nil
}

// VerifyToken 解析并验证 Token 生成的字符串
func VerifyToken(secret, token string, opts ...Option) error {
	r, err := ParseToken(token)
	if err != nil {
		return err
	}
	return Verify(secret, r.Signature, r.Timestamp, opts...)
}

func signature(secret string, ts int64, payload string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte{'\n'})
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
