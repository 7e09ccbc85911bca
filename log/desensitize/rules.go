package desensitize

import (
	"fmt"
	"regexp"
	"sync/atomic"
)

// Rule 脱敏规则
type Rule interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)
	Process(s string) string
}

type toggle struct {
	disabled atomic.Bool
}

func (t *toggle) Enabled() bool           { return !t.disabled.Load() }
func (t *toggle) SetEnabled(enabled bool) { t.disabled.Store(!enabled) }

// ContentRule 按正则匹配整行内容替换
type ContentRule struct {
	toggle
	name        string
	pattern     *regexp.Regexp
	replacement string
}

// NewContentRule 创建内容规则，replacement 支持 $1 形式的分组引用
func NewContentRule(name, pattern, replacement string) (*ContentRule, error) {
	if name == "" || pattern == "" {
		return nil, fmt.Errorf("desensitize: name and pattern are required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("desensitize: invalid pattern %q: %w", pattern, err)
	}
	return &ContentRule{name: name, pattern: re, replacement: replacement}, nil
}

// MustNewContentRule 同 NewContentRule，失败时 panic
func MustNewContentRule(name, pattern, replacement string) *ContentRule {
	r, err := NewContentRule(name, pattern, replacement)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *ContentRule) Name() string { return r.name }

func (r *ContentRule) Process(s string) string {
	if !r.Enabled() {
		return s
	}
	return r.pattern.ReplaceAllString(s, r.replacement)
}

// FieldRule 按 JSON 字段名整体替换字段值
type FieldRule struct {
	toggle
	name        string
	field       string
	replacement string
	pattern     *regexp.Regexp
}

// NewFieldRule 创建字段规则，匹配 "field":"value" 形式
func NewFieldRule(name, field, replacement string) (*FieldRule, error) {
	if name == "" || field == "" {
		return nil, fmt.Errorf("desensitize: name and field are required")
	}
	re, err := regexp.Compile(fmt.Sprintf(`"%s"\s*:\s*"(?:[^"\\]|\\.)*"`, regexp.QuoteMeta(field)))
	if err != nil {
		return nil, err
	}
	return &FieldRule{name: name, field: field, replacement: replacement, pattern: re}, nil
}

// MustNewFieldRule 同 NewFieldRule，失败时 panic
func MustNewFieldRule(name, field, replacement string) *FieldRule {
	r, err := NewFieldRule(name, field, replacement)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *FieldRule) Name() string { return r.name }

func (r *FieldRule) Process(s string) string {
	if !r.Enabled() {
		return s
	}
	return r.pattern.ReplaceAllLiteralString(s, fmt.Sprintf(`"%s":"%s"`, r.field, r.replacement))
}

const mask = "******"

// 认证相关的内置规则
var (
	PasswordRule        = MustNewFieldRule("password", "password", mask)
	CurrentPasswordRule = MustNewFieldRule("currentPassword", "currentPassword", mask)
	NewPasswordRule     = MustNewFieldRule("newPassword", "newPassword", mask)
	TokenRule           = MustNewFieldRule("token", "token", mask)
	RefreshTokenRule    = MustNewFieldRule("refreshToken", "refresh_token", mask)
	SecretRule          = MustNewFieldRule("secret", "secret", mask)

	// BearerRule 处理 Authorization 头 (Bearer eyJ... -> Bearer ******)
	BearerRule = MustNewContentRule("bearer", `(Bearer\s+)[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]*`, "${1}"+mask)

	// ResetLinkRule 隐藏重置链接中的一次性令牌
	ResetLinkRule = MustNewContentRule("resetLink", `([?&]token=)[^&"\s]+`, "${1}"+mask)
)

// BuiltinRules 返回全部内置规则
func BuiltinRules() []Rule {
	return []Rule{
		PasswordRule,
		CurrentPasswordRule,
		NewPasswordRule,
		TokenRule,
		RefreshTokenRule,
		SecretRule,
		BearerRule,
		ResetLinkRule,
	}
}
