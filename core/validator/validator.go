package validator

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Validator 校验器接口
type Validator interface {
	// Struct 校验结构体，失败时返回 *ValidationErrors
	Struct(s any) error
	// StructCtx 带上下文校验结构体
	StructCtx(ctx context.Context, s any) error
	// Engine 返回底层 validator 实例，用于注册自定义规则
	Engine() *validator.Validate
}

// Validate 全局校验器，配置加载与请求 DTO 共用
var Validate Validator = New()

// Option 校验器选项
type Option func(*validatorImpl)

// WithLanguage 设置错误消息语言（en / zh），默认 en
func WithLanguage(lang string) Option {
	return func(v *validatorImpl) {
		v.lang = lang
	}
}

type validatorImpl struct {
	engine *validator.Validate
	trans  ut.Translator
	lang   string
}

// New 创建校验器
// 字段名取自 json 标签，便于错误消息与请求体字段对应
func New(opts ...Option) Validator {
	v := &validatorImpl{
		engine: validator.New(validator.WithRequiredStructEnabled()),
		lang:   "en",
	}
	for _, opt := range opts {
		opt(v)
	}

	v.engine.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())
	switch v.lang {
	case "zh":
		v.trans, _ = uni.GetTranslator("zh")
		_ = zh_translations.RegisterDefaultTranslations(v.engine, v.trans)
	default:
		v.trans, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v.engine, v.trans)
	}
	return v
}

func (v *validatorImpl) Struct(s any) error {
	return v.StructCtx(context.Background(), s)
}

func (v *validatorImpl) StructCtx(ctx context.Context, s any) error {
	if s == nil {
		return errors.New("validator: target cannot be nil")
	}
	return v.translate(v.engine.StructCtx(ctx, s))
}

func (v *validatorImpl) Engine() *validator.Validate {
	return v.engine
}

func (v *validatorImpl) translate(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationErrors{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fe.Translate(v.trans),
		})
	}
	return out
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors 校验失败时返回的错误
type ValidationErrors struct {
	Fields []FieldError
}

func (e *ValidationErrors) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// Messages 返回所有字段的错误消息
func (e *ValidationErrors) Messages() []string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return msgs
}

// IsValidationError 判断是否为校验错误
func IsValidationError(err error) bool {
	var ve *ValidationErrors
	return errors.As(err, &ve)
}
