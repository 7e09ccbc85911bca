package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/validator"
	"github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
)

// MsgInternal 非预期错误对外统一使用的消息
const MsgInternal = "Something went wrong"

// Response 统一响应信封，HTTP 状态码与 StatusCode 一致
//
//	{"success":true,"statusCode":200,"message":"Login successful","data":{...}}
type Response struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// JSON 写入信封，2xx 视为成功
func JSON(c *gin.Context, code int, message string, data any) {
	if c == nil {
		return
	}
	c.JSON(code, &Response{
		Success:    code >= 200 && code < 300,
		StatusCode: code,
		Message:    message,
		Data:       data,
	})
}

// Abort 写入失败信封并终止后续处理
func Abort(c *gin.Context, code int, message string) {
	JSON(c, code, message, nil)
	c.Abort()
}

// Error 将错误转换为信封
//
// 校验错误返回 400 及拼接后的字段消息；带 4xx 状态码的 *errors.Error 原样返回其消息；
// 其余错误记录日志后返回 500，不向客户端暴露细节。
func Error(c *gin.Context, err error) {
	var ve *validator.ValidationErrors
	if errors.As(err, &ve) {
		Abort(c, http.StatusBadRequest, strings.Join(ve.Messages(), ", "))
		return
	}

	if e := errors.FromError(err); e != nil && e.Code >= 400 && e.Code < 500 {
		Abort(c, e.Code, e.Message)
		return
	}

	_ = c.Error(err)
	event := log.G.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path)
	if errors.IsConfiguration(err) {
		event = event.Str("reason", errors.ReasonConfiguration)
	}
	event.Msg("request failed")
	Abort(c, http.StatusInternalServerError, MsgInternal)
}
