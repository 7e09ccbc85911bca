// Package handler 认证接口：请求解析、校验与用例结果的 HTTP 映射
package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/auth"
	"github.com/kochabx/passport/core/validator"
	khttp "github.com/kochabx/passport/transport/http"
)

const msgInvalidBody = "Invalid request body"

// Guards 路由使用的中间件，为空的项不挂载
type Guards struct {
	// Auth 访问令牌认证
	Auth gin.HandlerFunc
	// Admin 管理员角色检查，位于 Auth 之后
	Admin gin.HandlerFunc
	// RateLimit 匿名接口限流
	RateLimit gin.HandlerFunc
}

// AuthHandler 认证接口
type AuthHandler struct {
	svc           *auth.Service
	validate      validator.Validator
	secureCookies bool
}

// NewAuthHandler 创建认证接口，secureCookies 控制刷新令牌 cookie 的 Secure 属性
func NewAuthHandler(svc *auth.Service, secureCookies bool) *AuthHandler {
	return &AuthHandler{svc: svc, validate: validator.Validate, secureCookies: secureCookies}
}

// Register 在 r 下注册 /auth 路由组
func (h *AuthHandler) Register(r gin.IRouter, g Guards) {
	grp := r.Group("/auth")
	limited := chain(g.RateLimit)
	authed := chain(g.Auth)
	admin := chain(g.Auth, g.Admin)

	grp.POST("/signup", append(limited, h.Signup)...)
	grp.POST("/login", append(limited, h.Login)...)
	grp.POST("/refresh", append(limited, h.Refresh)...)
	grp.POST("/logout", h.Logout)
	grp.POST("/forgot-password", append(limited, h.ForgotPassword)...)
	grp.POST("/reset-password", append(limited, h.ResetPassword)...)
	grp.POST("/change-password", append(authed, h.ChangePassword)...)
	grp.GET("/sessions", append(authed, h.Sessions)...)
	grp.POST("/revoke-sessions/:userId", append(admin, h.RevokeUserSessions)...)
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, hf := range handlers {
		if hf != nil {
			out = append(out, hf)
		}
	}
	return slices.Clip(out)
}

type SignupRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required"`
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// Signup godoc
//
//	@Summary	Sign up a new user
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body	SignupRequest	true	"account"
//	@Success	200	{object}	auth.Result[auth.TokenPayload]
//	@Failure	400,409	{object}	khttp.Response
//	@Router		/api/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Signup(c.Request.Context(), h.requestContext(c), auth.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.PhoneNumber,
	})
	write(c, res, err)
}

// Login godoc
//
//	@Summary	Log in with email and password
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body	LoginRequest	true	"credentials"
//	@Success	200	{object}	auth.Result[auth.TokenPayload]
//	@Failure	401	{object}	khttp.Response
//	@Router		/api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.Login(c.Request.Context(), h.requestContext(c), auth.LoginInput{Email: req.Email, Password: req.Password})
	write(c, res, err)
}

// Refresh godoc
//
//	@Summary	Rotate the refresh token cookie and issue a new access token
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	auth.Result[auth.TokenPayload]
//	@Failure	401	{object}	khttp.Response
//	@Router		/api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	res, err := h.svc.RefreshToken(c.Request.Context(), h.requestContext(c))
	write(c, res, err)
}

// Logout godoc
//
//	@Summary	End the current session
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	khttp.Response
//	@Failure	404	{object}	khttp.Response
//	@Router		/api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	res, err := h.svc.Logout(c.Request.Context(), h.requestContext(c))
	write(c, res, err)
}

// ChangePassword godoc
//
//	@Summary	Change the password of the current user
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body	ChangePasswordRequest	true	"passwords"
//	@Success	200	{object}	khttp.Response
//	@Failure	400,401,404	{object}	khttp.Response
//	@Router		/api/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.ChangePassword(c.Request.Context(), h.requestContext(c), auth.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	write(c, res, err)
}

// ForgotPassword godoc
//
//	@Summary	Send a password reset link
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body	ForgotPasswordRequest	true	"email"
//	@Success	200	{object}	khttp.Response
//	@Router		/api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.ForgotPassword(c.Request.Context(), h.requestContext(c), req.Email)
	write(c, res, err)
}

// ResetPassword godoc
//
//	@Summary	Reset the password with an emailed token
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body	ResetPasswordRequest	true	"reset"
//	@Success	200	{object}	khttp.Response
//	@Failure	400	{object}	khttp.Response
//	@Router		/api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.ResetPassword(c.Request.Context(), h.requestContext(c), auth.ResetPasswordInput{
		Email:       req.Email,
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	write(c, res, err)
}

// Sessions godoc
//
//	@Summary	List active sessions of the current user
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	auth.Result[[]auth.SessionView]
//	@Failure	401	{object}	khttp.Response
//	@Router		/api/auth/sessions [get]
func (h *AuthHandler) Sessions(c *gin.Context) {
	res, err := h.svc.ListSessions(c.Request.Context(), h.requestContext(c))
	write(c, res, err)
}

// RevokeUserSessions godoc
//
//	@Summary	Revoke every session of a user
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Param		userId	path	string	true	"user id"
//	@Success	200	{object}	khttp.Response
//	@Failure	401,403,404	{object}	khttp.Response
//	@Router		/api/auth/revoke-sessions/{userId} [post]
func (h *AuthHandler) RevokeUserSessions(c *gin.Context) {
	res, err := h.svc.RevokeUserSessions(c.Request.Context(), h.requestContext(c), c.Param("userId"))
	write(c, res, err)
}

// bind 解析 JSON 请求体并校验，失败时已写入 400
func (h *AuthHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		khttp.Abort(c, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	if err := h.validate.StructCtx(c.Request.Context(), req); err != nil {
		khttp.Error(c, err)
		return false
	}
	return true
}

// write 用例结果原样作为信封输出，非预期错误统一为 500
func write[T any](c *gin.Context, res *auth.Result[T], err error) {
	if err != nil {
		if errors.Is(c.Request.Context().Err(), context.Canceled) {
			c.Abort()
			return
		}
		khttp.Error(c, err)
		return
	}
	c.JSON(res.StatusCode, res)
}
