package jwt

import (
	"errors"

	kerrors "github.com/kochabx/passport/errors"
)

var (
	ErrInvalidToken = errors.New("jwt: invalid token")
	ErrExpiredToken = errors.New("jwt: token expired")

	// ErrEmptySecret 部署缺少签名密钥
	ErrEmptySecret = kerrors.Configuration("jwt: secret cannot be empty")
)
