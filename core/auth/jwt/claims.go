package jwt

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Subject 签发令牌所需的用户信息
type Subject struct {
	ID           string
	Email        string
	TokenVersion int64
	Roles        []string
}

// Claims 访问令牌载荷
type Claims struct {
	Email        string   `json:"email"`
	TokenVersion int64    `json:"token_version"`
	Roles        []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID 即 sub
func (c *Claims) UserID() string {
	return c.Subject
}

// HasRole 判断是否持有角色
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}
