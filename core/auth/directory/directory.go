// Package directory 用户目录：账号、密码、角色与令牌版本
package directory

import (
	"context"
	"errors"
	"strings"
	"time"
)

// 内置角色
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

var (
	ErrUserNotFound = errors.New("directory: user not found")
	ErrEmailTaken   = errors.New("directory: email already exists")
)

// User 用户账号
type User struct {
	ID             string `gorm:"primaryKey;size:36"`
	Email          string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash   string `gorm:"size:72;not null"`
	FirstName      string `gorm:"size:100"`
	LastName       string `gorm:"size:100"`
	Phone          string `gorm:"size:32"`
	EmailConfirmed bool
	TokenVersion   int64  `gorm:"not null;default:1"`
	SecurityStamp  string `gorm:"size:32;not null"`
	Active         bool   `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Role 用户角色，(user_id, name) 唯一
type Role struct {
	UserID string `gorm:"primaryKey;size:36"`
	Name   string `gorm:"primaryKey;size:32"`
}

func (Role) TableName() string { return "user_roles" }

// Failure 业务校验失败，Reasons 面向最终用户
type Failure struct {
	Reasons []string
}

func (f *Failure) Error() string {
	return strings.Join(f.Reasons, ", ")
}

func fail(reasons ...string) *Failure {
	return &Failure{Reasons: reasons}
}

// AsFailure 提取 Failure
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

// VersionSource 令牌版本的唯一来源
type VersionSource interface {
	// TokenVersion 返回当前版本，用户不存在返回 ErrUserNotFound
	TokenVersion(ctx context.Context, userID string) (int64, error)
	// IncrementTokenVersion 版本加一并返回新值
	IncrementTokenVersion(ctx context.Context, userID string) (int64, error)
}

// Directory 用户目录
//
// 查找类方法在用户不存在时返回 ErrUserNotFound；
// 密码策略、手机号、旧密码或重置令牌不合法时返回 *Failure。
type Directory interface {
	VersionSource

	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	// Create 写入用户并设置 ID、密码哈希与安全戳
	Create(ctx context.Context, u *User, password string) error
	CheckPassword(ctx context.Context, u *User, password string) bool
	ChangePassword(ctx context.Context, id, current, next string) error
	GeneratePasswordResetToken(ctx context.Context, id string) (string, error)
	ResetPassword(ctx context.Context, id, token, next string) error
	AddRole(ctx context.Context, id, role string) error
	GetRoles(ctx context.Context, id string) ([]string, error)
	IsEmailConfirmed(ctx context.Context, u *User) bool
}

// NormalizeEmail 邮箱统一小写并去除空白
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
