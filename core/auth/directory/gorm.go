package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kochabx/passport/core/crypto/hmac"
	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/core/util/id"
	kerrors "github.com/kochabx/passport/errors"
)

const (
	reasonIncorrectPassword = "Incorrect password."
	reasonInvalidToken      = "Invalid token."
)

// Config 用户目录配置
type Config struct {
	// ResetTokenSecret 重置令牌签名密钥
	ResetTokenSecret string         `mapstructure:"reset_token_secret"`
	ResetTokenTTL    time.Duration  `mapstructure:"reset_token_ttl" default:"24h"`
	BcryptCost       int            `mapstructure:"bcrypt_cost" default:"10"`
	PhoneRegion      string         `mapstructure:"phone_region" default:"US"`
	Password         PasswordPolicy `mapstructure:"password"`
}

// GormDirectory 基于 gorm 的用户目录
type GormDirectory struct {
	db  *gorm.DB
	cfg Config
	now func() time.Time
}

// Option GormDirectory 选项
type Option func(*GormDirectory)

// WithClock 替换时间源，影响重置令牌的签发与校验
func WithClock(now func() time.Time) Option {
	return func(d *GormDirectory) { d.now = now }
}

// NewGorm 创建用户目录
func NewGorm(db *gorm.DB, cfg Config, opts ...Option) (*GormDirectory, error) {
	if cfg.ResetTokenSecret == "" {
		return nil, kerrors.Configuration("directory: reset token secret is not configured")
	}
	if err := tag.ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	d := &GormDirectory{db: db, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Migrate 创建或更新表结构
func (d *GormDirectory) Migrate(ctx context.Context) error {
	return d.db.WithContext(ctx).AutoMigrate(&User{}, &Role{})
}

func (d *GormDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	return d.first(ctx, "email = ?", NormalizeEmail(email))
}

func (d *GormDirectory) FindByID(ctx context.Context, userID string) (*User, error) {
	return d.first(ctx, "id = ?", userID)
}

func (d *GormDirectory) first(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := d.db.WithContext(ctx).Where(query, arg).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *GormDirectory) Create(ctx context.Context, u *User, password string) error {
	reasons := d.cfg.Password.Check(password)
	phone, ok := NormalizePhone(u.Phone, d.cfg.PhoneRegion)
	if !ok {
		reasons = append(reasons, fmt.Sprintf("Phone number '%s' is invalid.", u.Phone))
	}
	if len(reasons) > 0 {
		return fail(reasons...)
	}

	hash, err := d.hash(password)
	if err != nil {
		return err
	}
	u.ID = id.Generate()
	u.Email = NormalizeEmail(u.Email)
	u.Phone = phone
	u.PasswordHash = hash
	u.SecurityStamp = id.Hex()
	u.Active = true
	if u.TokenVersion == 0 {
		u.TokenVersion = 1
	}

	err = d.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

func (d *GormDirectory) CheckPassword(_ context.Context, u *User, password string) bool {
	if u == nil || !u.Active {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (d *GormDirectory) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := d.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return fail(reasonIncorrectPassword)
	}
	return d.setPassword(ctx, u.ID, next)
}

// GeneratePasswordResetToken 令牌绑定用户 ID 与当前安全戳，改密后即失效
func (d *GormDirectory) GeneratePasswordResetToken(ctx context.Context, userID string) (string, error) {
	u, err := d.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	r, err := hmac.Sign(d.cfg.ResetTokenSecret, d.tokenOptions(u)...)
	if err != nil {
		return "", err
	}
	return r.Token(), nil
}

func (d *GormDirectory) ResetPassword(ctx context.Context, userID, token, next string) error {
	u, err := d.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := hmac.VerifyToken(d.cfg.ResetTokenSecret, token, d.tokenOptions(u)...); err != nil {
		return fail(reasonInvalidToken)
	}
	return d.setPassword(ctx, u.ID, next)
}

func (d *GormDirectory) tokenOptions(u *User) []hmac.Option {
	return []hmac.Option{
		hmac.WithPayload(u.ID + ":" + u.SecurityStamp),
		hmac.WithExpiration(d.cfg.ResetTokenTTL),
		hmac.WithClock(d.now),
	}
}

// setPassword 更新哈希并轮换安全戳
func (d *GormDirectory) setPassword(ctx context.Context, userID, password string) error {
	if reasons := d.cfg.Password.Check(password); len(reasons) > 0 {
		return fail(reasons...)
	}
	hash, err := d.hash(password)
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
		"password_hash":  hash,
		"security_stamp": id.Hex(),
	}).Error
}

func (d *GormDirectory) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), d.cfg.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (d *GormDirectory) AddRole(ctx context.Context, userID, role string) error {
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Role{UserID: userID, Name: role}).Error
}

func (d *GormDirectory) GetRoles(ctx context.Context, userID string) ([]string, error) {
	roles := []string{}
	err := d.db.WithContext(ctx).Model(&Role{}).
		Where("user_id = ?", userID).
		Order("name").
		Pluck("name", &roles).Error
	return roles, err
}

func (d *GormDirectory) IsEmailConfirmed(_ context.Context, u *User) bool {
	return u != nil && u.EmailConfirmed
}

func (d *GormDirectory) TokenVersion(ctx context.Context, userID string) (int64, error) {
	var versions []int64
	err := d.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Limit(1).Pluck("token_version", &versions).Error
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, ErrUserNotFound
	}
	return versions[0], nil
}

// IncrementTokenVersion 在数据库内原子自增，并发调用不会丢失更新
func (d *GormDirectory) IncrementTokenVersion(ctx context.Context, userID string) (int64, error) {
	var versions []int64
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&User{}).Where("id = ?", userID).
			UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return tx.Model(&User{}).Where("id = ?", userID).Pluck("token_version", &versions).Error
	})
	if err != nil || len(versions) == 0 {
		return 0, err
	}
	return versions[0], nil
}

var _ Directory = (*GormDirectory)(nil)
