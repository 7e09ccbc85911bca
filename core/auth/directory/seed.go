package directory

import (
	"context"
	"errors"

	"github.com/kochabx/passport/log"
)

// AdminConfig 启动时创建的管理员账号，Email 为空时跳过
type AdminConfig struct {
	Email     string `mapstructure:"email"`
	Password  string `mapstructure:"password"`
	FirstName string `mapstructure:"first_name" default:"System"`
	LastName  string `mapstructure:"last_name" default:"Administrator"`
}

// Seed 管理员不存在时创建，邮箱视为已确认，授予 ADMIN 与 USER
func Seed(ctx context.Context, d Directory, admin AdminConfig) error {
	if admin.Email == "" {
		return nil
	}

	u, err := d.FindByEmail(ctx, admin.Email)
	switch {
	case err == nil:
		log.Debug().Str("user_id", u.ID).Msg("admin user already exists")
		return nil
	case !errors.Is(err, ErrUserNotFound):
		return err
	}

	u = &User{
		Email:          admin.Email,
		FirstName:      admin.FirstName,
		LastName:       admin.LastName,
		EmailConfirmed: true,
	}
	if err := d.Create(ctx, u, admin.Password); err != nil {
		return err
	}
	for _, role := range []string{RoleAdmin, RoleUser} {
		if err := d.AddRole(ctx, u.ID, role); err != nil {
			return err
		}
	}

	log.Info().Str("user_id", u.ID).Msg("admin user created")
	return nil
}
