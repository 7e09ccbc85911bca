package directory

import (
	"fmt"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// PasswordPolicy 密码复杂度要求
type PasswordPolicy struct {
	MinLength      int  `mapstructure:"min_length" default:"8"`
	RequireUpper   bool `mapstructure:"require_upper" default:"true"`
	RequireLower   bool `mapstructure:"require_lower" default:"true"`
	RequireDigit   bool `mapstructure:"require_digit" default:"true"`
	RequireSpecial bool `mapstructure:"require_special" default:"true"`
}

// Check 返回所有违反项，满足时返回 nil
func (p PasswordPolicy) Check(password string) []string {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsNumber(r):
			special = true
		}
	}

	var reasons []string
	if len([]rune(password)) < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("Passwords must be at least %d characters.", p.MinLength))
	}
	if p.RequireSpecial && !special {
		reasons = append(reasons, "Passwords must have at least one non alphanumeric character.")
	}
	if p.RequireDigit && !digit {
		reasons = append(reasons, "Passwords must have at least one digit ('0'-'9').")
	}
	if p.RequireLower && !lower {
		reasons = append(reasons, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if p.RequireUpper && !upper {
		reasons = append(reasons, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	return reasons
}

// NormalizePhone 解析号码并格式化为 E.164，空字符串视为合法
func NormalizePhone(raw, region string) (string, bool) {
	if raw == "" {
		return "", true
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}
