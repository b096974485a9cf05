package users

import (
	"strings"
	"time"
)

const (
	maxEmailLength       = 254
	maxDisplayNameLength = 50

	minPasswordLength = 8
	maxPasswordLength = 20
)

// User is the persisted account record. PasswordSalt and PasswordKey are
// always written together; IsActive=false marks a soft-deleted account that
// must never authenticate or appear in lookups outside this package.
type User struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null"`
	Email        string    `gorm:"column:email;size:254;not null;uniqueIndex"`
	PasswordSalt []byte    `gorm:"column:password_salt;not null"`
	PasswordKey  []byte    `gorm:"column:password_key;not null"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	DisplayName  string    `gorm:"column:display_name;size:50;not null"`
	CreationDate time.Time `gorm:"column:creation_date;autoCreateTime"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// NormalizeEmail lowers and trims an email address for storage and lookups.
// Comparison is case and surrounding-whitespace insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
