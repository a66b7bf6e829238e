package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// APIKey stores a hashed bearer credential owned by a user.
type APIKey struct {
	ID             snowflake.ID                `gorm:"primaryKey"`
	UserID         snowflake.ID                `gorm:"column:user_id;not null;index"`
	Name           string                      `gorm:"type:text;not null"`
	KeyPrefix      string                      `gorm:"column:key_prefix;type:text;not null"`
	KeyHash        string                      `gorm:"column:key_hash;type:varchar(64);not null;uniqueIndex"`
	Scopes         datatypes.JSONSlice[string] `gorm:"column:scopes;not null"`
	AllowedDomains datatypes.JSONSlice[string] `gorm:"column:allowed_domains"`
	AllowedIPs     datatypes.JSONSlice[string] `gorm:"column:allowed_ips"`
	ExpiresAt      *time.Time                  `gorm:"column:expires_at"`
	RevokedAt      *time.Time                  `gorm:"column:revoked_at;index"`
	LastUsedAt     *time.Time                  `gorm:"column:last_used_at"`
	CreatedAt      time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// Usable reports whether the key may authorize a request at now.
func (k *APIKey) Usable(now time.Time) bool {
	return !k.IsRevoked() && !k.IsExpired(now)
}
