// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// MaxEmailLength bounds the indexed email column.
const MaxEmailLength = 320

// User represents a dashboard account. Plan selects the rate limit tier.
type User struct {
	ID             snowflake.ID                `gorm:"primaryKey"`
	Email          string                      `gorm:"column:email;type:varchar(320);not null;uniqueIndex"`
	PasswordHash   string                      `gorm:"column:password_hash;type:text;not null"`
	Plan           string                      `gorm:"column:plan;type:text;not null;default:'none'"`
	AllowedDomains datatypes.JSONSlice[string] `gorm:"column:allowed_domains"`
	CreatedAt      time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:varchar(64);not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// UserView is the client-facing profile; it never carries the password hash.
type UserView struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Plan           string    `json:"plan"`
	AllowedDomains []string  `json:"allowed_domains"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) View() UserView {
	domains := []string(u.AllowedDomains)
	if domains == nil {
		domains = []string{}
	}
	return UserView{
		ID:             u.ID.String(),
		Email:          u.Email,
		Plan:           u.Plan,
		AllowedDomains: domains,
		CreatedAt:      u.CreatedAt,
	}
}
