package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAPIKey ActorType = "api_key"
	ActorTypeSystem ActorType = "system"
)

const (
	ActionLogin          = "auth.login"
	ActionLoginFailed    = "auth.login_failed"
	ActionLogout         = "auth.logout"
	ActionAPIKeyCreated  = "api_key.created"
	ActionAPIKeyUpdated  = "api_key.updated"
	ActionAPIKeyRevoked  = "api_key.revoked"
	ActionTargetRejected = "target.rejected"
)

const (
	TargetTypeUser   = "user"
	TargetTypeAPIKey = "api_key"
	TargetTypeURL    = "url"
)

// AuditLog is an append-only record of a security relevant action taken on
// behalf of a user.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID     *snowflake.ID     `gorm:"column:user_id;index:idx_audit_user_created,priority:1" json:"user_id,omitempty"`
	ActorType  string            `gorm:"column:actor_type;type:text;not null" json:"actor_type"`
	ActorID    *string           `gorm:"column:actor_id;type:text" json:"actor_id,omitempty"`
	Action     string            `gorm:"column:action;type:text;not null" json:"action"`
	TargetType string            `gorm:"column:target_type;type:text;not null" json:"target_type"`
	TargetID   *string           `gorm:"column:target_id;type:text" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	IPAddress  *string           `gorm:"column:ip_address;type:text" json:"ip_address,omitempty"`
	UserAgent  *string           `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"column:created_at;not null;index:idx_audit_user_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// Entry describes an action to audit. Actor, IP and user agent fall back to
// the request context when left empty.
type Entry struct {
	UserID     snowflake.ID
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
}

type ListFilter struct {
	UserID     snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
	Offset     int
}
