package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/checkvibe/gatekeeper/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 250
)

type ListAuditLogRequest struct {
	pagination.Page
	Action     string     `form:"action"`
	TargetType string     `form:"target_type"`
	TargetID   string     `form:"target_id"`
	StartAt    *time.Time `form:"start_at" time_format:"2006-01-02T15:04:05Z07:00"`
	EndAt      *time.Time `form:"end_at" time_format:"2006-01-02T15:04:05Z07:00"`
}

type ListAuditLogResponse struct {
	AuditLogs []AuditLog `json:"audit_logs"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

type Service interface {
	// AuditLog persists entry. Secret looking metadata values are masked first.
	AuditLog(ctx context.Context, entry Entry) error
	List(ctx context.Context, userID snowflake.ID, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
