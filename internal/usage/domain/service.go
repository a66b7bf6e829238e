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
	DefaultQueryLimit    = 50
	MaxQueryLimit        = 100
	DefaultActivityLimit = 30
	MaxActivityLimit     = 100
	UnknownKeyName       = "Unknown"
)

var (
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidKeyID = errors.New("invalid_key_id")
	ErrKeyNotFound  = errors.New("key_not_found")
)

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, entries []Entry) error
	Query(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter Filter, page pagination.Page) ([]Entry, error)
	Count(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter Filter) (int64, error)
	// DeleteBefore removes up to limit entries created before cutoff, oldest first.
	DeleteBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

type Service interface {
	// Query pages through one key's usage, newest first.
	Query(ctx context.Context, userID snowflake.ID, keyID string, filter Filter, page pagination.Page) (*QueryResult, error)
	// Activity lists recent usage across all of the user's keys.
	Activity(ctx context.Context, userID snowflake.ID, limit int) ([]ActivityEntry, error)
}
