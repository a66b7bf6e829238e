package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	MaxActiveKeysPerUser = 10
	MaxNameLength        = 64
	DefaultName          = "Default"
	DefaultExpiryDays    = 90
	MaxExpiryDays        = 365
)

type Service interface {
	List(ctx context.Context, userID snowflake.ID) ([]Response, error)
	Get(ctx context.Context, userID snowflake.ID, keyID string) (*Response, error)
	Create(ctx context.Context, userID snowflake.ID, req CreateRequest) (*SecretResponse, error)
	Update(ctx context.Context, userID snowflake.ID, keyID string, req UpdateRequest) (*Response, error)
	Revoke(ctx context.Context, userID snowflake.ID, keyID string) error
	// Verify resolves a presented plaintext key to a usable key or ErrInvalidKey.
	Verify(ctx context.Context, plain string) (*APIKey, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*APIKey, error)
	FindActiveByHash(ctx context.Context, db *gorm.DB, hash string, now time.Time) (*APIKey, error)
	List(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]APIKey, error)
	ListByIDs(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID) ([]APIKey, error)
	CountActive(ctx context.Context, db *gorm.DB, userID snowflake.ID, now time.Time) (int64, error)
	UpdateSettings(ctx context.Context, db *gorm.DB, key *APIKey) (bool, error)
	Revoke(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, at time.Time) (bool, error)
	TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}

type CreateRequest struct {
	Name           string   `json:"name"`
	Scopes         []string `json:"scopes"`
	AllowedDomains []string `json:"allowed_domains"`
	AllowedIPs     []string `json:"allowed_ips"`
	ExpiresInDays  *int     `json:"expires_in_days"`
}

// ListPatch distinguishes an absent field from an explicit null that clears the list.
type ListPatch struct {
	Set    bool
	Values []string
}

func (p *ListPatch) UnmarshalJSON(data []byte) error {
	p.Set = true
	if string(data) == "null" {
		p.Values = nil
		return nil
	}
	return json.Unmarshal(data, &p.Values)
}

type UpdateRequest struct {
	Name           *string   `json:"name"`
	Scopes         *[]string `json:"scopes"`
	AllowedDomains ListPatch `json:"allowed_domains"`
	AllowedIPs     ListPatch `json:"allowed_ips"`
}

func (r UpdateRequest) IsEmpty() bool {
	return r.Name == nil && r.Scopes == nil && !r.AllowedDomains.Set && !r.AllowedIPs.Set
}

type Response struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	KeyPrefix      string     `json:"key_prefix"`
	Scopes         []string   `json:"scopes"`
	AllowedDomains []string   `json:"allowed_domains"`
	AllowedIPs     []string   `json:"allowed_ips"`
	ExpiresAt      *time.Time `json:"expires_at"`
	RevokedAt      *time.Time `json:"revoked_at"`
	LastUsedAt     *time.Time `json:"last_used_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SecretResponse carries the plaintext key; it is returned only at creation.
type SecretResponse struct {
	Response
	Key string `json:"key"`
}

var (
	ErrInvalidUser           = errors.New("invalid_user")
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidKeyID          = errors.New("invalid_key_id")
	ErrInvalidAllowedDomains = errors.New("invalid_allowed_domains")
	ErrInvalidAllowedIPs     = errors.New("invalid_allowed_ips")
	ErrInvalidExpiry         = errors.New("invalid_expiry")
	ErrKeyLimitReached       = errors.New("key_limit_reached")
	ErrNoUpdates             = errors.New("no_updates")
	ErrNotFound              = errors.New("not_found")
	ErrInvalidKey            = errors.New("invalid_api_key")
)
