package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/checkvibe/gatekeeper/internal/apikey/domain"
	"gorm.io/gorm"
)

const keyColumns = `id, user_id, name, key_prefix, key_hash, scopes, allowed_domains, allowed_ips,
	expires_at, revoked_at, last_used_at, created_at, updated_at`

type repo struct{}

func Provide() apikeydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO api_keys (id, user_id, name, key_prefix, key_hash, scopes, allowed_domains, allowed_ips,
			expires_at, revoked_at, last_used_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID,
		key.UserID,
		key.Name,
		key.KeyPrefix,
		key.KeyHash,
		key.Scopes,
		key.AllowedDomains,
		key.AllowedIPs,
		key.ExpiresAt,
		key.RevokedAt,
		key.LastUsedAt,
		key.CreatedAt,
		key.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT `+keyColumns+` FROM api_keys WHERE id = ? AND user_id = ?`,
		id,
		userID,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

// FindActiveByHash returns the non-revoked key with the given hash, or nil
// when none exists or it has expired at now.
func (r *repo) FindActiveByHash(ctx context.Context, db *gorm.DB, hash string, now time.Time) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT `+keyColumns+` FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL`,
		hash,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 || key.IsExpired(now) {
		return nil, nil
	}
	return &key, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]apikeydomain.APIKey, error) {
	var keys []apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT `+keyColumns+` FROM api_keys WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	).Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *repo) ListByIDs(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID) ([]apikeydomain.APIKey, error) {
	if len(ids) == 0 {
		return []apikeydomain.APIKey{}, nil
	}
	var keys []apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT `+keyColumns+` FROM api_keys WHERE user_id = ? AND id IN ?`,
		userID,
		ids,
	).Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// CountActive counts keys that are neither revoked nor expired at now.
func (r *repo) CountActive(ctx context.Context, db *gorm.DB, userID snowflake.ID, now time.Time) (int64, error) {
	var keys []apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT id, expires_at FROM api_keys WHERE user_id = ? AND revoked_at IS NULL`,
		userID,
	).Scan(&keys).Error
	if err != nil {
		return 0, err
	}
	var count int64
	for i := range keys {
		if !keys[i].IsExpired(now) {
			count++
		}
	}
	return count, nil
}

func (r *repo) UpdateSettings(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE api_keys
		 SET name = ?, scopes = ?, allowed_domains = ?, allowed_ips = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND revoked_at IS NULL`,
		key.Name,
		key.Scopes,
		key.AllowedDomains,
		key.AllowedIPs,
		key.UpdatedAt,
		key.ID,
		key.UserID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Revoke(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE api_keys SET revoked_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND revoked_at IS NULL`,
		at,
		at,
		id,
		userID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`,
		at,
		id,
	).Error
}
