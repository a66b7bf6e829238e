package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/checkvibe/gatekeeper/internal/usage/domain"
	"github.com/checkvibe/gatekeeper/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, entries []usagedomain.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(entries)*8)
	)
	sb.WriteString(`INSERT INTO api_key_usage_log (id, key_id, user_id, endpoint, method, ip_address, status_code, created_at) VALUES `)
	for i, entry := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			entry.ID,
			entry.KeyID,
			entry.UserID,
			entry.Endpoint,
			entry.Method,
			entry.IPAddress,
			entry.StatusCode,
			entry.CreatedAt,
		)
	}
	return db.WithContext(ctx).Exec(sb.String(), args...).Error
}

func (r *repo) Query(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter usagedomain.Filter, page pagination.Page) ([]usagedomain.Entry, error) {
	where, args := buildWhere(userID, filter)
	args = append(args, page.Limit, page.Offset)

	var entries []usagedomain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT id, key_id, user_id, endpoint, method, ip_address, status_code, created_at
		 FROM api_key_usage_log WHERE `+where+`
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		args...,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter usagedomain.Filter) (int64, error) {
	where, args := buildWhere(userID, filter)

	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM api_key_usage_log WHERE `+where,
		args...,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) DeleteBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}

	// Ids are selected first; MySQL rejects LIMIT inside an IN subquery on the
	// table being deleted from.
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM api_key_usage_log WHERE created_at < ? ORDER BY created_at, id LIMIT ?`,
		cutoff.UTC(), limit,
	).Scan(&ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := db.WithContext(ctx).Exec(`DELETE FROM api_key_usage_log WHERE id IN ?`, ids)
	return result.RowsAffected, result.Error
}

func buildWhere(userID snowflake.ID, filter usagedomain.Filter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}

	if filter.KeyID != 0 {
		clauses = append(clauses, "key_id = ?")
		args = append(args, filter.KeyID)
	}
	if method := strings.ToUpper(strings.TrimSpace(filter.Method)); method != "" {
		clauses = append(clauses, "method = ?")
		args = append(args, method)
	}
	if filter.StatusCode != 0 {
		clauses = append(clauses, "status_code = ?")
		args = append(args, filter.StatusCode)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if filter.Until != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, filter.Until.UTC())
	}
	return strings.Join(clauses, " AND "), args
}
