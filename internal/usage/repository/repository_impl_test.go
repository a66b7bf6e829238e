package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/checkvibe/gatekeeper/internal/usage/domain"
	"github.com/checkvibe/gatekeeper/pkg/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedEntries(t *testing.T, conn *gorm.DB, at map[snowflake.ID]time.Time) {
	t.Helper()
	entries := make([]usagedomain.Entry, 0, len(at))
	for id, createdAt := range at {
		entries = append(entries, usagedomain.Entry{
			ID: id, KeyID: 1, UserID: 1, Endpoint: "/api/keys", Method: "GET", StatusCode: 200, CreatedAt: createdAt,
		})
	}
	require.NoError(t, Provide().InsertBatch(context.Background(), conn, entries))
}

func remainingIDs(t *testing.T, conn *gorm.DB) []snowflake.ID {
	t.Helper()
	var ids []snowflake.ID
	require.NoError(t, conn.Raw(`SELECT id FROM api_key_usage_log ORDER BY id`).Scan(&ids).Error)
	return ids
}

func TestDeleteBeforeRemovesOldestBatch(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&usagedomain.Entry{}))

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedEntries(t, conn, map[snowflake.ID]time.Time{
		1: cutoff.Add(-3 * time.Hour),
		2: cutoff.Add(-1 * time.Hour),
		3: cutoff.Add(-2 * time.Hour),
		4: cutoff,
		5: cutoff.Add(time.Hour),
	})

	repo := Provide()
	ctx := context.Background()

	deleted, err := repo.DeleteBefore(ctx, conn, cutoff, 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)
	require.Equal(t, []snowflake.ID{2, 4, 5}, remainingIDs(t, conn))

	deleted, err = repo.DeleteBefore(ctx, conn, cutoff, 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
	require.Equal(t, []snowflake.ID{4, 5}, remainingIDs(t, conn))

	deleted, err = repo.DeleteBefore(ctx, conn, cutoff, 2)
	require.NoError(t, err)
	require.Zero(t, deleted)

	deleted, err = repo.DeleteBefore(ctx, conn, cutoff.Add(24*time.Hour), 0)
	require.NoError(t, err)
	require.Zero(t, deleted)
}
