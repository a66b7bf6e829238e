package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/checkvibe/gatekeeper/internal/apikey/domain"
	usagedomain "github.com/checkvibe/gatekeeper/internal/usage/domain"
	"github.com/checkvibe/gatekeeper/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo usagedomain.Repository
	Keys apikeydomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo usagedomain.Repository
	keys apikeydomain.Repository
}

func New(p Params) usagedomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("usage.service"),
		repo: p.Repo,
		keys: p.Keys,
	}
}

func (s *Service) Query(ctx context.Context, userID snowflake.ID, keyID string, filter usagedomain.Filter, page pagination.Page) (*usagedomain.QueryResult, error) {
	if userID == 0 {
		return nil, usagedomain.ErrInvalidUser
	}
	id, err := strconv.ParseInt(strings.TrimSpace(keyID), 10, 64)
	if err != nil || id <= 0 {
		return nil, usagedomain.ErrInvalidKeyID
	}

	key, err := s.keys.FindByID(ctx, s.db, userID, snowflake.ID(id))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, usagedomain.ErrKeyNotFound
	}

	page = page.Normalize(usagedomain.DefaultQueryLimit, usagedomain.MaxQueryLimit)
	filter.KeyID = key.ID

	total, err := s.repo.Count(ctx, s.db, userID, filter)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.Query(ctx, s.db, userID, filter, page)
	if err != nil {
		return nil, err
	}

	logs := make([]usagedomain.EntryView, 0, len(entries))
	for i := range entries {
		logs = append(logs, entries[i].View())
	}
	return &usagedomain.QueryResult{
		Logs:   logs,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

func (s *Service) Activity(ctx context.Context, userID snowflake.ID, limit int) ([]usagedomain.ActivityEntry, error) {
	if userID == 0 {
		return nil, usagedomain.ErrInvalidUser
	}
	page := pagination.Page{Limit: limit}.Normalize(usagedomain.DefaultActivityLimit, usagedomain.MaxActivityLimit)

	entries, err := s.repo.Query(ctx, s.db, userID, usagedomain.Filter{}, page)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(entries))
	seen := make(map[snowflake.ID]struct{}, len(entries))
	for i := range entries {
		if _, ok := seen[entries[i].KeyID]; ok {
			continue
		}
		seen[entries[i].KeyID] = struct{}{}
		ids = append(ids, entries[i].KeyID)
	}

	keys, err := s.keys.ListByIDs(ctx, s.db, userID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]*apikeydomain.APIKey, len(keys))
	for i := range keys {
		byID[keys[i].ID] = &keys[i]
	}

	out := make([]usagedomain.ActivityEntry, 0, len(entries))
	for i := range entries {
		item := usagedomain.ActivityEntry{
			EntryView: entries[i].View(),
			KeyName:   usagedomain.UnknownKeyName,
		}
		if key, ok := byID[entries[i].KeyID]; ok {
			item.KeyName = key.Name
			item.KeyPrefix = key.KeyPrefix
		}
		out = append(out, item)
	}
	return out, nil
}
