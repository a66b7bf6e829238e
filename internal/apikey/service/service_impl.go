package service

import (
	"context"
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/checkvibe/gatekeeper/internal/apikey/domain"
	"github.com/checkvibe/gatekeeper/internal/auth/scope"
	"github.com/checkvibe/gatekeeper/internal/clock"
	"github.com/checkvibe/gatekeeper/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const touchTimeout = 5 * time.Second

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    apikeydomain.Repository
	Clock   clock.Clock      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    apikeydomain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics

	// syncTouch records last_used_at inline instead of in the background.
	syncTouch bool
}

func New(p Params) apikeydomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("apikey.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   clk,
		metrics: p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]apikeydomain.Response, error) {
	if userID == 0 {
		return nil, apikeydomain.ErrInvalidUser
	}

	items, err := s.repo.List(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID, keyID string) (*apikeydomain.Response, error) {
	if userID == 0 {
		return nil, apikeydomain.ErrInvalidUser
	}
	id, err := parseKeyID(keyID)
	if err != nil {
		return nil, err
	}

	key, err := s.repo.FindByID(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, apikeydomain.ErrNotFound
	}
	resp := toResponse(key)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	if userID == 0 {
		return nil, apikeydomain.ErrInvalidUser
	}

	name, err := normalizeName(req.Name, true)
	if err != nil {
		return nil, err
	}

	scopes := scope.Default
	if req.Scopes != nil {
		scopes, err = scope.Validate(req.Scopes)
		if err != nil {
			return nil, err
		}
	}

	domains, err := apikeydomain.NormalizeDomains(req.AllowedDomains)
	if err != nil {
		return nil, err
	}
	ips, err := apikeydomain.NormalizeIPs(req.AllowedIPs)
	if err != nil {
		return nil, err
	}

	days := apikeydomain.DefaultExpiryDays
	if req.ExpiresInDays != nil {
		days = *req.ExpiresInDays
		if days < 1 || days > apikeydomain.MaxExpiryDays {
			return nil, apikeydomain.ErrInvalidExpiry
		}
	}

	plain, err := apikeydomain.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	expiresAt := now.AddDate(0, 0, days)
	key := &apikeydomain.APIKey{
		ID:             s.genID.Generate(),
		UserID:         userID,
		Name:           name,
		KeyPrefix:      apikeydomain.DisplayPrefix(plain),
		KeyHash:        apikeydomain.HashAPIKey(plain),
		Scopes:         datatypes.JSONSlice[string](scopes),
		AllowedDomains: datatypes.JSONSlice[string](domains),
		AllowedIPs:     datatypes.JSONSlice[string](ips),
		ExpiresAt:      &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := s.repo.CountActive(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		if active >= apikeydomain.MaxActiveKeysPerUser {
			return apikeydomain.ErrKeyLimitReached
		}
		return s.repo.Insert(ctx, tx, key)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAPIKeyEvent(ctx, "created")
	s.log.Info("api key created",
		zap.String("user_id", userID.String()),
		zap.String("key_id", key.ID.String()),
		zap.String("key_prefix", key.KeyPrefix),
	)

	return &apikeydomain.SecretResponse{Response: toResponse(key), Key: plain}, nil
}

func (s *Service) Update(ctx context.Context, userID snowflake.ID, keyID string, req apikeydomain.UpdateRequest) (*apikeydomain.Response, error) {
	if userID == 0 {
		return nil, apikeydomain.ErrInvalidUser
	}
	id, err := parseKeyID(keyID)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return nil, apikeydomain.ErrNoUpdates
	}

	var name string
	if req.Name != nil {
		if name, err = normalizeName(*req.Name, false); err != nil {
			return nil, err
		}
	}
	var scopes []string
	if req.Scopes != nil {
		if scopes, err = scope.Validate(*req.Scopes); err != nil {
			return nil, err
		}
	}
	var domains, ips []string
	if req.AllowedDomains.Set {
		if domains, err = apikeydomain.NormalizeDomains(req.AllowedDomains.Values); err != nil {
			return nil, err
		}
	}
	if req.AllowedIPs.Set {
		if ips, err = apikeydomain.NormalizeIPs(req.AllowedIPs.Values); err != nil {
			return nil, err
		}
	}

	var updated *apikeydomain.APIKey
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		key, err := s.repo.FindByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if key == nil || key.IsRevoked() {
			return apikeydomain.ErrNotFound
		}

		if req.Name != nil {
			key.Name = name
		}
		if req.Scopes != nil {
			key.Scopes = datatypes.JSONSlice[string](scopes)
		}
		if req.AllowedDomains.Set {
			key.AllowedDomains = datatypes.JSONSlice[string](domains)
		}
		if req.AllowedIPs.Set {
			key.AllowedIPs = datatypes.JSONSlice[string](ips)
		}
		key.UpdatedAt = s.clock.Now().UTC()

		ok, err := s.repo.UpdateSettings(ctx, tx, key)
		if err != nil {
			return err
		}
		if !ok {
			return apikeydomain.ErrNotFound
		}
		updated = key
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAPIKeyEvent(ctx, "updated")
	resp := toResponse(updated)
	return &resp, nil
}

func (s *Service) Revoke(ctx context.Context, userID snowflake.ID, keyID string) error {
	if userID == 0 {
		return apikeydomain.ErrInvalidUser
	}
	id, err := parseKeyID(keyID)
	if err != nil {
		return err
	}

	ok, err := s.repo.Revoke(ctx, s.db, userID, id, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return apikeydomain.ErrNotFound
	}

	s.metrics.RecordAPIKeyEvent(ctx, "revoked")
	s.log.Info("api key revoked",
		zap.String("user_id", userID.String()),
		zap.String("key_id", id.String()),
	)
	return nil
}

func (s *Service) Verify(ctx context.Context, plain string) (*apikeydomain.APIKey, error) {
	plain = strings.TrimSpace(plain)
	if !apikeydomain.IsAPIKeyFormat(plain) {
		return nil, apikeydomain.ErrInvalidKey
	}

	hash := apikeydomain.HashAPIKey(plain)
	now := s.clock.Now().UTC()
	key, err := s.repo.FindActiveByHash(ctx, s.db, hash, now)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, apikeydomain.ErrInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 || !key.Usable(now) {
		return nil, apikeydomain.ErrInvalidKey
	}

	if s.syncTouch {
		s.touch(ctx, key.ID, now)
	} else {
		go s.touch(context.WithoutCancel(ctx), key.ID, now)
	}
	key.LastUsedAt = &now
	return key, nil
}

func (s *Service) touch(ctx context.Context, id snowflake.ID, at time.Time) {
	ctx, cancel := context.WithTimeout(ctx, touchTimeout)
	defer cancel()
	if err := s.repo.TouchLastUsed(ctx, s.db, id, at); err != nil {
		s.log.Warn("failed to record api key usage time",
			zap.String("key_id", id.String()),
			zap.Error(err),
		)
	}
}

func normalizeName(raw string, allowDefault bool) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" && allowDefault {
		return apikeydomain.DefaultName, nil
	}
	if name == "" || len([]rune(name)) > apikeydomain.MaxNameLength {
		return "", apikeydomain.ErrInvalidName
	}
	return name, nil
}

func parseKeyID(raw string) (snowflake.ID, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, apikeydomain.ErrInvalidKeyID
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, apikeydomain.ErrInvalidKeyID
	}
	return snowflake.ID(parsed), nil
}

func toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		ID:             key.ID.String(),
		Name:           key.Name,
		KeyPrefix:      key.KeyPrefix,
		Scopes:         nonNil(key.Scopes),
		AllowedDomains: key.AllowedDomains,
		AllowedIPs:     key.AllowedIPs,
		ExpiresAt:      key.ExpiresAt,
		RevokedAt:      key.RevokedAt,
		LastUsedAt:     key.LastUsedAt,
		CreatedAt:      key.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
