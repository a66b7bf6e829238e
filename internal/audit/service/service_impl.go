package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/checkvibe/gatekeeper/internal/audit/domain"
	"github.com/checkvibe/gatekeeper/internal/audit/masking"
	"github.com/checkvibe/gatekeeper/internal/clock"
	obscontext "github.com/checkvibe/gatekeeper/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) AuditLog(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorType, actorID, principalUser := resolveActor(ctx, entry)
	userID := entry.UserID
	if userID == 0 {
		userID = principalUser
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	row := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  string(actorType),
		ActorID:    optional(actorID),
		Action:     action,
		TargetType: targetType,
		TargetID:   optional(entry.TargetID),
		IPAddress:  optional(entry.IPAddress),
		UserAgent:  optional(entry.UserAgent),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if userID != 0 {
		row.UserID = &userID
	}
	if masked := masking.MaskSensitive(payload); masked != nil {
		row.Metadata = datatypes.JSONMap(masked)
	}

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID snowflake.ID, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if userID == 0 {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidUser
	}
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	page := req.Page.Normalize(auditdomain.DefaultListLimit, auditdomain.MaxListLimit)
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		UserID:     userID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	return auditdomain.ListAuditLogResponse{
		AuditLogs: logs,
		Limit:     page.Limit,
		Offset:    page.Offset,
	}, nil
}

// resolveActor fills the actor from the authenticated principal when the
// entry does not name one. It also returns the principal's user id.
func resolveActor(ctx context.Context, entry auditdomain.Entry) (auditdomain.ActorType, string, snowflake.ID) {
	userRaw, keyRaw, _ := obscontext.PrincipalFromContext(ctx)
	var principalUser snowflake.ID
	if parsed, err := strconv.ParseInt(userRaw, 10, 64); err == nil && parsed > 0 {
		principalUser = snowflake.ID(parsed)
	}

	actorType := entry.ActorType
	actorID := strings.TrimSpace(entry.ActorID)
	if actorType == "" {
		switch {
		case keyRaw != "":
			actorType, actorID = auditdomain.ActorTypeAPIKey, keyRaw
		case userRaw != "":
			actorType, actorID = auditdomain.ActorTypeUser, userRaw
		default:
			actorType = auditdomain.ActorTypeSystem
		}
	}
	return actorType, actorID, principalUser
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
