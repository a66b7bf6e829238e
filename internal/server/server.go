package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/checkvibe/gatekeeper/internal/apikey"
	apikeydomain "github.com/checkvibe/gatekeeper/internal/apikey/domain"
	"github.com/checkvibe/gatekeeper/internal/audit"
	auditdomain "github.com/checkvibe/gatekeeper/internal/audit/domain"
	"github.com/checkvibe/gatekeeper/internal/auth"
	authdomain "github.com/checkvibe/gatekeeper/internal/auth/domain"
	"github.com/checkvibe/gatekeeper/internal/auth/scope"
	"github.com/checkvibe/gatekeeper/internal/auth/session"
	"github.com/checkvibe/gatekeeper/internal/authn"
	"github.com/checkvibe/gatekeeper/internal/config"
	"github.com/checkvibe/gatekeeper/internal/csrf"
	"github.com/checkvibe/gatekeeper/internal/observability"
	obsmiddleware "github.com/checkvibe/gatekeeper/internal/observability/logger"
	obsmetrics "github.com/checkvibe/gatekeeper/internal/observability/metrics"
	obstracing "github.com/checkvibe/gatekeeper/internal/observability/tracing"
	"github.com/checkvibe/gatekeeper/internal/ratelimit"
	"github.com/checkvibe/gatekeeper/internal/targeturl"
	"github.com/checkvibe/gatekeeper/internal/usage"
	usagedomain "github.com/checkvibe/gatekeeper/internal/usage/domain"
	"github.com/checkvibe/gatekeeper/internal/usage/liveevents"
	"github.com/checkvibe/gatekeeper/internal/usage/retention"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(csrf.NewGuard),
	fx.Provide(provideTargetResolver),
	auth.Module,
	apikey.Module,
	ratelimit.Module,
	authn.Module,
	usage.Module,
	retention.Module,
	audit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine. Forwarding headers are honored only from
// trustedProxies; with none, the client address is the connection peer.
func NewEngine(obsCfg observability.Config, trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}

func registerGin(obsCfg observability.Config, cfg config.Config) (*gin.Engine, error) {
	return NewEngine(obsCfg, cfg.TrustedProxies)
}

// provideTargetResolver enables DNS revalidation of scan targets when configured.
func provideTargetResolver(cfg config.Config) *targeturl.Resolver {
	if !cfg.ResolveTargets {
		return nil
	}
	return targeturl.NewResolver(nil)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type credentialResolver interface {
	Resolve(ctx context.Context, req authn.Request) (*authn.Context, error)
}

type usageRecorder interface {
	Record(entry usagedomain.Entry) bool
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	authsvc        authdomain.Service
	sessions       *session.Manager
	resolver       credentialResolver
	csrf           *csrf.Guard
	apiKeySvc      apikeydomain.Service
	usageSvc       usagedomain.Service
	usageRecorder  usageRecorder
	auditSvc       auditdomain.Service
	liveActivity   *liveevents.Hub
	targetResolver *targeturl.Resolver
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Authsvc        authdomain.Service
	Sessions       *session.Manager
	Resolver       *authn.Resolver
	CSRF           *csrf.Guard
	APIKeySvc      apikeydomain.Service
	UsageSvc       usagedomain.Service
	UsageRecorder  *usage.Recorder
	AuditSvc       auditdomain.Service `optional:"true"`
	LiveActivity   *liveevents.Hub     `optional:"true"`
	TargetResolver *targeturl.Resolver `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		authsvc:        p.Authsvc,
		sessions:       p.Sessions,
		resolver:       p.Resolver,
		csrf:           p.CSRF,
		apiKeySvc:      p.APIKeySvc,
		usageSvc:       p.UsageSvc,
		auditSvc:       p.AuditSvc,
		liveActivity:   p.LiveActivity,
		targetResolver: p.TargetResolver,
		obsMetrics:     p.ObsMetrics,
	}
	if p.UsageRecorder != nil {
		svc.usageRecorder = p.UsageRecorder
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.CSRFProtect(), s.Logout)
	auth.GET("/me", s.Authenticated(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.CSRFProtect(), s.Authenticated(), s.RecordUsage())

	// -------- API Keys --------
	api.GET("/keys", s.RequireScope(scope.ScopeKeysRead), s.ListAPIKeys)
	api.POST("/keys", s.RequireScope(scope.ScopeKeysManage), s.CreateAPIKey)
	api.GET("/keys/activity", s.RequireScope(scope.ScopeKeysRead), s.GetAPIKeyActivity)
	api.GET("/keys/activity/stream", s.RequireScope(scope.ScopeKeysRead), s.StreamAPIKeyActivity)
	api.PATCH("/keys/:id", s.RequireScope(scope.ScopeKeysManage), s.UpdateAPIKey)
	api.DELETE("/keys/:id", s.RequireScope(scope.ScopeKeysManage), s.RevokeAPIKey)
	api.GET("/keys/:id/usage", s.RequireScope(scope.ScopeKeysRead), s.GetAPIKeyUsage)

	// -------- Audit --------
	api.GET("/audit-logs", s.RequireScope(scope.ScopeKeysRead), s.ListAuditLogs)

	// -------- Targets --------
	api.POST("/targets/validate", s.RequireScope(scope.ScopeScanWrite), s.ValidateTarget)
}
