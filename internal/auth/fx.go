package auth

import (
	"github.com/checkvibe/gatekeeper/internal/auth/repository"
	"github.com/checkvibe/gatekeeper/internal/auth/service"
	"github.com/checkvibe/gatekeeper/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
)
