package apikey

import (
	"github.com/checkvibe/gatekeeper/internal/apikey/repository"
	"github.com/checkvibe/gatekeeper/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
