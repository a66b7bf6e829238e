package usage

import (
	"context"

	"github.com/checkvibe/gatekeeper/internal/usage/liveevents"
	"github.com/checkvibe/gatekeeper/internal/usage/repository"
	"github.com/checkvibe/gatekeeper/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(liveevents.NewHub),
	fx.Provide(NewRecorder),
	fx.Invoke(registerRecorder),
)

func registerRecorder(lc fx.Lifecycle, r *Recorder) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			r.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return r.Close(ctx)
		},
	})
}
