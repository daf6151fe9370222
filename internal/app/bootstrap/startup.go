// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/eduverse/internal/app/entitystore"
	"github.com/dalemusser/eduverse/internal/app/features/live"
	"github.com/dalemusser/eduverse/internal/app/mutations"
	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/seed"
	"github.com/dalemusser/eduverse/internal/app/store/remotedoc"
	"github.com/dalemusser/eduverse/internal/app/system/ratelimit"
	"github.com/dalemusser/eduverse/internal/app/system/timeouts"
	"github.com/dalemusser/eduverse/internal/app/system/workers"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const loginAttemptsPerMinute = 10

// Services are the long-lived components shared by the HTTP features.
type Services struct {
	Adapter      *remotesync.Adapter
	Store        *entitystore.Store
	Mutations    *mutations.Service
	Resubscriber *workers.Resubscriber
	Live         *live.Hub

	// LoginAttempts throttles access-key guesses per client address.
	LoginAttempts *ratelimit.Limiter
}

// Startup builds the data layer: the sync adapter, the entity store fed by a
// supervised subscription, the mutation service and the live hub.
//
// A remote that cannot be initialized is logged and skipped; the store then
// starts from the cache, or from the seed when the cache is empty.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	var adapter *remotesync.Adapter
	if deps.MongoDatabase != nil {
		remote := remotedoc.New(deps.MongoDatabase, remotedoc.Options{
			Collection:   appCfg.RemoteCollection,
			RootPath:     appCfg.RemoteRootPath,
			PollInterval: appCfg.RemotePollInterval,
		}, logger.Named("remotedoc"))
		adapter = remotesync.New(remote, deps.Cache, logger.Named("remotesync"), remotesync.Options{})
	} else {
		adapter = remotesync.NewLocal(deps.Cache, logger.Named("remotesync"), remotesync.Options{})
	}

	if err := adapter.InitializeData(ctx); err != nil {
		logger.Warn("initialize data failed; serving cached data", zap.Error(err))
	}

	store := entitystore.New(initialSnapshot(ctx, adapter, logger))

	resub := workers.NewResubscriber(adapter, func(s models.Snapshot) { store.Replace(s) },
		logger.Named("resubscribe"), time.Second, appCfg.RemoteResubscribeMax)
	resub.Start()

	*deps.App = Services{
		Adapter:      adapter,
		Store:        store,
		Mutations:    mutations.New(store, adapter, logger.Named("mutations")),
		Resubscriber: resub,
		Live:         live.NewHub(store, logger.Named("live")),

		LoginAttempts: ratelimit.New(loginAttemptsPerMinute, time.Minute),
	}
	logger.Info("data layer started",
		zap.String("mode", string(adapter.Mode())),
		zap.String("policy", adapter.Policy().String()))
	return nil
}

func initialSnapshot(ctx context.Context, adapter *remotesync.Adapter, logger *zap.Logger) models.Snapshot {
	snap, err := adapter.Snapshot(ctx)
	switch {
	case err == nil:
		return snap
	case errors.Is(err, remotesync.ErrNoSnapshot):
		logger.Info("no snapshot available yet; starting from seed")
	default:
		logger.Warn("load initial snapshot failed; starting from seed", zap.Error(err))
	}
	return seed.Snapshot()
}
