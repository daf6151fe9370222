// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/eduverse/internal/app/store/localcache"
	"github.com/dalemusser/eduverse/internal/app/store/remotedoc"
	"github.com/dalemusser/eduverse/internal/app/system/indexes"
	"github.com/dalemusser/eduverse/internal/app/system/timeouts"
	"github.com/dalemusser/eduverse/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB opens the local cache and, when the remote is configured, the
// MongoDB client. An unreachable remote is not fatal: the client keeps
// retrying in the background and the adapter falls back to the cache.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	cacheCfg := localcache.DefaultConfig(appCfg.CachePath)
	if appCfg.CacheInMemory {
		cacheCfg = localcache.InMemoryConfig()
	}
	cache, err := localcache.Open(cacheCfg, logger)
	if err != nil {
		return DBDeps{}, fmt.Errorf("open local cache: %w", err)
	}
	deps := DBDeps{Cache: cache, App: &Services{}}

	if !appCfg.RemoteConfigured() {
		return deps, nil
	}

	opts := options.Client().
		ApplyURI(appCfg.RemoteDatabaseURL).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize).
		SetServerSelectionTimeout(timeouts.Ping())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		_ = cache.Close()
		return DBDeps{}, fmt.Errorf("connect remote store: %w", err)
	}

	pctx, cancel := timeouts.WithTimeout(ctx, timeouts.Ping(), logger, "ping remote store")
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		logger.Warn("remote store unreachable at startup; continuing from cache", zap.Error(err))
	}

	deps.MongoClient = client
	deps.MongoDatabase = client.Database(appCfg.DatabaseName())
	logger.Info("remote store configured",
		zap.String("database", appCfg.DatabaseName()),
		zap.String("collection", appCfg.RemoteCollection),
		zap.String("root", appCfg.RemoteRootPath))
	return deps, nil
}

// EnsureSchema installs the collection validators and the counter index.
// Failures are logged; the remote may simply be unreachable right now.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	collection := appCfg.RemoteCollection
	if collection == "" {
		collection = remotedoc.DefaultCollection
	}
	counters := collection + "_counters"

	if err := validators.EnsureAll(ctx, deps.MongoDatabase, collection, counters, logger); err != nil {
		logger.Warn("ensure validators failed", zap.Error(err))
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, counters, logger); err != nil {
		logger.Warn("ensure indexes failed", zap.Error(err))
	}
	return nil
}
