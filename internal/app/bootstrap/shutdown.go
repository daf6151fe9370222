// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the live hub and subscription, then closes the cache and
// the MongoDB client. It keeps going after a failure and returns the first
// error.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc := deps.App; svc != nil {
		if svc.LoginAttempts != nil {
			svc.LoginAttempts.Stop()
		}
		if svc.Live != nil {
			svc.Live.Close()
		}
		if svc.Resubscriber != nil {
			svc.Resubscriber.Stop()
		}
		if svc.Adapter != nil {
			svc.Adapter.Cleanup()
		}
	}

	var first error
	if deps.Cache != nil {
		if err := deps.Cache.Close(); err != nil {
			logger.Error("local cache close failed", zap.Error(err))
			first = err
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting remote store client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
