// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	adminfeature "github.com/dalemusser/eduverse/internal/app/features/admin"
	browsefeature "github.com/dalemusser/eduverse/internal/app/features/browse"
	gatefeature "github.com/dalemusser/eduverse/internal/app/features/gate"
	healthfeature "github.com/dalemusser/eduverse/internal/app/features/health"
	livefeature "github.com/dalemusser/eduverse/internal/app/features/live"
	statusfeature "github.com/dalemusser/eduverse/internal/app/features/status"
	"github.com/dalemusser/eduverse/internal/app/system/auth"
	"github.com/dalemusser/eduverse/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root router.
//
//	/health          liveness and remote reachability
//	/metrics         Prometheus collectors
//	/api/status      sync status
//	/api/batches     student browse API
//	/live            websocket snapshot feed
//	/admin           access gate (login, logout, session)
//	/admin/api       admin API, behind the gate
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.App
	if svc == nil || svc.Store == nil {
		return nil, errors.New("bootstrap: Startup has not run")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg != nil && coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, appCfg.AdminKey, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	healthHandler := healthfeature.NewHandler(svc.Adapter, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	statusHandler := statusfeature.NewHandler(svc.Adapter, svc.Store, svc.Live, logger)
	r.Mount("/api/status", statusfeature.Routes(statusHandler))

	browseHandler := browsefeature.NewHandler(svc.Store, logger)
	r.Mount("/api/batches", browsefeature.Routes(browseHandler))

	r.Mount("/live", livefeature.Routes(svc.Live))

	// The admin API hangs off the gate router so both share the /admin prefix.
	gateRouter := gatefeature.Routes(gatefeature.NewHandler(sessionMgr, svc.LoginAttempts, logger))
	adminHandler := adminfeature.NewHandler(svc.Store, svc.Mutations, logger)
	gateRouter.Mount("/api", adminfeature.Routes(adminHandler, sessionMgr))
	r.Mount("/admin", gateRouter)

	return r, nil
}
