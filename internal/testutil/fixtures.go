package testutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/eduverse/internal/app/entitystore"
	"github.com/dalemusser/eduverse/internal/app/mutations"
	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/seed"
	"github.com/dalemusser/eduverse/internal/app/store/localcache"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Env is a local-only data stack: an in-memory cache, an adapter without a
// remote, and an entity store seeded with the default dataset. Every mutation
// made through Service lands in Store synchronously.
type Env struct {
	Cache   *localcache.Cache
	Adapter *remotesync.Adapter
	Store   *entitystore.Store
	Service *mutations.Service
}

// NewLocalEnv builds an Env and registers its cleanup with t.
func NewLocalEnv(t *testing.T) *Env {
	t.Helper()
	logger := zap.NewNop()

	cache, err := localcache.Open(localcache.InMemoryConfig(), logger)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	adapter := remotesync.NewLocal(cache, logger, remotesync.Options{})
	t.Cleanup(adapter.Cleanup)
	if err := adapter.InitializeData(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	store := entitystore.New(seed.Snapshot())
	return &Env{
		Cache:   cache,
		Adapter: adapter,
		Store:   store,
		Service: mutations.New(store, adapter, logger),
	}
}
