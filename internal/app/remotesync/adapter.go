// internal/app/remotesync/adapter.go
//
// Package remotesync bridges the in-process entity store to the remote root
// document, with the local cache as a durable fallback.
//
// Lifecycle: construct once with New or NewLocal, call InitializeData, open
// one or more subscriptions with SubscribeToData, and call Cleanup on
// shutdown. The adapter is safe for concurrent use.
package remotesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/eduverse/internal/app/changeset"
	"github.com/dalemusser/eduverse/internal/app/seed"
	"github.com/dalemusser/eduverse/internal/app/store/localcache"
	"github.com/dalemusser/eduverse/internal/app/store/remotedoc"
	"github.com/dalemusser/eduverse/internal/app/system/metrics"
	"github.com/dalemusser/eduverse/internal/app/system/mongoerr"
	"github.com/dalemusser/eduverse/internal/app/system/timeouts"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrRemoteDisabled is returned by remote operations when the adapter
	// runs in local-only mode. No remote call was attempted.
	ErrRemoteDisabled = errors.New("remotesync: remote store not configured")
	// ErrNoSnapshot is returned when neither the remote nor the cache holds data.
	ErrNoSnapshot = errors.New("remotesync: no snapshot available")
	// ErrClosed is returned after Cleanup.
	ErrClosed = errors.New("remotesync: adapter closed")
)

// Mode says whether remote calls are made at all.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// ConflictPolicy names how concurrent writers are reconciled.
type ConflictPolicy int

const (
	// LastWriterWins applies every write as sent. A writer that computed its
	// value from a stale snapshot overwrites newer data in the paths it
	// touches. The document revision orders deliveries but never rejects a
	// write.
	LastWriterWins ConflictPolicy = iota
)

func (p ConflictPolicy) String() string {
	switch p {
	case LastWriterWins:
		return "last-writer-wins"
	}
	return fmt.Sprintf("ConflictPolicy(%d)", int(p))
}

// Remote is the remote root document as the adapter uses it.
// *remotedoc.Store implements it.
type Remote interface {
	Ping(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
	Read(ctx context.Context) (remotedoc.Document, error)
	Write(ctx context.Context, snap models.Snapshot) (int64, error)
	Update(ctx context.Context, set changeset.Set) (int64, error)
	Watch(ctx context.Context, deliver func(remotedoc.Document)) error
	NextID(ctx context.Context, name string, floor int) (int, error)
	ResetCounters(ctx context.Context) error
}

// Cache is the local fallback slot. *localcache.Cache implements it.
type Cache interface {
	Load() (models.Snapshot, error)
	Save(snap models.Snapshot) error
	Update(fn func(models.Snapshot) models.Snapshot) error
}

// Options tunes an Adapter. The zero value is usable.
type Options struct {
	Policy ConflictPolicy
	// Seed returns the fixed default dataset. Defaults to seed.Snapshot.
	Seed func() models.Snapshot
	// Now is the clock used for status timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Status is a point-in-time view of the adapter for display.
type Status struct {
	Mode         Mode       `json:"mode"`
	Online       bool       `json:"online"`
	Initialized  bool       `json:"initialized"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
	Revision     int64      `json:"revision"`
	Subscribers  int        `json:"subscribers"`
	Policy       string     `json:"policy"`
	LastError    string     `json:"lastError,omitempty"`
	// ErrorClass is "transient" when LastError looks like a reachability
	// problem that may clear by itself, and "permanent" otherwise.
	ErrorClass string `json:"errorClass,omitempty"`
}

// Adapter is the Remote Sync Adapter.
type Adapter struct {
	remote Remote
	cache  Cache
	log    *zap.Logger
	opts   Options

	initialized atomic.Bool
	initGroup   singleflight.Group

	// cacheMu serializes read-modify-write cycles on the cache slot.
	cacheMu sync.Mutex

	mu       sync.Mutex
	subs     map[string]*Subscription
	closed   bool
	online   int
	lastSync time.Time
	lastRev  int64
	lastErr  error
}

// New returns an adapter in remote mode. remote must not be nil; use NewLocal
// when the remote store is not configured.
func New(remote Remote, cache Cache, logger *zap.Logger, opts Options) *Adapter {
	if remote == nil {
		panic("remotesync: New called with nil remote; use NewLocal")
	}
	return newAdapter(remote, cache, logger, opts)
}

// NewLocal returns an adapter in local-only mode. It never makes a remote call.
func NewLocal(cache Cache, logger *zap.Logger, opts Options) *Adapter {
	return newAdapter(nil, cache, logger, opts)
}

func newAdapter(remote Remote, cache Cache, logger *zap.Logger, opts Options) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Seed == nil {
		opts.Seed = seed.Snapshot
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Adapter{
		remote: remote,
		cache:  cache,
		log:    logger,
		opts:   opts,
		subs:   make(map[string]*Subscription),
	}
}

// Mode reports whether remote calls are made.
func (a *Adapter) Mode() Mode {
	if a.remote == nil {
		return ModeLocal
	}
	return ModeRemote
}

// Policy returns the conflict policy in force.
func (a *Adapter) Policy() ConflictPolicy { return a.opts.Policy }

// InitializeData makes sure there is data to subscribe to. Only the first
// successful call does any work; later calls return nil at once. Concurrent
// callers share one attempt.
//
// In remote mode the root document is seeded when absent. When that fails,
// whatever the cache holds is copied to the remote (best effort; a failure
// there is only logged), the adapter stays uninitialized so a later call
// retries, and the original error is returned for the caller to log.
//
// In local mode the cache is seeded when empty.
func (a *Adapter) InitializeData(ctx context.Context) error {
	if a.initialized.Load() {
		return nil
	}
	_, err, _ := a.initGroup.Do("initialize", func() (any, error) {
		if a.initialized.Load() {
			return nil, nil
		}
		if err := a.initialize(ctx); err != nil {
			return nil, err
		}
		a.initialized.Store(true)
		return nil, nil
	})
	return err
}

func (a *Adapter) initialize(ctx context.Context) error {
	if a.remote == nil {
		metrics.SkipRemote("initialize")
		a.cacheMu.Lock()
		defer a.cacheMu.Unlock()
		_, err := a.cache.Load()
		if errors.Is(err, localcache.ErrEmpty) {
			a.log.Info("local cache empty; writing seed snapshot")
			return a.cache.Save(a.opts.Seed())
		}
		return err
	}

	start := time.Now()
	err := a.seedRemoteIfAbsent(ctx)
	metrics.ObserveRemote("initialize", start, err)
	if err == nil {
		return nil
	}

	a.log.Warn("remote initialization failed; migrating local cache", zap.Error(err))
	a.setErr(err)
	if merr := a.MigrateLocal(ctx); merr != nil && !errors.Is(merr, ErrNoSnapshot) {
		a.log.Error("local cache migration failed", zap.Error(merr))
	}
	return fmt.Errorf("remotesync: initialize: %w", err)
}

func (a *Adapter) seedRemoteIfAbsent(ctx context.Context) error {
	rctx, cancel := timeouts.WithTimeout(ctx, timeouts.Read(), a.log, "check root document")
	exists, err := a.remote.Exists(rctx)
	cancel()
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	wctx, cancel := timeouts.WithTimeout(ctx, timeouts.Reset(), a.log, "seed root document")
	defer cancel()
	if _, err := a.remote.Write(wctx, a.opts.Seed()); err != nil {
		return err
	}
	if err := a.remote.ResetCounters(wctx); err != nil {
		return err
	}
	a.log.Info("remote root document initialized with seed snapshot")
	return nil
}

// MigrateLocal copies the cached snapshot to the remote root document. It
// returns ErrNoSnapshot when the cache is empty.
func (a *Adapter) MigrateLocal(ctx context.Context) error {
	if a.remote == nil {
		return ErrRemoteDisabled
	}
	snap, err := a.cache.Load()
	if errors.Is(err, localcache.ErrEmpty) {
		return ErrNoSnapshot
	}
	if err != nil {
		return err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Reset(), a.log, "migrate local cache")
	defer cancel()
	start := time.Now()
	_, err = a.remote.Write(ctx, snap)
	metrics.ObserveRemote("migrate", start, err)
	if err != nil {
		return fmt.Errorf("remotesync: migrate: %w", err)
	}
	a.log.Info("migrated local cache to remote")
	return nil
}

// UpdateData applies a partial update. The same update is first merged into
// the cache (when it holds a snapshot) so a later fallback read sees it even
// if the remote write never lands. A remote failure is returned wrapped; in
// local mode ErrRemoteDisabled is returned after the cache write.
func (a *Adapter) UpdateData(ctx context.Context, set changeset.Set) error {
	if err := set.Validate(); err != nil {
		return err
	}

	a.mirror(set)

	if a.remote == nil {
		metrics.SkipRemote("update")
		return ErrRemoteDisabled
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Write(), a.log, "update root document")
	defer cancel()

	start := time.Now()
	_, err := a.remote.Update(ctx, set)
	metrics.ObserveRemote("update", start, err)
	if err != nil {
		a.setErr(err)
		a.log.Warn("remote update failed",
			zap.Strings("paths", set.Paths()),
			zap.Error(err))
		return fmt.Errorf("remotesync: update %v: %w", set.Paths(), err)
	}
	return nil
}

func (a *Adapter) mirror(set changeset.Set) {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()

	err := a.cache.Update(set.Apply)
	switch {
	case err == nil:
	case errors.Is(err, localcache.ErrEmpty):
		a.log.Debug("cache empty; update not mirrored", zap.Strings("paths", set.Paths()))
	default:
		a.log.Warn("cache mirror failed", zap.Strings("paths", set.Paths()), zap.Error(err))
	}
}

// ResetData overwrites both the cache and the remote root document with the
// seed snapshot and resets the ID counters. The cache is written first and
// always; the remote error, if any, is returned.
func (a *Adapter) ResetData(ctx context.Context) error {
	snap := a.opts.Seed()

	a.cacheMu.Lock()
	cerr := a.cache.Save(snap)
	a.cacheMu.Unlock()
	if cerr != nil {
		a.log.Error("cache reset failed", zap.Error(cerr))
	}

	if a.remote == nil {
		metrics.SkipRemote("reset")
		return ErrRemoteDisabled
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Reset(), a.log, "reset root document")
	defer cancel()

	start := time.Now()
	_, err := a.remote.Write(ctx, snap)
	if err == nil {
		err = a.remote.ResetCounters(ctx)
	}
	metrics.ObserveRemote("reset", start, err)
	if err != nil {
		a.setErr(err)
		return fmt.Errorf("remotesync: reset: %w", err)
	}
	a.log.Info("root document reset to seed snapshot")
	return nil
}

// NextID draws the next ID for a collection from the remote counter, raising
// the counter to at least floor first.
func (a *Adapter) NextID(ctx context.Context, c changeset.Collection, floor int) (int, error) {
	if a.remote == nil {
		return 0, ErrRemoteDisabled
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Write(), a.log, "next id")
	defer cancel()

	start := time.Now()
	id, err := a.remote.NextID(ctx, string(c), floor)
	metrics.ObserveRemote("next_id", start, err)
	return id, err
}

// Snapshot returns the freshest snapshot available: the remote document when
// reachable, otherwise the cache.
func (a *Adapter) Snapshot(ctx context.Context) (models.Snapshot, error) {
	if a.remote != nil {
		rctx, cancel := timeouts.WithTimeout(ctx, timeouts.Read(), a.log, "read root document")
		doc, err := a.remote.Read(rctx)
		cancel()
		if err == nil {
			return doc.Snapshot, nil
		}
		if !errors.Is(err, remotedoc.ErrNotFound) {
			a.log.Warn("remote read failed; using cache", zap.Error(err))
		}
	}
	snap, err := a.cache.Load()
	if errors.Is(err, localcache.ErrEmpty) {
		return models.Snapshot{}, ErrNoSnapshot
	}
	return snap, err
}

// Ping checks remote reachability.
func (a *Adapter) Ping(ctx context.Context) error {
	if a.remote == nil {
		return ErrRemoteDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	return a.remote.Ping(ctx)
}

// Status returns the current sync status.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Status{
		Mode:        a.Mode(),
		Online:      a.online > 0,
		Initialized: a.initialized.Load(),
		Revision:    a.lastRev,
		Subscribers: len(a.subs),
		Policy:      a.opts.Policy.String(),
	}
	if !a.lastSync.IsZero() {
		t := a.lastSync
		st.LastSyncTime = &t
	}
	if a.lastErr != nil {
		st.LastError = a.lastErr.Error()
		st.ErrorClass = ErrorClass(a.lastErr)
	}
	return st
}

// ErrorClass classifies a remote failure as "transient" or "permanent".
func ErrorClass(err error) string {
	if mongoerr.IsTransient(err) {
		return "transient"
	}
	return "permanent"
}

func (a *Adapter) setErr(err error) {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
}

// Cleanup ends every subscription and waits for their goroutines to exit.
// The adapter refuses new subscriptions afterwards.
func (a *Adapter) Cleanup() {
	a.mu.Lock()
	a.closed = true
	subs := make([]*Subscription, 0, len(a.subs))
	for _, s := range a.subs {
		subs = append(subs, s)
	}
	a.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	if len(subs) > 0 {
		a.log.Info("remote subscriptions released", zap.Int("count", len(subs)))
	}
}
