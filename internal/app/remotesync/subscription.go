// internal/app/remotesync/subscription.go
package remotesync

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/eduverse/internal/app/store/localcache"
	"github.com/dalemusser/eduverse/internal/app/store/remotedoc"
	"github.com/dalemusser/eduverse/internal/app/system/metrics"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Callback receives every delivered snapshot. Calls for one subscription are
// sequential.
type Callback func(models.Snapshot)

// Subscription is one live registration on the root document.
type Subscription struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() string { return s.id }

// Done is closed once the subscription has stopped delivering.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports why the subscription stopped. It is nil while running and
// after an explicit Unsubscribe.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Unsubscribe stops delivery and waits for the subscription to finish. It is
// safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}

// SubscribeToData is SubscribeContext with a background context. It returns
// only the unsubscribe function.
func (a *Adapter) SubscribeToData(cb Callback) (unsubscribe func()) {
	return a.SubscribeContext(context.Background(), cb).Unsubscribe
}

// SubscribeContext registers cb on the root document.
//
// In remote mode every version of the document is mirrored into the cache and
// then passed to cb, starting with the current one. When the subscription
// fails, cb is called once with the cached snapshot (if any) and the
// subscription stops with Err set. It does not retry; see the resubscribe
// worker for that.
//
// In local mode cb is called once with the cached snapshot and the
// subscription stops with ErrRemoteDisabled.
func (a *Adapter) SubscribeContext(ctx context.Context, cb Callback) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		cancel()
		sub.err = ErrClosed
		close(sub.done)
		return sub
	}
	a.subs[sub.id] = sub
	a.mu.Unlock()

	go a.run(ctx, sub, cb)
	return sub
}

func (a *Adapter) run(ctx context.Context, sub *Subscription, cb Callback) {
	log := a.log.With(zap.String("subscription", sub.id))
	defer func() {
		a.mu.Lock()
		delete(a.subs, sub.id)
		a.mu.Unlock()
		close(sub.done)
	}()

	if a.remote == nil {
		a.deliverCache(log, cb)
		sub.setErr(ErrRemoteDisabled)
		return
	}

	metrics.SubscriptionOpened()
	live := false
	err := a.remote.Watch(ctx, func(doc remotedoc.Document) {
		if !live {
			live = true
			a.mu.Lock()
			a.online++
			a.mu.Unlock()
		}
		a.deliverRemote(log, doc, cb)
	})
	metrics.SubscriptionClosed()

	if live {
		a.mu.Lock()
		a.online--
		a.mu.Unlock()
	}

	// Cancelled by Unsubscribe, Cleanup or the caller.
	if ctx.Err() != nil {
		log.Debug("subscription ended")
		return
	}

	if err == nil {
		err = errors.New("remotesync: subscription ended")
	}
	log.Warn("remote subscription failed; delivering cached snapshot", zap.Error(err))
	a.setErr(err)
	a.deliverCache(log, cb)
	sub.setErr(err)
}

func (a *Adapter) deliverRemote(log *zap.Logger, doc remotedoc.Document, cb Callback) {
	a.cacheMu.Lock()
	if err := a.cache.Save(doc.Snapshot); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
	a.cacheMu.Unlock()

	a.mu.Lock()
	a.lastSync = a.opts.Now()
	if doc.Rev > a.lastRev {
		a.lastRev = doc.Rev
	}
	a.lastErr = nil
	a.mu.Unlock()

	metrics.SnapshotDelivered("remote")
	cb(doc.Snapshot.Clone())
}

func (a *Adapter) deliverCache(log *zap.Logger, cb Callback) {
	snap, err := a.cache.Load()
	if errors.Is(err, localcache.ErrEmpty) {
		log.Info("no cached snapshot to deliver")
		return
	}
	if err != nil {
		log.Error("cache read failed", zap.Error(err))
		return
	}
	metrics.SnapshotDelivered("cache")
	cb(snap)
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
