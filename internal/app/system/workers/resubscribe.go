// internal/app/system/workers/resubscribe.go
package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/system/metrics"
	"github.com/dalemusser/eduverse/internal/app/system/mongoerr"
	"go.uber.org/zap"
)

// Subscriber opens subscriptions on the root document.
type Subscriber interface {
	SubscribeContext(ctx context.Context, cb remotesync.Callback) *remotesync.Subscription
}

// Resubscriber keeps one subscription open. When it fails, a new one is opened
// after a delay that doubles from minDelay up to maxDelay. A subscription that
// stayed up for at least maxDelay resets the delay, and a failure that is not
// a reachability problem waits the full maxDelay. It stops for good when the
// adapter is in local mode or has been cleaned up.
type Resubscriber struct {
	sub      Subscriber
	cb       remotesync.Callback
	log      *zap.Logger
	minDelay time.Duration
	maxDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewResubscriber creates the worker. cb receives every delivered snapshot.
//
// Parameters:
//   - sub: the sync adapter
//   - cb: snapshot callback (usually the entity store's Replace)
//   - logger: zap logger
//   - minDelay: first retry delay (e.g. 1 second)
//   - maxDelay: retry delay cap (e.g. 1 minute)
func NewResubscriber(sub Subscriber, cb remotesync.Callback, logger *zap.Logger, minDelay, maxDelay time.Duration) *Resubscriber {
	if minDelay <= 0 {
		minDelay = time.Second
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resubscriber{
		sub:      sub,
		cb:       cb,
		log:      logger,
		minDelay: minDelay,
		maxDelay: maxDelay,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start opens the first subscription and begins supervising it.
func (w *Resubscriber) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("resubscribe worker started",
		zap.Duration("min_delay", w.minDelay),
		zap.Duration("max_delay", w.maxDelay))
}

// Stop ends the current subscription and waits for the worker to finish.
func (w *Resubscriber) Stop() {
	w.cancel()
	w.wg.Wait()
	w.log.Info("resubscribe worker stopped")
}

func (w *Resubscriber) run() {
	defer w.wg.Done()

	delay := w.minDelay
	for {
		opened := time.Now()
		s := w.sub.SubscribeContext(w.ctx, w.cb)

		select {
		case <-w.ctx.Done():
			s.Unsubscribe()
			return
		case <-s.Done():
		}

		err := s.Err()
		if errors.Is(err, remotesync.ErrRemoteDisabled) || errors.Is(err, remotesync.ErrClosed) {
			w.log.Info("resubscribe worker idle", zap.Error(err))
			return
		}
		if w.ctx.Err() != nil {
			return
		}

		delay = w.backoff(delay, time.Since(opened), err)
		metrics.Resubscribe(err)
		w.log.Warn("subscription lost; retrying",
			zap.String("subscription", s.ID()),
			zap.Bool("transient", mongoerr.IsTransient(err)),
			zap.Duration("delay", delay),
			zap.Error(err))

		t := time.NewTimer(delay)
		select {
		case <-w.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		delay *= 2
		if delay > w.maxDelay {
			delay = w.maxDelay
		}
	}
}

// backoff returns the wait before the next attempt, given the current delay,
// how long the last subscription lived and why it ended.
func (w *Resubscriber) backoff(delay, lived time.Duration, err error) time.Duration {
	if !mongoerr.IsTransient(err) {
		return w.maxDelay
	}
	if lived >= w.maxDelay {
		return w.minDelay
	}
	return delay
}
