// Package remotesynctest provides an in-memory remote root document for tests.
package remotesynctest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/eduverse/internal/app/changeset"
	"github.com/dalemusser/eduverse/internal/app/store/remotedoc"
	"github.com/dalemusser/eduverse/internal/domain/models"
)

// ErrUnavailable is the default error returned by failing operations.
var ErrUnavailable = errors.New("remotesynctest: remote unavailable")

// Remote is an in-memory remotesync.Remote. Watchers receive every write
// synchronously, in write order. Set the Fail* fields to make the matching
// operation return that error.
type Remote struct {
	mu       sync.Mutex
	doc      *remotedoc.Document
	counters map[string]int
	watchers map[int]chan struct{}
	deliver  map[int]func(remotedoc.Document)
	nextW    int

	FailPing   error
	FailExists error
	FailRead   error
	FailWrite  error
	FailUpdate error
	FailWatch  error
	FailNextID error

	Writes  int
	Updates int
}

// New returns an empty remote.
func New() *Remote {
	return &Remote{
		counters: make(map[string]int),
		watchers: make(map[int]chan struct{}),
		deliver:  make(map[int]func(remotedoc.Document)),
	}
}

// Seed stores snap as the current document without notifying watchers.
func (r *Remote) Seed(snap models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap = snap.Clone()
	snap.Normalize()
	r.doc = &remotedoc.Document{Snapshot: snap, Rev: 1, UpdatedAt: time.Now().UTC()}
}

// Current returns a copy of the stored document and whether one exists.
func (r *Remote) Current() (models.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		return models.Snapshot{}, false
	}
	return r.doc.Snapshot.Clone(), true
}

// Watchers returns the number of active watchers.
func (r *Remote) Watchers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// Disconnect ends every active Watch with ErrUnavailable.
func (r *Remote) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ch := range r.watchers {
		close(ch)
		delete(r.watchers, id)
		delete(r.deliver, id)
	}
}

func (r *Remote) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.FailPing
}

func (r *Remote) Exists(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailExists != nil {
		return false, r.FailExists
	}
	return r.doc != nil, nil
}

func (r *Remote) Read(ctx context.Context) (remotedoc.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailRead != nil {
		return remotedoc.Document{}, r.FailRead
	}
	if r.doc == nil {
		return remotedoc.Document{}, remotedoc.ErrNotFound
	}
	d := *r.doc
	d.Snapshot = d.Snapshot.Clone()
	return d, nil
}

func (r *Remote) Write(ctx context.Context, snap models.Snapshot) (int64, error) {
	r.mu.Lock()
	if r.FailWrite != nil {
		err := r.FailWrite
		r.mu.Unlock()
		return 0, err
	}
	snap = snap.Clone()
	snap.Normalize()
	r.Writes++
	return r.store(snap)
}

func (r *Remote) Update(ctx context.Context, set changeset.Set) (int64, error) {
	if err := set.Validate(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	if r.FailUpdate != nil {
		err := r.FailUpdate
		r.mu.Unlock()
		return 0, err
	}
	var cur models.Snapshot
	if r.doc != nil {
		cur = r.doc.Snapshot
	}
	r.Updates++
	return r.store(set.Apply(cur))
}

// store must be called with r.mu held; it releases it before notifying.
func (r *Remote) store(snap models.Snapshot) (int64, error) {
	var rev int64 = 1
	if r.doc != nil {
		rev = r.doc.Rev + 1
	}
	doc := remotedoc.Document{Snapshot: snap, Rev: rev, UpdatedAt: time.Now().UTC()}
	r.doc = &doc

	fns := make([]func(remotedoc.Document), 0, len(r.deliver))
	for _, fn := range r.deliver {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		d := doc
		d.Snapshot = doc.Snapshot.Clone()
		fn(d)
	}
	return rev, nil
}

// Watch delivers the current document, then every write, until ctx is done
// or Disconnect is called.
func (r *Remote) Watch(ctx context.Context, deliver func(remotedoc.Document)) error {
	r.mu.Lock()
	if r.FailWatch != nil {
		err := r.FailWatch
		r.mu.Unlock()
		return err
	}
	id := r.nextW
	r.nextW++
	stop := make(chan struct{})
	r.watchers[id] = stop

	var dmu sync.Mutex
	r.deliver[id] = func(d remotedoc.Document) {
		dmu.Lock()
		defer dmu.Unlock()
		deliver(d)
	}
	var first *remotedoc.Document
	if r.doc != nil {
		d := *r.doc
		d.Snapshot = d.Snapshot.Clone()
		first = &d
	}
	fn := r.deliver[id]
	r.mu.Unlock()

	if first != nil {
		fn(*first)
	}

	select {
	case <-ctx.Done():
		r.mu.Lock()
		if _, ok := r.watchers[id]; ok {
			delete(r.watchers, id)
			delete(r.deliver, id)
		}
		r.mu.Unlock()
		return ctx.Err()
	case <-stop:
		return ErrUnavailable
	}
}

func (r *Remote) NextID(ctx context.Context, name string, floor int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailNextID != nil {
		return 0, r.FailNextID
	}
	cur := r.counters[name]
	if floor > cur {
		cur = floor
	}
	cur++
	r.counters[name] = cur
	return cur, nil
}

func (r *Remote) ResetCounters(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrite != nil {
		return r.FailWrite
	}
	r.counters = make(map[string]int)
	return nil
}

// SetFailure sets every Fail* field except FailPing to err (nil clears them).
func (r *Remote) SetFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailExists = err
	r.FailRead = err
	r.FailWrite = err
	r.FailUpdate = err
	r.FailWatch = err
	r.FailNextID = err
}
