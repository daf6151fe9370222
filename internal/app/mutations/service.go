// internal/app/mutations/service.go
//
// Package mutations is the only writer of batches, subjects and content.
//
// Every operation reads the entity store's current snapshot, computes the
// full new value of the collections it touches, and hands that value to the
// sync adapter as one partial update. On success the store is left alone: it
// catches up when the remote echoes the write back through the subscription.
// On failure the same update is applied to the store directly and the
// operation still succeeds. Failed remote writes are not retried.
//
// Writes follow last-writer-wins. Two operations computed from the same
// snapshot overwrite each other's effect on any collection both touch.
package mutations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/eduverse/internal/app/changeset"
	"github.com/dalemusser/eduverse/internal/app/entitystore"
	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/seed"
	"github.com/dalemusser/eduverse/internal/app/system/metrics"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"go.uber.org/zap"
)

// ErrNotFound is returned when the entity being changed does not exist in the
// current snapshot.
var ErrNotFound = errors.New("mutations: not found")

// Syncer is the part of the sync adapter the service writes through.
type Syncer interface {
	UpdateData(ctx context.Context, set changeset.Set) error
	ResetData(ctx context.Context) error
	NextID(ctx context.Context, c changeset.Collection, floor int) (int, error)
}

// Service applies mutations. It is safe for concurrent use; concurrent
// callers are not serialized against each other.
type Service struct {
	store *entitystore.Store
	sync  Syncer
	log   *zap.Logger
	now   func() time.Time
}

// New returns a Service writing through sync and falling back to store.
func New(store *entitystore.Store, sync Syncer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store: store,
		sync:  sync,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// commit sends set to the remote and falls back to the store on failure.
func (s *Service) commit(ctx context.Context, op string, set changeset.Set) error {
	err := s.sync.UpdateData(ctx, set)
	switch {
	case err == nil:
		metrics.Mutation(op, false)
		return nil
	case errors.Is(err, changeset.ErrEmpty), errors.Is(err, changeset.ErrOverlap):
		return err
	case errors.Is(err, remotesync.ErrRemoteDisabled):
		s.log.Debug("remote disabled; applying locally",
			zap.String("op", op), zap.Strings("paths", set.Paths()))
	default:
		s.log.Warn("remote write failed; applying locally",
			zap.String("op", op), zap.Strings("paths", set.Paths()), zap.Error(err))
	}

	s.store.Replace(set.Apply(s.store.Snapshot()))
	metrics.Mutation(op, true)
	return nil
}

// nextID draws an ID from the remote counter when it can, raised to at least
// local+1. Without a remote it is local+1.
func (s *Service) nextID(ctx context.Context, c changeset.Collection, local int) int {
	id, err := s.sync.NextID(ctx, c, local)
	if err == nil && id > local {
		return id
	}
	if err != nil && !errors.Is(err, remotesync.ErrRemoteDisabled) {
		s.log.Warn("remote id counter unavailable; using local maximum",
			zap.String("collection", string(c)), zap.Error(err))
	}
	return local + 1
}

func (s *Service) today() string {
	return s.now().Format(models.DateLayout)
}

// cleanTeachers trims every entry and drops the empty ones.
func cleanTeachers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Reset restores the seed snapshot everywhere. When the remote reset fails
// the seed is applied to the store directly.
func (s *Service) Reset(ctx context.Context) error {
	err := s.sync.ResetData(ctx)
	if err == nil {
		metrics.Mutation("reset", false)
		return nil
	}
	if !errors.Is(err, remotesync.ErrRemoteDisabled) {
		s.log.Warn("remote reset failed; resetting locally", zap.Error(err))
	}
	s.store.Replace(seed.Snapshot())
	metrics.Mutation("reset", true)
	return nil
}
