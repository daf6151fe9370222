// internal/app/store/localcache/localcache.go
//
// Package localcache is the durable local fallback for the root document. It
// keeps a single string-keyed slot holding the JSON form of the snapshot.
package localcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// DefaultKey is the slot name used when Config.Key is empty.
const DefaultKey = "eduverse-data"

var (
	// ErrEmpty is returned by Load when the slot has never been written.
	ErrEmpty = errors.New("localcache: no snapshot stored")
	// ErrLocked is returned by Open when another process, usually the
	// running server, holds the cache directory.
	ErrLocked = errors.New("localcache: directory in use by another process")
)

// Config controls how the cache is opened.
type Config struct {
	// Path is the badger directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool
	// Key names the slot holding the snapshot.
	Key string
	// SyncWrites fsyncs every write.
	SyncWrites bool
	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration
	// GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults for the given directory.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		Key:            DefaultKey,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true, Key: DefaultKey}
}

// Cache wraps a badger database holding the snapshot slot.
type Cache struct {
	db  *badger.DB
	key []byte
	log *zap.Logger

	gcStop chan struct{}
	gcDone chan struct{}
	once   sync.Once
}

// Open opens (or creates) the cache described by cfg.
func Open(cfg Config, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("localcache: path is required for a persistent cache")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("localcache: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{log: logger.Named("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		if isDirLocked(err) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, cfg.Path)
		}
		return nil, fmt.Errorf("localcache: open: %w", err)
	}

	c := &Cache{db: db, key: []byte(cfg.Key), log: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		c.gcStop = make(chan struct{})
		c.gcDone = make(chan struct{})
		go c.runGC(cfg.GCInterval, ratio)
	}
	return c, nil
}

// Load returns the stored snapshot, or ErrEmpty if none has been saved.
func (c *Cache) Load() (models.Snapshot, error) {
	var snap models.Snapshot
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEmpty
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		if errors.Is(err, ErrEmpty) {
			return models.Snapshot{}, ErrEmpty
		}
		return models.Snapshot{}, fmt.Errorf("localcache: load: %w", err)
	}
	snap.Normalize()
	return snap, nil
}

// Save overwrites the slot with snap.
func (c *Cache) Save(snap models.Snapshot) error {
	snap = snap.Clone()
	snap.Normalize()
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("localcache: encode: %w", err)
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.key, val)
	}); err != nil {
		return fmt.Errorf("localcache: save: %w", err)
	}
	return nil
}

// Update loads the stored snapshot, passes it to fn and saves the result in
// one read-write transaction. When the slot is empty fn is not called and
// ErrEmpty is returned.
func (c *Cache) Update(fn func(models.Snapshot) models.Snapshot) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEmpty
		}
		if err != nil {
			return err
		}
		var cur models.Snapshot
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cur)
		}); err != nil {
			return err
		}
		cur.Normalize()
		next := fn(cur)
		next.Normalize()
		val, err := json.Marshal(next)
		if err != nil {
			return err
		}
		return txn.Set(c.key, val)
	})
	if err != nil {
		if errors.Is(err, ErrEmpty) {
			return ErrEmpty
		}
		return fmt.Errorf("localcache: update: %w", err)
	}
	return nil
}

// Clear removes the stored snapshot. Load returns ErrEmpty afterwards.
func (c *Cache) Clear() error {
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(c.key)
	}); err != nil {
		return fmt.Errorf("localcache: clear: %w", err)
	}
	return nil
}

// Close stops GC and closes the database. Safe to call more than once.
func (c *Cache) Close() error {
	var err error
	c.once.Do(func() {
		if c.gcStop != nil {
			close(c.gcStop)
			<-c.gcDone
		}
		err = c.db.Close()
	})
	return err
}

// isDirLocked matches badger's directory lock failure, which carries no
// sentinel of its own.
func isDirLocked(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "acquire directory lock") ||
		strings.Contains(msg, "another process is using this badger database")
}

func (c *Cache) runGC(interval time.Duration, ratio float64) {
	defer close(c.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.gcStop:
			return
		case <-ticker.C:
			err := c.db.RunValueLogGC(ratio)
			switch {
			case err == nil:
				c.log.Debug("cache value log GC completed")
			case errors.Is(err, badger.ErrNoRewrite):
			default:
				c.log.Warn("cache value log GC failed", zap.Error(err))
			}
		}
	}
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	log *zap.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
