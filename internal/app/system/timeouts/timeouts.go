// Package timeouts holds the bounds applied to every remote document call.
//
// A remote call that runs past its bound is treated like any other transient
// remote failure: the caller falls back to the local cache or the in-process
// store instead of waiting indefinitely.
//
// Which bound to use:
//   - Ping: reachability checks (health, status, CLI)
//   - Read: existence check or single read of the root document
//   - Write: partial updates and ID counter bumps issued by a mutation
//   - Reset: full-document writes (seed, reset, migration)
//   - Shutdown: draining subscriptions and closing connections
package timeouts

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default bounds, used until Configure or ConfigureFromEnv overrides them.
const (
	DefaultPing     = 2 * time.Second
	DefaultRead     = 5 * time.Second
	DefaultWrite    = 10 * time.Second
	DefaultReset    = 30 * time.Second
	DefaultShutdown = 15 * time.Second
)

// Config holds one value per bound. Zero fields are ignored by Configure.
type Config struct {
	Ping     time.Duration
	Read     time.Duration
	Write    time.Duration
	Reset    time.Duration
	Shutdown time.Duration
}

func defaults() Config {
	return Config{
		Ping:     DefaultPing,
		Read:     DefaultRead,
		Write:    DefaultWrite,
		Reset:    DefaultReset,
		Shutdown: DefaultShutdown,
	}
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

// Ping returns the bound for reachability checks.
func Ping() time.Duration { return Current().Ping }

// Read returns the bound for reading the root document.
func Read() time.Duration { return Current().Read }

// Write returns the bound for a partial update.
func Write() time.Duration { return Current().Write }

// Reset returns the bound for full-document writes.
func Reset() time.Duration { return Current().Reset }

// Shutdown returns the bound for releasing remote resources on exit.
func Shutdown() time.Duration { return Current().Shutdown }

// Current returns a copy of the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// Configure overrides the bounds whose fields in cfg are positive. Call it
// during startup, before any remote call is issued.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&cur, cfg)
}

// Restore puts every bound back to its default. Tests use it in cleanup.
func Restore() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults()
}

// ConfigureFromEnv reads EDUVERSE_TIMEOUT_{PING,READ,WRITE,RESET,SHUTDOWN}
// as Go durations ("500ms", "2s"). Unset, invalid and non-positive values are
// ignored. It returns how many bounds were changed.
func ConfigureFromEnv() int {
	var cfg Config
	n := 0
	for name, dst := range map[string]*time.Duration{
		"EDUVERSE_TIMEOUT_PING":     &cfg.Ping,
		"EDUVERSE_TIMEOUT_READ":     &cfg.Read,
		"EDUVERSE_TIMEOUT_WRITE":    &cfg.Write,
		"EDUVERSE_TIMEOUT_RESET":    &cfg.Reset,
		"EDUVERSE_TIMEOUT_SHUTDOWN": &cfg.Shutdown,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
			n++
		}
	}
	Configure(cfg)
	return n
}

func merge(dst *Config, src Config) {
	if src.Ping > 0 {
		dst.Ping = src.Ping
	}
	if src.Read > 0 {
		dst.Read = src.Read
	}
	if src.Write > 0 {
		dst.Write = src.Write
	}
	if src.Reset > 0 {
		dst.Reset = src.Reset
	}
	if src.Shutdown > 0 {
		dst.Shutdown = src.Shutdown
	}
}

// WithTimeout derives a bounded context. The returned cancel logs a warning
// naming the operation when the bound was hit.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Write(), a.log, "update root document")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("remote operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
