package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dalemusser/eduverse/internal/app/bootstrap"
	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/store/localcache"
	"github.com/dalemusser/eduverse/internal/app/store/remotedoc"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type globalOpts struct {
	apiKey      string
	authDomain  string
	databaseURL string
	projectID   string
	collection  string
	root        string
	cachePath   string
	timeout     time.Duration
	verbose     bool
}

// setting returns the server's EDUVERSE_* environment value for key, or the
// server's default.
func setting(key string) string {
	if v, ok := os.LookupEnv("EDUVERSE_" + strings.ToUpper(key)); ok {
		return v
	}
	return bootstrap.KeyDefault(key)
}

// appConfig carries the remote settings in the server's form so local-only
// detection and the database name match what the server does.
func (o *globalOpts) appConfig() bootstrap.AppConfig {
	return bootstrap.AppConfig{
		RemoteAPIKey:      o.apiKey,
		RemoteAuthDomain:  o.authDomain,
		RemoteDatabaseURL: o.databaseURL,
		RemoteProjectID:   o.projectID,
		RemoteCollection:  o.collection,
		RemoteRootPath:    o.root,
		CachePath:         o.cachePath,
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}
	root := &cobra.Command{
		Use:           "eduversectl",
		Short:         "Inspect and repair the EduVerse data store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := root.PersistentFlags()
	f.StringVar(&opts.apiKey, "api-key", setting("remote_api_key"), "remote project API key (a demo value means local-only)")
	f.StringVar(&opts.authDomain, "auth-domain", setting("remote_auth_domain"), "remote project auth domain (a demo value means local-only)")
	f.StringVar(&opts.databaseURL, "database-url", setting("remote_database_url"), "realtime store URI (empty means local-only)")
	f.StringVar(&opts.projectID, "project-id", setting("remote_project_id"), "remote project id (names the database)")
	f.StringVar(&opts.collection, "collection", setting("remote_collection"), "collection holding the root document")
	f.StringVar(&opts.root, "root", setting("remote_root_path"), "root document id")
	f.StringVar(&opts.cachePath, "cache", setting("cache_path"), "local cache directory")
	f.DurationVar(&opts.timeout, "timeout", 15*time.Second, "overall command timeout")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newStatusCmd(opts),
		newDumpCmd(opts),
		newResetCmd(opts),
		newMigrateCmd(opts),
		newPurgeCmd(opts),
	)
	return root
}

// env is what a command works against. remote is nil in local-only mode.
// cache and adapter are nil when a running server holds the cache; cacheErr
// then says why.
type env struct {
	log      *zap.Logger
	mode     remotesync.Mode
	client   *mongo.Client
	remote   *remotedoc.Store
	cache    *localcache.Cache
	cacheErr error
	adapter  *remotesync.Adapter
}

// writable fails when the cache could not be opened for writing.
func (e *env) writable() error {
	if e.cache == nil {
		return fmt.Errorf("%w; stop the server, or use POST /admin/api/reset on the running server", e.cacheErr)
	}
	return nil
}

func (o *globalOpts) open(ctx context.Context) (*env, error) {
	log := zap.NewNop()
	if o.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		log = l
	}

	cfg := o.appConfig()
	e := &env{log: log, mode: remotesync.ModeLocal}

	cache, err := localcache.Open(localcache.DefaultConfig(cfg.CachePath), log)
	switch {
	case errors.Is(err, localcache.ErrLocked):
		log.Info("local cache held by another process; continuing without it", zap.Error(err))
		e.cacheErr = err
	case err != nil:
		return nil, fmt.Errorf("open cache %s: %w", cfg.CachePath, err)
	default:
		e.cache = cache
	}

	if !cfg.RemoteConfigured() {
		if e.cache != nil {
			e.adapter = remotesync.NewLocal(e.cache, log, remotesync.Options{})
		}
		return e, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.RemoteDatabaseURL).SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		if e.cache != nil {
			_ = e.cache.Close()
		}
		return nil, fmt.Errorf("connect: %w", err)
	}
	e.mode = remotesync.ModeRemote
	e.client = client
	e.remote = remotedoc.New(client.Database(cfg.DatabaseName()), remotedoc.Options{
		Collection: cfg.RemoteCollection,
		RootPath:   cfg.RemoteRootPath,
	}, log)
	if e.cache != nil {
		e.adapter = remotesync.New(e.remote, e.cache, log, remotesync.Options{})
	}
	return e, nil
}

func (e *env) close(ctx context.Context) {
	if e.adapter != nil {
		e.adapter.Cleanup()
	}
	if e.cache != nil {
		_ = e.cache.Close()
	}
	if e.client != nil {
		_ = e.client.Disconnect(ctx)
	}
	_ = e.log.Sync()
}

// run opens the environment under the command timeout and calls fn.
func (o *globalOpts) run(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	e, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer e.close(context.Background())
	return fn(ctx, e)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type storeStatus struct {
	Mode        remotesync.Mode `json:"mode"`
	Location    string          `json:"location,omitempty"`
	Reachable   bool            `json:"reachable"`
	RemoteError string          `json:"remoteError,omitempty"`
	RemoteRev   int64           `json:"remoteRevision,omitempty"`
	RemoteAt    *time.Time      `json:"remoteUpdatedAt,omitempty"`
	Remote      *counts         `json:"remote,omitempty"`
	Cache       *counts         `json:"cache,omitempty"`
	CacheError  string          `json:"cacheError,omitempty"`
}

type counts struct {
	Batches  int `json:"batches"`
	Subjects int `json:"subjects"`
	Lectures int `json:"lectures"`
	Notes    int `json:"notes"`
	DPPs     int `json:"dpps"`
}

func countOf(s models.Snapshot) *counts {
	c := &counts{Batches: len(s.Batches), Subjects: len(s.Subjects)}
	for _, l := range s.Lectures {
		c.Lectures += len(l)
	}
	for _, n := range s.Notes {
		c.Notes += len(n)
	}
	for _, d := range s.DPPs {
		c.DPPs += len(d)
	}
	return c
}

func newStatusCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Compare the remote root document with the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, e *env) error {
				st := storeStatus{Mode: e.mode}
				if e.remote != nil {
					st.Location = e.remote.CollectionName() + "/" + e.remote.RootPath()
				}

				// Each goroutine writes disjoint fields.
				g, gctx := errgroup.WithContext(ctx)
				if e.remote != nil {
					g.Go(func() error {
						doc, err := e.remote.Read(gctx)
						if err != nil {
							st.RemoteError = err.Error()
							st.Reachable = errors.Is(err, remotedoc.ErrNotFound) || e.remote.Ping(gctx) == nil
							return nil
						}
						st.Reachable = true
						st.RemoteRev = doc.Rev
						at := doc.UpdatedAt
						st.RemoteAt = &at
						st.Remote = countOf(doc.Snapshot)
						return nil
					})
				}
				g.Go(func() error {
					if e.cache == nil {
						st.CacheError = e.cacheErr.Error()
						return nil
					}
					snap, err := e.cache.Load()
					if err != nil {
						st.CacheError = err.Error()
						return nil
					}
					st.Cache = countOf(snap)
					return nil
				})
				if err := g.Wait(); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func newDumpCmd(o *globalOpts) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the current snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, e *env) error {
				switch {
				case local && e.cache == nil:
					return fmt.Errorf("load cache: %w", e.cacheErr)
				case local:
					snap, err := e.cache.Load()
					if err != nil {
						return fmt.Errorf("load cache: %w", err)
					}
					return writeJSON(cmd.OutOrStdout(), snap)
				case e.adapter != nil:
					snap, err := e.adapter.Snapshot(ctx)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), snap)
				case e.remote != nil:
					doc, err := e.remote.Read(ctx)
					if err != nil {
						return fmt.Errorf("read remote: %w", err)
					}
					return writeJSON(cmd.OutOrStdout(), doc.Snapshot)
				default:
					return fmt.Errorf("no remote configured and %w", e.cacheErr)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "read the local cache only")
	return cmd
}

func newResetCmd(o *globalOpts) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the seed dataset in the cache and the remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset overwrites all data; pass --yes to confirm")
			}
			return o.run(cmd, func(ctx context.Context, e *env) error {
				if err := e.writable(); err != nil {
					return err
				}
				err := e.adapter.ResetData(ctx)
				if errors.Is(err, remotesync.ErrRemoteDisabled) {
					fmt.Fprintln(cmd.OutOrStdout(), "local cache reset to seed")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "remote and local cache reset to seed")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newMigrateCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-local",
		Short: "Copy the local cache to the remote root document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, e *env) error {
				if err := e.writable(); err != nil {
					return err
				}
				if err := e.adapter.MigrateLocal(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "local cache copied to remote")
				return nil
			})
		},
	}
}

func newPurgeCmd(o *globalOpts) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the remote root document, its ID counters and the local cache",
		Long:  "Delete the remote root document, its ID counters and the local cache. The next server start seeds the data again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("purge deletes all data; pass --yes to confirm")
			}
			return o.run(cmd, func(ctx context.Context, e *env) error {
				if err := e.writable(); err != nil {
					return err
				}
				if e.remote != nil {
					if err := e.remote.Delete(ctx); err != nil {
						return fmt.Errorf("delete remote: %w", err)
					}
				}
				if err := e.cache.Clear(); err != nil {
					return err
				}
				if e.remote != nil {
					fmt.Fprintln(cmd.OutOrStdout(), "remote document and local cache removed")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "local cache removed")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the purge")
	return cmd
}
