// internal/app/store/remotedoc/remotedocstore.go
//
// Package remotedoc stores the whole dataset as one MongoDB document addressed
// by a root path, and delivers every change to that document to watchers.
package remotedoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/eduverse/internal/app/changeset"
	"github.com/dalemusser/eduverse/internal/app/system/mongoerr"
	"github.com/dalemusser/eduverse/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultCollection   = "realtime"
	DefaultRootPath     = "eduverse-data"
	DefaultPollInterval = 2 * time.Second
)

// ErrNotFound is returned by Read when the root document does not exist.
var ErrNotFound = errors.New("remotedoc: root document not found")

// Options configures a Store.
type Options struct {
	Collection   string
	RootPath     string
	PollInterval time.Duration
}

// Document is the root document as read from the server.
type Document struct {
	Snapshot  models.Snapshot
	Rev       int64
	UpdatedAt time.Time
}

// rootDoc is the stored shape. The snapshot fields sit at the top level next
// to the bookkeeping fields.
type rootDoc struct {
	ID              string    `bson:"_id"`
	Rev             int64     `bson:"_rev"`
	UpdatedAt       time.Time `bson:"updated_at"`
	models.Snapshot `bson:",inline"`
}

func (d rootDoc) document() Document {
	snap := d.Snapshot
	snap.Normalize()
	return Document{Snapshot: snap, Rev: d.Rev, UpdatedAt: d.UpdatedAt}
}

// Store provides access to the root document and its ID counters.
type Store struct {
	c        *mongo.Collection
	counters *mongo.Collection
	root     string
	poll     time.Duration
	log      *zap.Logger
}

// New creates a store over db. The counters live in "<collection>_counters".
func New(db *mongo.Database, opts Options, logger *zap.Logger) *Store {
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.RootPath == "" {
		opts.RootPath = DefaultRootPath
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		c:        db.Collection(opts.Collection),
		counters: db.Collection(opts.Collection + "_counters"),
		root:     opts.RootPath,
		poll:     opts.PollInterval,
		log:      logger,
	}
}

// RootPath returns the root document ID.
func (s *Store) RootPath() string { return s.root }

// CollectionName returns the name of the collection holding the root document.
func (s *Store) CollectionName() string { return s.c.Name() }

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.c.Database().Client().Ping(ctx, nil)
}

// Exists reports whether the root document exists.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": s.root}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Read returns the root document, or ErrNotFound.
func (s *Store) Read(ctx context.Context) (Document, error) {
	var d rootDoc
	err := s.c.FindOne(ctx, bson.M{"_id": s.root}).Decode(&d)
	if mongoerr.IsNotFound(err) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return d.document(), nil
}

// Write replaces the whole snapshot held by the root document, creating the
// document if needed. It returns the new revision.
func (s *Store) Write(ctx context.Context, snap models.Snapshot) (int64, error) {
	snap = snap.Clone()
	snap.Normalize()

	set := bson.M{
		"updated_at": time.Now().UTC(),
		"batches":    snap.Batches,
		"subjects":   snap.Subjects,
		"lectures":   snap.Lectures,
		"notes":      snap.Notes,
		"dpps":       snap.DPPs,
	}
	return s.apply(ctx, set)
}

// Update applies a partial update: each change's field path is set to its
// value, leaving the rest of the document as it is.
func (s *Store) Update(ctx context.Context, set changeset.Set) (int64, error) {
	if err := set.Validate(); err != nil {
		return 0, err
	}
	fields := bson.M{"updated_at": time.Now().UTC()}
	for _, ch := range set {
		fields[ch.Target().FieldPath()] = ch.Value()
	}
	return s.apply(ctx, fields)
}

func (s *Store) apply(ctx context.Context, fields bson.M) (int64, error) {
	update := bson.M{
		"$set": fields,
		"$inc": bson.M{"_rev": int64(1)},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"_rev": 1})

	var out struct {
		Rev int64 `bson:"_rev"`
	}
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": s.root}, update, opts).Decode(&out); err != nil {
		return 0, err
	}
	return out.Rev, nil
}

// Delete removes the root document and its counters.
func (s *Store) Delete(ctx context.Context) error {
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": s.root}); err != nil {
		return err
	}
	return s.ResetCounters(ctx)
}

// NextID atomically returns the next ID for the named collection. The counter
// is first raised to at least floor, so IDs already present in the data are
// never handed out again.
func (s *Store) NextID(ctx context.Context, name string, floor int) (int, error) {
	if floor < 0 {
		floor = 0
	}
	next := bson.M{"$add": bson.A{
		bson.M{"$max": bson.A{bson.M{"$ifNull": bson.A{"$seq", 0}}, floor}},
		1,
	}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"root": s.root, "name": name, "seq": next}}},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out struct {
		Seq int64 `bson:"seq"`
	}
	id := s.root + ":" + name
	if err := s.counters.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&out); err != nil {
		return 0, fmt.Errorf("remotedoc: next id for %s: %w", name, err)
	}
	return int(out.Seq), nil
}

// ResetCounters drops every ID counter belonging to this root path.
func (s *Store) ResetCounters(ctx context.Context) error {
	_, err := s.counters.DeleteMany(ctx, bson.M{"root": s.root})
	return err
}

// Watch delivers the current root document and then every later version of
// it until ctx is done or the stream fails. Deliveries are ordered by
// revision; a version older than the last one delivered is skipped.
//
// When the server cannot open change streams, Watch polls the document every
// PollInterval instead.
func (s *Store) Watch(ctx context.Context, deliver func(Document)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"documentKey._id": s.root}}},
	}
	cs, err := s.c.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		if mongoerr.IsChangeStreamUnsupported(err) {
			s.log.Info("change streams unavailable; polling root document",
				zap.String("root", s.root),
				zap.Duration("interval", s.poll))
			return s.pollLoop(ctx, deliver)
		}
		return err
	}
	defer cs.Close(context.Background())

	var last int64
	emit := func(d Document) {
		if d.Rev != 0 && d.Rev <= last {
			return
		}
		last = d.Rev
		deliver(d)
	}

	// The stream is open before the first read, so no change is lost between
	// them.
	doc, err := s.Read(ctx)
	switch {
	case err == nil:
		emit(doc)
	case errors.Is(err, ErrNotFound):
	default:
		return err
	}

	for cs.Next(ctx) {
		var ev struct {
			OperationType string   `bson:"operationType"`
			FullDocument  *rootDoc `bson:"fullDocument"`
		}
		if err := cs.Decode(&ev); err != nil {
			return fmt.Errorf("remotedoc: decode change: %w", err)
		}
		if ev.OperationType == "delete" {
			last = 0
			continue
		}
		if ev.FullDocument == nil {
			continue
		}
		emit(ev.FullDocument.document())
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := cs.Err(); err != nil {
		return err
	}
	return errors.New("remotedoc: change stream closed")
}

func (s *Store) pollLoop(ctx context.Context, deliver func(Document)) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	var (
		last    int64
		lastAt  time.Time
		present bool
	)
	check := func() error {
		doc, err := s.Read(ctx)
		if errors.Is(err, ErrNotFound) {
			present = false
			return nil
		}
		if err != nil {
			return err
		}
		if present && doc.Rev == last && doc.UpdatedAt.Equal(lastAt) {
			return nil
		}
		present, last, lastAt = true, doc.Rev, doc.UpdatedAt
		deliver(doc)
		return nil
	}

	if err := check(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := check(); err != nil {
				return err
			}
		}
	}
}
