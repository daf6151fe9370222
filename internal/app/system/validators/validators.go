// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the root document collection and its counter collection
// (if missing) and tries to attach JSON-Schema validators. On servers that
// don't support collMod/validators (e.g. some DocumentDB versions), we log and
// skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database, rootColl, countersColl string, logger *zap.Logger) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema, logger); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure(rootColl, rootSchema())
	ensure(countersColl, countersSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, log *zap.Logger) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		log.Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			log.Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		log.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	log.Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *zap.Logger) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	log.Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 59 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 115 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var intType = bson.A{"int", "long"}

func contentListSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"additionalProperties": bson.M{
			"bsonType": "array",
			"items": bson.M{
				"bsonType": "object",
				"required": bson.A{"id", "title", "availableInBatches"},
				"properties": bson.M{
					"id":                 bson.M{"bsonType": intType, "minimum": 1},
					"title":              bson.M{"bsonType": "string"},
					"availableInBatches": bson.M{"bsonType": "array", "items": bson.M{"bsonType": intType}},
				},
			},
		},
	}
}

func rootSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"_rev", "batches", "subjects", "lectures", "notes", "dpps"},
			"properties": bson.M{
				"_rev": bson.M{"bsonType": intType, "minimum": 1},
				"batches": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"id", "name", "subjects"},
						"properties": bson.M{
							"id":       bson.M{"bsonType": intType, "minimum": 1},
							"name":     bson.M{"bsonType": "string"},
							"status":   bson.M{"enum": bson.A{"active", "inactive"}},
							"subjects": bson.M{"bsonType": "array", "items": bson.M{"bsonType": intType}},
						},
					},
				},
				"subjects": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"id", "name"},
						"properties": bson.M{
							"id":   bson.M{"bsonType": intType, "minimum": 1},
							"name": bson.M{"bsonType": "string"},
						},
					},
				},
				"lectures": contentListSchema(),
				"notes":    contentListSchema(),
				"dpps":     contentListSchema(),
			},
		},
	}
}

func countersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"root", "name", "seq"},
			"properties": bson.M{
				"root": bson.M{"bsonType": "string", "minLength": 1},
				"name": bson.M{"enum": bson.A{"batches", "subjects", "lectures", "notes", "dpps"}},
				"seq":  bson.M{"bsonType": intType, "minimum": 0},
			},
		},
	}
}
