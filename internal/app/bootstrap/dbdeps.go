// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/eduverse/internal/app/store/localcache"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the back-end connections and the services built on them.
// Mongo fields are nil in local-only mode.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Cache         *localcache.Cache

	// App is filled in by Startup.
	App *Services
}
