// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds EduVerse configuration.
//
// These values come from environment variables (EDUVERSE_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers the HTTP server, logging and TLS; everything here is specific to
// the portal's data layer and admin gate.
type AppConfig struct {
	// Remote project settings. The remote is considered configured only when
	// none of them still carries a placeholder value (see RemoteConfigured).
	RemoteAPIKey            string
	RemoteAuthDomain        string
	RemoteDatabaseURL       string // MongoDB connection string for the realtime store
	RemoteProjectID         string // names the database unless it is a placeholder
	RemoteStorageBucket     string
	RemoteMessagingSenderID string
	RemoteAppID             string

	// Root document location and subscription tuning.
	RemoteRootPath       string
	RemoteCollection     string
	RemotePollInterval   time.Duration // used when change streams are unavailable
	RemoteResubscribeMax time.Duration // cap on the resubscribe backoff

	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Local fallback cache (badger).
	CachePath     string
	CacheInMemory bool

	// Admin gate and its session cookie.
	AdminKey      string
	SessionKey    string
	SessionName   string
	SessionDomain string
	SessionMaxAge time.Duration
}
