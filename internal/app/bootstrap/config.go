// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// placeholder marks a remote setting that was never filled in.
const placeholder = "demo"

// defaultDatabase is used when the project id is still a placeholder.
const defaultDatabase = "eduverse"

// appConfigKeys defines the configuration keys for EduVerse.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: remote_database_url, admin_key, etc.
//   - Environment variables: EDUVERSE_REMOTE_DATABASE_URL, EDUVERSE_ADMIN_KEY, etc.
//   - Command-line flags: --remote_database_url, --admin_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "remote_api_key", Default: "demo-api-key", Desc: "Remote project API key"},
	{Name: "remote_auth_domain", Default: "demo-project.firebaseapp.com", Desc: "Remote project auth domain"},
	{Name: "remote_database_url", Default: "mongodb://localhost:27017", Desc: "Realtime store connection URI"},
	{Name: "remote_project_id", Default: "demo-project-id", Desc: "Remote project id (names the database)"},
	{Name: "remote_storage_bucket", Default: "demo-project.appspot.com", Desc: "Remote storage bucket"},
	{Name: "remote_messaging_sender_id", Default: "123456789", Desc: "Remote messaging sender id"},
	{Name: "remote_app_id", Default: "1:123456789:web:abcdef123456", Desc: "Remote app id"},

	{Name: "remote_root_path", Default: "eduverse-data", Desc: "Root document id"},
	{Name: "remote_collection", Default: "realtime", Desc: "Collection holding the root document"},
	{Name: "remote_poll_interval", Default: "2s", Desc: "Poll interval when change streams are unavailable"},
	{Name: "remote_resubscribe_max", Default: "1m", Desc: "Maximum delay between resubscribe attempts"},

	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 0, Desc: "MongoDB min connection pool size"},

	{Name: "cache_path", Default: "./data/cache", Desc: "Local cache directory"},
	{Name: "cache_in_memory", Default: false, Desc: "Keep the local cache in memory only"},

	{Name: "admin_key", Default: "26127", Desc: "Access key for the admin panel"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "eduverse-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "12h", Desc: "Admin session lifetime"},
}

// KeyDefault returns the default of the named configuration key as a string,
// or "" for an unknown key.
func KeyDefault(name string) string {
	for _, k := range appConfigKeys {
		if k.Name == name {
			return fmt.Sprint(k.Default)
		}
	}
	return ""
}

// LoadConfig loads WAFFLE core config and EduVerse config.
//
// Precedence is flags > env > files > defaults. Durations accept Go syntax
// ("2s", "1m").
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "EDUVERSE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		RemoteAPIKey:            appValues.String("remote_api_key"),
		RemoteAuthDomain:        appValues.String("remote_auth_domain"),
		RemoteDatabaseURL:       appValues.String("remote_database_url"),
		RemoteProjectID:         appValues.String("remote_project_id"),
		RemoteStorageBucket:     appValues.String("remote_storage_bucket"),
		RemoteMessagingSenderID: appValues.String("remote_messaging_sender_id"),
		RemoteAppID:             appValues.String("remote_app_id"),

		RemoteRootPath:       appValues.String("remote_root_path"),
		RemoteCollection:     appValues.String("remote_collection"),
		RemotePollInterval:   appValues.Duration("remote_poll_interval", 2*time.Second),
		RemoteResubscribeMax: appValues.Duration("remote_resubscribe_max", time.Minute),

		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		CachePath:     appValues.String("cache_path"),
		CacheInMemory: appValues.Bool("cache_in_memory"),

		AdminKey:      appValues.String("admin_key"),
		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 12*time.Hour),
	}

	if !appCfg.RemoteConfigured() {
		logger.Info("remote store not configured; running in local-only mode")
	}
	return coreCfg, appCfg, nil
}

// RemoteConfigured reports whether the remote settings are real. Placeholder
// credentials or a missing database URL mean local-only mode.
func (c AppConfig) RemoteConfigured() bool {
	if strings.TrimSpace(c.RemoteDatabaseURL) == "" {
		return false
	}
	return !strings.Contains(c.RemoteAPIKey, placeholder) &&
		!strings.Contains(c.RemoteAuthDomain, placeholder)
}

// DatabaseName is the database holding the root document.
func (c AppConfig) DatabaseName() string {
	id := strings.TrimSpace(c.RemoteProjectID)
	if id == "" || strings.Contains(id, placeholder) {
		return defaultDatabase
	}
	return id
}

// ValidateConfig rejects settings that would fail later in a less obvious
// way. The database URL is only checked when the remote is in use.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.RemoteConfigured() {
		if err := wafflemongo.ValidateURI(appCfg.RemoteDatabaseURL); err != nil {
			logger.Error("invalid remote database URL", zap.Error(err))
			return fmt.Errorf("invalid remote database URL: %w", err)
		}
	}
	if appCfg.RemotePollInterval <= 0 {
		return fmt.Errorf("remote_poll_interval must be positive, got %s", appCfg.RemotePollInterval)
	}
	if strings.TrimSpace(appCfg.AdminKey) == "" {
		return errors.New("admin_key must not be empty")
	}
	if !appCfg.CacheInMemory && strings.TrimSpace(appCfg.CachePath) == "" {
		return errors.New("cache_path is required unless cache_in_memory is set")
	}
	return nil
}
