package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Datastore    DatastoreConfig    `mapstructure:"datastore"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Storage      StorageConfig      `mapstructure:"storage"`
	SessionCache SessionCacheConfig `mapstructure:"session_cache"`
	Import       ImportConfig       `mapstructure:"import"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatastoreConfig points the client at the remote tabular datastore. When
// RelayURL is set, every call is routed through the relay instead of BaseURL;
// the client is indifferent to which one it talks to.
type DatastoreConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	RelayURL       string `mapstructure:"relay_url"`
	StaticToken    string `mapstructure:"static_token"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Endpoint returns the effective base URL for API calls.
func (d *DatastoreConfig) Endpoint() string {
	if d.RelayURL != "" {
		return d.RelayURL
	}
	return d.BaseURL
}

// Timeout returns the per-request timeout.
func (d *DatastoreConfig) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// AuthConfig tunes the bearer-credential lifecycle.
type AuthConfig struct {
	BufferMinutes             int `mapstructure:"buffer_minutes"`
	MinRefreshIntervalSeconds int `mapstructure:"min_refresh_interval_seconds"`
}

func (a *AuthConfig) BufferWindow() time.Duration {
	if a.BufferMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(a.BufferMinutes) * time.Minute
}

func (a *AuthConfig) MinRefreshInterval() time.Duration {
	if a.MinRefreshIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.MinRefreshIntervalSeconds) * time.Second
}

// StorageConfig configures the upload archive object storage.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // s3, r2, minio
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Enabled   bool   `mapstructure:"enabled"`
}

// SessionCacheConfig configures the session-scoped record store.
type SessionCacheConfig struct {
	Driver          string        `mapstructure:"driver"` // memory, sqlite, postgres
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxContentBytes int           `mapstructure:"max_content_bytes"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ImportConfig tunes the batch import engine.
type ImportConfig struct {
	BatchSize              int     `mapstructure:"batch_size"`
	LargeFileThreshold     int     `mapstructure:"large_file_threshold"`
	CohortSize             int     `mapstructure:"cohort_size"`
	IndividualConcurrency  int     `mapstructure:"individual_concurrency"`
	BulkFailureLimit       int     `mapstructure:"bulk_failure_limit"`
	TokenRefreshCohorts    int     `mapstructure:"token_refresh_cohorts"`
	FailureRatioThreshold  float64 `mapstructure:"failure_ratio_threshold"`
	InterBatchDelayMs      int     `mapstructure:"inter_batch_delay_ms"`
	CohortPauseMs          int     `mapstructure:"cohort_pause_ms"`
	VerifyPageSize         int     `mapstructure:"verify_page_size"`
	VerifyMaxPages         int     `mapstructure:"verify_max_pages"`
}

// Load reads configuration from file and environment. An empty configPath
// falls back to ./configs/config.yaml then ./config.yaml.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("datastore.base_url", "DATASTORE_BASE_URL")
	v.BindEnv("datastore.relay_url", "DATASTORE_RELAY_URL")
	v.BindEnv("datastore.static_token", "DATASTORE_STATIC_TOKEN")
	v.BindEnv("datastore.username", "DATASTORE_USERNAME")
	v.BindEnv("datastore.password", "DATASTORE_PASSWORD")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("session_cache.dsn", "SESSION_CACHE_DSN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("datastore.base_url", "http://localhost:8090")
	v.SetDefault("datastore.timeout_seconds", 60)

	v.SetDefault("auth.buffer_minutes", 10)
	v.SetDefault("auth.min_refresh_interval_seconds", 30)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.provider", "minio")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "gridport-uploads")

	v.SetDefault("session_cache.driver", "sqlite")
	v.SetDefault("session_cache.path", "./data/session.db")
	v.SetDefault("session_cache.max_content_bytes", 4*1024*1024)
	v.SetDefault("session_cache.max_idle_conns", 2)
	v.SetDefault("session_cache.max_open_conns", 10)
	v.SetDefault("session_cache.conn_max_lifetime", time.Hour)

	v.SetDefault("import.batch_size", 200)
	v.SetDefault("import.large_file_threshold", 5000)
	v.SetDefault("import.cohort_size", 6)
	v.SetDefault("import.individual_concurrency", 20)
	v.SetDefault("import.bulk_failure_limit", 3)
	v.SetDefault("import.token_refresh_cohorts", 10)
	v.SetDefault("import.failure_ratio_threshold", 0.1)
	v.SetDefault("import.inter_batch_delay_ms", 250)
	v.SetDefault("import.cohort_pause_ms", 100)
	v.SetDefault("import.verify_page_size", 500)
	v.SetDefault("import.verify_max_pages", 200)
}
