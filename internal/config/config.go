package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
	Content   ContentConfig
	Quota     QuotaConfig
	Operators OperatorsConfig
	Sweep     SweepConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxUploadBytes caps multipart asset uploads.
	MaxUploadBytes int64
}

// MongoDBConfig: an empty URI selects the in-memory stores.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	// AllowInsecure accepts unsigned tokens; integration environments only.
	AllowInsecure bool
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicURL is the base used to build public asset URLs; defaults to the endpoint.
	PublicURL string
}

// KindStorage is where one kind keeps its assets.
type KindStorage struct {
	Bucket string
	Prefix string
}

type ContentConfig struct {
	Kinds    map[content.Kind]KindStorage
	Timezone string
}

type QuotaConfig struct {
	EventUpcoming int
	EventPast     int
	// LockTTL bounds how long a crashed holder can block promotions.
	LockTTL time.Duration
}

type OperatorsConfig struct {
	Emails []string
}

type SweepConfig struct {
	Grace  time.Duration
	DryRun bool
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("SERVER_MAX_UPLOAD_MB", 20)
	viper.SetDefault("MONGODB_DATABASE", "tribehub")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 60)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("SCHEDULE_TIMEZONE", "UTC")
	viper.SetDefault("QUOTA_EVENT_UPCOMING", 2)
	viper.SetDefault("QUOTA_EVENT_PAST", 3)
	viper.SetDefault("QUOTA_LOCK_TTL_SECONDS", 5)
	viper.SetDefault("SWEEP_GRACE_MINUTES", 1440)

	defaults := content.DefaultRegistry()
	kinds := make(map[content.Kind]KindStorage, len(defaults))
	for _, k := range content.Kinds {
		env := "CONTENT_" + strings.ToUpper(string(k))
		viper.SetDefault(env+"_BUCKET", defaults[k].Bucket)
		viper.SetDefault(env+"_PREFIX", defaults[k].Prefix)
		kinds[k] = KindStorage{Bucket: viper.GetString(env + "_BUCKET"), Prefix: viper.GetString(env + "_PREFIX")}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Host:           viper.GetString("SERVER_HOST"),
			Environment:    viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: viper.GetInt64("SERVER_MAX_UPLOAD_MB") << 20,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:          viper.GetString("KEYCLOAK_URL"),
			Realm:        viper.GetString("KEYCLOAK_REALM"),
			ClientID:     viper.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret: viper.GetString("KEYCLOAK_CLIENT_SECRET"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			AllowInsecure:  viper.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			PublicURL: viper.GetString("MINIO_PUBLIC_URL"),
		},
		Content: ContentConfig{
			Kinds:    kinds,
			Timezone: viper.GetString("SCHEDULE_TIMEZONE"),
		},
		Quota: QuotaConfig{
			EventUpcoming: viper.GetInt("QUOTA_EVENT_UPCOMING"),
			EventPast:     viper.GetInt("QUOTA_EVENT_PAST"),
			LockTTL:       time.Duration(viper.GetInt("QUOTA_LOCK_TTL_SECONDS")) * time.Second,
		},
		Operators: OperatorsConfig{
			Emails: splitList(viper.GetString("OPERATOR_EMAILS")),
		},
		Sweep: SweepConfig{
			Grace:  time.Duration(viper.GetInt("SWEEP_GRACE_MINUTES")) * time.Minute,
			DryRun: viper.GetBool("SWEEP_DRY_RUN"),
		},
	}

	if _, err := cfg.Registry(); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	// Basic validation
	if cfg.JWT.Secret == "" && cfg.Keycloak.URL == "" && !cfg.JWT.AllowInsecure {
		logger.Warn("no identity provider configured: neither JWT_SECRET nor KEYCLOAK_URL is set; mutations will be rejected")
	}

	return cfg, nil
}

// Registry builds the per-kind lifecycle configuration.
func (c *Config) Registry() (content.Registry, error) {
	if c.Quota.EventUpcoming < 0 || c.Quota.EventPast < 0 {
		return nil, fmt.Errorf("config: feature quotas must not be negative (upcoming=%d past=%d)", c.Quota.EventUpcoming, c.Quota.EventPast)
	}
	reg := content.DefaultRegistry()
	for k, st := range c.Content.Kinds {
		kc, ok := reg[k]
		if !ok {
			continue
		}
		kc.Bucket = strings.TrimSpace(st.Bucket)
		kc.Prefix = strings.TrimSpace(st.Prefix)
		reg[k] = kc
	}
	ev := reg[content.KindEvent]
	ev.Quota = map[content.TimeBucket]int{
		content.BucketUpcoming: c.Quota.EventUpcoming,
		content.BucketPast:     c.Quota.EventPast,
	}
	reg[content.KindEvent] = ev
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return reg, nil
}

// Location is the time zone schedules are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	if c.Content.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Content.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: SCHEDULE_TIMEZONE: %w", err)
	}
	return loc, nil
}

// Buckets lists the distinct buckets used by the registry, exactly as the
// service will address them. It returns nil when the registry is invalid.
func (c *Config) Buckets() []string {
	reg, err := c.Registry()
	if err != nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, k := range content.Kinds {
		b := reg[k].Bucket
		if b != "" && !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
