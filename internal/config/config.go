package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the ImageVault API.
type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	S3          S3Config
	Auth        AuthConfig
	Interrogate InterrogateConfig
	BgRemoval   BgRemovalConfig
	Signing     SigningConfig
	Metrics     MetricsConfig
	Environment string
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// S3Config carries object store credentials and bucket information.
// Endpoint is optional; when empty the AWS endpoint for Region is used.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	BcryptCost         int
}

// InterrogateConfig configures the external image captioning service.
type InterrogateConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// BgRemovalConfig configures the external background removal service.
type BgRemovalConfig struct {
	URL     string
	Timeout time.Duration
}

// SigningConfig holds defaults for presigned URL generation.
type SigningConfig struct {
	DefaultExpiry time.Duration
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("IMAGEVAULT_API_HOST", "0.0.0.0"),
			Port:         getInt("IMAGEVAULT_API_PORT", 8080),
			ReadTimeout:  getDuration("IMAGEVAULT_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("IMAGEVAULT_API_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDuration("IMAGEVAULT_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "imagevault_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "imagevault"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		S3: S3Config{
			Endpoint:  getString("AWS_ENDPOINT", ""),
			AccessKey: getString("AWS_ACCESS_KEY", ""),
			SecretKey: getString("AWS_SECRET_KEY", ""),
			Region:    getString("AWS_REGION", "us-east-1"),
			Bucket:    getString("AWS_BUCKET", "imagevault"),
			UseSSL:    getBool("AWS_USE_SSL", true),
		},
		Auth: loadAuthConfig(),
		Interrogate: InterrogateConfig{
			URL:     getString("INTERROGATE_API_URL", "http://127.0.0.1:7860/sdapi/v1/interrogate"),
			Model:   getString("INTERROGATE_MODEL", "clip"),
			Timeout: getDuration("INTERROGATE_TIMEOUT", 30*time.Second),
		},
		BgRemoval: BgRemovalConfig{
			URL:     getString("BG_REMOVAL_API_URL", "http://127.0.0.1:7000/api/remove"),
			Timeout: getDuration("BG_REMOVAL_TIMEOUT", 120*time.Second),
		},
		Signing: SigningConfig{
			DefaultExpiry: getDuration("IMAGEVAULT_SIGN_EXPIRY", time.Hour),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("IMAGEVAULT_METRICS_PATH", "/metrics"),
		},
		Environment: getString("HOST_ENVIRONMENT", "development"),
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("IMAGEVAULT_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret:  getString("JWT_SECRET", "change-me-to-a-32-byte-secret"),
		RefreshTokenSecret: getString("JWT_REFRESH_SECRET", "change-me-to-a-64-byte-secret"),
		AccessTokenTTL:     getDuration("JWT_ACCESSTOKEN_TIME", 15*time.Minute),
		RefreshTokenTTL:    getDuration("JWT_REFRESHTOKEN_TIME", 720*time.Hour),
		BcryptCost:         cost,
	}
}
