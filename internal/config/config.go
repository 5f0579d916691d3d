package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendDisk     = "disk"
	BackendMinio    = "minio"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	StoreBackend     string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	JWTTTL           time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AssessmentConfig string        `mapstructure:"ASSESSMENT_CONFIG"`
	BlobBackend      string        `mapstructure:"BLOB_BACKEND"`
	ReportsDir       string        `mapstructure:"REPORTS_DIR"`
	MinioEndpoint    string        `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey   string        `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey   string        `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket      string        `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL      bool          `mapstructure:"MINIO_USE_SSL"`
	SeedData         bool          `mapstructure:"SEED_DATA"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_BACKEND", "DATABASE_URL", "DB_MAX_CONNS",
	"DB_MIN_CONNS", "JWT_SECRET", "JWT_TTL", "CORS_ORIGINS", "RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "ASSESSMENT_CONFIG", "BLOB_BACKEND",
	"REPORTS_DIR", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
	"MINIO_BUCKET", "MINIO_USE_SSL", "SEED_DATA",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BLOB_BACKEND", BackendMemory)
	v.SetDefault("REPORTS_DIR", "./reports")
	v.SetDefault("MINIO_BUCKET", "reports")
	v.SetDefault("SEED_DATA", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Requests without a bearer token get admin access.")
		log.Println("WARNING: Set ENV=production and JWT_SECRET for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesPostgres reports whether assessments, reports and users live in Postgres.
func (c *Config) UsesPostgres() bool {
	return c.StoreBackend == BackendPostgres
}

// Validate checks that the configuration is safe to run. Every problem found
// is returned.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendMemory, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.StoreBackend))
	}

	if !c.IsDev() && c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required outside development (current ENV=%q)", c.Env))
	}
	if c.IsProduction() && c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters in production"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	}

	switch c.BlobBackend {
	case BackendMemory:
	case BackendDisk:
		if c.ReportsDir == "" {
			errs = append(errs, errors.New("REPORTS_DIR is required when BLOB_BACKEND=disk"))
		}
	case BackendMinio:
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" || c.MinioBucket == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET are required when BLOB_BACKEND=minio"))
		}
	default:
		errs = append(errs, fmt.Errorf("BLOB_BACKEND must be memory, disk or minio, got %q", c.BlobBackend))
	}

	return errors.Join(errs...)
}
