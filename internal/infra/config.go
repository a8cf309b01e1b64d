package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	DBMaxConns       int
	JWTSecret        string
	InternalAPIToken string
	GeoIPDBPath      string
	GoogleClientID   string
	GoogleIssuer     string
	CORSOrigins      []string

	DefaultProvider  string
	V3APIKey         string
	V3BaseURL        string
	ReplicateAPIKey  string
	ReplicateBaseURL string
	ProviderTimeout  time.Duration

	GenerationCost          int64
	SignupBonusCredits      int64
	RefundFailedGenerations bool
	JobStaleAfter           time.Duration
	StaleSweepSchedule      string
	RunSweeper              bool

	StorageDriver     string
	StoragePath       string
	StorageBaseURL    string
	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		InternalAPIToken: os.Getenv("INTERNAL_API_TOKEN"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		GoogleClientID:   os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleIssuer:     getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),
		CORSOrigins:      splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		DefaultProvider:  strings.ToLower(getEnv("DEFAULT_PROVIDER", "v3")),
		V3APIKey:         strings.TrimSpace(os.Getenv("V3_API_KEY")),
		V3BaseURL:        getEnv("V3_API_BASE_URL", "https://api.gpt.ge"),
		ReplicateAPIKey:  strings.TrimSpace(os.Getenv("REPLICATE_API_KEY")),
		ReplicateBaseURL: getEnv("REPLICATE_BASE_URL", "https://api.replicate.com"),
		ProviderTimeout:  time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30)),

		GenerationCost:          int64(getEnvInt("GENERATION_COST", 1)),
		SignupBonusCredits:      int64(getEnvInt("SIGNUP_BONUS_CREDITS", 2)),
		RefundFailedGenerations: getEnvBool("REFUND_FAILED_GENERATIONS", true),
		JobStaleAfter:           time.Minute * time.Duration(getEnvInt("JOB_STALE_AFTER_MINUTES", 60)),
		StaleSweepSchedule:      getEnv("STALE_SWEEP_SCHEDULE", "0 * * * * *"),
		RunSweeper:              getEnvBool("RUN_SWEEPER", true),

		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", "filesystem")),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		S3Endpoint:        s3Endpoint(),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.GenerationCost <= 0 {
		return nil, fmt.Errorf("GENERATION_COST must be positive")
	}

	switch cfg.StorageDriver {
	case "filesystem":
	case "s3":
		if cfg.S3Bucket == "" || cfg.S3PublicBaseURL == "" {
			return nil, fmt.Errorf("S3_BUCKET and S3_PUBLIC_BASE_URL are required for the s3 storage driver")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

// s3Endpoint resolves the S3-compatible endpoint, deriving the Cloudflare R2
// endpoint from R2_ACCOUNT_ID when no explicit endpoint is set.
func s3Endpoint() string {
	if v := strings.TrimSpace(os.Getenv("S3_ENDPOINT")); v != "" {
		return v
	}
	if account := strings.TrimSpace(os.Getenv("R2_ACCOUNT_ID")); account != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", account)
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
