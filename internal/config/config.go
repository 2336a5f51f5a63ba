package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Library layout
	BaseDir       string // root of the sample library
	SamplesDir    string // <base>/samples
	PresetsDir    string // <base>/presets
	BookmarksFile string // <base>/bookmarks.json

	// Download manager
	DownloadChunkSize    int
	ProgressTickInterval time.Duration
	CancelWaitTimeout    time.Duration

	// Remote fetch
	FetchTimeout    time.Duration
	FetchMaxRetries int
	FetchRetryDelay time.Duration

	// Circuit Breaker
	CircuitBreakerThreshold   int           // failures before opening
	CircuitBreakerTimeout     time.Duration // time to wait before half-open
	CircuitBreakerMaxRequests int           // max requests in half-open state

	// Search API
	SearchAPIURL   string
	SearchAPIToken string
	SearchTimeout  time.Duration

	// Search cache (optional, enabled by REDIS_URL)
	RedisURL       string
	SearchCacheTTL time.Duration

	// S3 sample sources (optional, for s3:// preview URLs)
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool

	// Security
	EnforceSigning bool
	SigningSecret  []byte

	// Server
	Port        string
	EnableHTTPS bool

	// Let's Encrypt
	LetsEncryptDomains  []string
	LetsEncryptCacheDir string
	LetsEncryptEmail    string

	// Metrics
	MetricsUsername string
	MetricsPassword string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	baseDir := os.Getenv("BASE_DIR")
	if baseDir == "" {
		return nil, fmt.Errorf("BASE_DIR required")
	}

	enforceSigning, _ := strconv.ParseBool(os.Getenv("ENFORCE_SIGNING"))
	enableHTTPS, _ := strconv.ParseBool(os.Getenv("ENABLE_HTTPS"))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	s3Region := os.Getenv("S3_REGION")
	if s3Region == "" {
		s3Region = "auto"
	}

	s3UsePathStyle := false
	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			s3UsePathStyle = parsed
		}
	}

	var letsEncryptDomains []string
	if enableHTTPS {
		domains := parseStringList(os.Getenv("LETSENCRYPT_DOMAINS"))
		if len(domains) == 0 {
			return nil, fmt.Errorf("LETSENCRYPT_DOMAINS required when ENABLE_HTTPS=true")
		}
		letsEncryptDomains = domains
	}

	letsEncryptCacheDir := os.Getenv("LETSENCRYPT_CACHE_DIR")
	if letsEncryptCacheDir == "" {
		letsEncryptCacheDir = "./certs"
	}

	// Parse download manager settings
	chunkSize := parseInt(os.Getenv("DOWNLOAD_CHUNK_SIZE"), 32*1024)
	if chunkSize < 1 {
		return nil, fmt.Errorf("invalid DOWNLOAD_CHUNK_SIZE: %d", chunkSize)
	}
	tickInterval := parseDuration(os.Getenv("PROGRESS_TICK_INTERVAL"), 100*time.Millisecond)
	cancelWait := parseDuration(os.Getenv("CANCEL_WAIT_TIMEOUT"), 2*time.Second)

	// Parse fetch settings
	fetchTimeout := parseDuration(os.Getenv("FETCH_TIMEOUT"), 60*time.Second)
	fetchMaxRetries := parseInt(os.Getenv("FETCH_MAX_RETRIES"), 3)
	fetchRetryDelay := parseDuration(os.Getenv("FETCH_RETRY_DELAY"), 1*time.Second)

	// Parse circuit breaker settings
	cbThreshold := parseInt(os.Getenv("CIRCUIT_BREAKER_THRESHOLD"), 5)
	cbTimeout := parseDuration(os.Getenv("CIRCUIT_BREAKER_TIMEOUT"), 60*time.Second)
	cbMaxRequests := parseInt(os.Getenv("CIRCUIT_BREAKER_MAX_REQUESTS"), 2)

	// Parse search settings
	searchTimeout := parseDuration(os.Getenv("SEARCH_TIMEOUT"), 15*time.Second)
	searchCacheTTL := parseDuration(os.Getenv("SEARCH_CACHE_TTL"), 5*time.Minute)

	return &Config{
		BaseDir:       baseDir,
		SamplesDir:    filepath.Join(baseDir, "samples"),
		PresetsDir:    filepath.Join(baseDir, "presets"),
		BookmarksFile: filepath.Join(baseDir, "bookmarks.json"),

		DownloadChunkSize:    chunkSize,
		ProgressTickInterval: tickInterval,
		CancelWaitTimeout:    cancelWait,

		FetchTimeout:    fetchTimeout,
		FetchMaxRetries: fetchMaxRetries,
		FetchRetryDelay: fetchRetryDelay,

		CircuitBreakerThreshold:   cbThreshold,
		CircuitBreakerTimeout:     cbTimeout,
		CircuitBreakerMaxRequests: cbMaxRequests,

		SearchAPIURL:   os.Getenv("SEARCH_API_URL"),
		SearchAPIToken: os.Getenv("SEARCH_API_TOKEN"),
		SearchTimeout:  searchTimeout,

		RedisURL:       os.Getenv("REDIS_URL"),
		SearchCacheTTL: searchCacheTTL,

		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          s3Region,
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3UsePathStyle:    s3UsePathStyle,

		EnforceSigning: enforceSigning,
		SigningSecret:  []byte(os.Getenv("SIGNING_SECRET")),

		Port:        port,
		EnableHTTPS: enableHTTPS,

		LetsEncryptDomains:  letsEncryptDomains,
		LetsEncryptCacheDir: letsEncryptCacheDir,
		LetsEncryptEmail:    os.Getenv("LETSENCRYPT_EMAIL"),

		MetricsUsername: os.Getenv("METRICS_USERNAME"),
		MetricsPassword: os.Getenv("METRICS_PASSWORD"),
	}, nil
}

// Helper functions for parsing configuration values

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
