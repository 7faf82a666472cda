package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Cache backends accepted by CATALOG_CACHE_BACKEND.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	SeedFile      string        // optional YAML dataset, empty = embedded seed
	DefaultTenant string        // tenant used when X-Tenant-ID is absent
	SyncInterval  time.Duration // interval to re-push collections to the durable cache (0 = disabled)
	Tenants       []string      // optional allow list; the default tenant is always included
	MaxTenants    int           // cap on hydrated tenants (0 = unlimited)

	CacheBackend string        // none | memory | file | redis | mongo
	CacheTimeout time.Duration // bound for each durable cache call
	CacheFileDir string        // root directory of the file backend

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisTTL              time.Duration // expiry of collection keys (0 = never)
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// MongoDB
	MongoURI        string        // ex: "mongodb://localhost:27017"
	MongoDB         string        // database name
	MongoCollection string        // collection holding catalog documents
	MongoTimeout    time.Duration // timeout for each ping attempt
	MongoConnect    time.Duration // Total time to retry connecting (ex: 30s)

	// HTTP
	RateBurst    int      // mutation requests allowed in a burst, per client
	RatePerMin   int      // sustained mutation requests per minute, per client
	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("CATALOG_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("CATALOG_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("CATALOG_LOG_LEVEL", "info"),
		PrettyLog: mustBool("CATALOG_PRETTY_LOG", true),

		// Catalog
		SeedFile:      getenv("CATALOG_SEED_FILE", ""), // Optional, empty = embedded dataset
		DefaultTenant: getenv("CATALOG_DEFAULT_TENANT", "default"),
		SyncInterval:  mustDuration("CATALOG_SYNC_INTERVAL", 10*time.Minute),
		Tenants:       splitAndTrim(getenv("CATALOG_TENANTS", "")),
		MaxTenants:    getenvInt("CATALOG_MAX_TENANTS", 100),

		// Durable cache
		CacheBackend: strings.ToLower(getenv("CATALOG_CACHE_BACKEND", BackendMemory)),
		CacheTimeout: mustDuration("CATALOG_CACHE_TIMEOUT", 3*time.Second),
		CacheFileDir: getenv("CATALOG_CACHE_FILE_DIR", "./data"),

		// HTTP
		RateBurst:    getenvInt("CATALOG_RATE_BURST", 20),
		RatePerMin:   getenvInt("CATALOG_RATE_PER_MIN", 120),
		AllowedHosts: splitAndTrim(getenv("CATALOG_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("CATALOG_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("CATALOG_TRUST_PROXY", false),
	}

	if len(cfg.Tenants) > 0 && !slices.Contains(cfg.Tenants, cfg.DefaultTenant) {
		cfg.Tenants = append(cfg.Tenants, cfg.DefaultTenant)
	}

	switch cfg.CacheBackend {
	case BackendNone, BackendMemory, BackendFile:
	case BackendRedis:
		loadRedis(cfg)
	case BackendMongo:
		cfg.MongoURI = requireEnv("CATALOG_MONGO_URI")
		cfg.MongoDB = getenv("CATALOG_MONGO_DB", "catalog")
		cfg.MongoCollection = getenv("CATALOG_MONGO_COLLECTION", "collections")
		cfg.MongoTimeout = mustDuration("CATALOG_MONGO_TIMEOUT", 5*time.Second)
		cfg.MongoConnect = mustDuration("CATALOG_MONGO_CONNECT_TIMEOUT", 30*time.Second)
	default:
		panic(fmt.Sprintf("❌ FATAL: Unknown CATALOG_CACHE_BACKEND %q (want none, memory, file, redis or mongo)", cfg.CacheBackend))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfg.MongoURI != "" {
			cfgCopy.MongoURI = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func loadRedis(cfg *Config) {
	cfg.RedisAddr = requireEnv("CATALOG_REDIS_ADDR")
	cfg.RedisUser = getenv("CATALOG_REDIS_USERNAME", "default")
	cfg.RedisPasswordRequired = mustBool("CATALOG_REDIS_PASSWORD_REQUIRED", true)
	cfg.RedisPassword = getenv("CATALOG_REDIS_PASSWORD", "")
	cfg.RedisDB = requireEnvInt("CATALOG_REDIS_DB")
	cfg.RedisTTL = mustDuration("CATALOG_REDIS_TTL", 0)
	cfg.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.RedisRT = mustDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", 10*time.Second)
	cfg.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", 5*time.Second)
	cfg.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", 10)
	cfg.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second)
	cfg.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second)
	cfg.RedisWarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", 3)

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: CATALOG_REDIS_PASSWORD is required when CATALOG_REDIS_PASSWORD_REQUIRED=true")
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
