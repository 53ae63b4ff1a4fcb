package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration
	TraceStdout bool

	GeminiKey   string
	GeminiModel string
	GenAttempts int
	GenBase     time.Duration
	GenTimeout  time.Duration

	PlatformBase   string
	PlatformRPS    int
	PublishTimeout time.Duration
	PostLockTTL    time.Duration

	AutoReplyWorkers int
	AutoReplyBatch   int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; real environment variables win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/replypilot?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		TraceStdout: env("TRACE_STDOUT", "") == "1",

		GeminiKey:   env("GEMINI_API_KEY", ""),
		GeminiModel: env("GEMINI_MODEL", "gemini-2.0-flash"),
		GenAttempts: atoi("GEN_MAX_ATTEMPTS", 3),
		GenBase:     time.Duration(atoi("GEN_BASE_DELAY_MS", 500)) * time.Millisecond,
		GenTimeout:  time.Duration(atoi("GEN_TIMEOUT_SECONDS", 30)) * time.Second,

		PlatformBase:   env("PLATFORM_BASE_URL", "https://mybusiness.googleapis.com/v4"),
		PlatformRPS:    atoi("PLATFORM_RPS", 5),
		PublishTimeout: time.Duration(atoi("PUBLISH_TIMEOUT_SECONDS", 20)) * time.Second,
		PostLockTTL:    time.Duration(atoi("POST_LOCK_TTL_SECONDS", 60)) * time.Second,

		AutoReplyWorkers: atoi("AUTOREPLY_WORKERS", 4),
		AutoReplyBatch:   atoi("AUTOREPLY_BATCH", 100),
	}
	if c.GeminiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
