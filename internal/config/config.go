// internal/config/config.go
//
// Environment-driven configuration for the server and the CLI.
// A `.env` file in the working directory is loaded first (development);
// real environment variables always win.

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the binary reads from the environment.
type Config struct {
	Port         string // PORT, default 5175
	DBPath       string // DB_PATH, default ./data/app.db
	ClientOrigin string // CLIENT_ORIGIN, CORS origin
	Production   bool   // APP_ENV=production → Secure cookies

	JWTSecret      string // JWT_SECRET
	JWTExpiresDays int    // JWT_EXPIRES_DAYS, default 14
	CookieName     string // COOKIE_NAME, default connections_token

	DailySalt   string // DAILY_SALT
	PuzzlesFile string // PUZZLES_FILE, empty → embedded catalogue

	SessionStore  string        // SESSION_STORE: memory | redis
	RedisAddr     string        // REDIS_ADDR
	RedisPassword string        // REDIS_PASSWORD
	RedisDB       int           // REDIS_DB
	SessionTTL    time.Duration // SESSION_TTL, default 24h

	LogLevel  string // LOG_LEVEL, default info
	LogFormat string // LOG_FORMAT: json | console

	RevealDelay time.Duration // REVEAL_DELAY, terminal pause before a match is applied
	Lang        string        // LANG_PREF, result text locale for the terminal
}

// Load reads `.env` (if present) and the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment without touching `.env`.
func FromEnv() Config {
	return Config{
		Port:         getEnv("PORT", "5175"),
		DBPath:       getEnv("DB_PATH", "./data/app.db"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:   os.Getenv("APP_ENV") == "production",

		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: getInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "connections_token"),

		DailySalt:   getEnv("DAILY_SALT", "local_dev_salt"),
		PuzzlesFile: os.Getenv("PUZZLES_FILE"),

		SessionStore:  getEnv("SESSION_STORE", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		RevealDelay: getDuration("REVEAL_DELAY", 600*time.Millisecond),
		Lang:        getEnv("LANG_PREF", "en"),
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
