// internal/config/config.go
//
// Environment-driven configuration shared by the relay and the player CLI.
// Responsibilities:
//   - Load .env (when present) via godotenv.
//   - Read typed settings with defaults.
//   - Apply LOG_LEVEL to zerolog's global level.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	LogLevel string

	// relay
	Port          string
	ClientOrigin  string
	JWTSecret     string
	RoomTicketTTL time.Duration

	// player
	RelayURL    string
	PlayerName  string
	Passphrase  string
	BoardWidth  int
	BoardHeight int
	BoardDaily  bool
	DailySalt   string
	DBPath      string
}

// Load reads .env and the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the process environment only.
func FromEnv() Config {
	return Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Port:          getEnv("PORT", "5175"),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RoomTicketTTL: envDuration("ROOM_TICKET_TTL", 10*time.Minute),
		RelayURL:      getEnv("RELAY_URL", "http://localhost:5175"),
		PlayerName:    os.Getenv("PLAYER_NAME"),
		Passphrase:    os.Getenv("ROOM_PASSPHRASE"),
		BoardWidth:    envInt("BOARD_WIDTH", 16),
		BoardHeight:   envInt("BOARD_HEIGHT", 16),
		BoardDaily:    envBool("BOARD_DAILY", false),
		DailySalt:     getEnv("DAILY_SALT", "ripoff-robots"),
		DBPath:        os.Getenv("DB_PATH"),
	}
}

// ApplyLogLevel sets zerolog's global level; unknown levels are ignored.
func (c Config) ApplyLogLevel() {
	if lvl, err := zerolog.ParseLevel(c.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil && v > 0 {
		return v
	}
	return def
}
