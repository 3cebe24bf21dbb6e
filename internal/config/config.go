package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting of the gateway.
type Config struct {
	Server  ServerConfig
	Remote  RemoteConfig
	Hotel   HotelConfig
	Session SessionConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	remote, err := loadRemoteConfig()
	if err != nil {
		return nil, err
	}

	sess, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Remote:  remote,
		Hotel:   loadHotelConfig(),
		Session: sess,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// RemoteConfig points at the answering/booking/feedback service.
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

func loadRemoteConfig() (RemoteConfig, error) {
	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("REMOTE_TIMEOUT_SECONDS"); err != nil {
		return RemoteConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return RemoteConfig{}, fmt.Errorf("REMOTE_TIMEOUT_SECONDS must be positive, got %d", *override)
		}
		timeoutSeconds = *override
	}

	return RemoteConfig{
		BaseURL: getEnvOrDefault("REMOTE_BASE_URL", "https://sv-royal-backend.onrender.com"),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// HotelConfig carries the property's identity: its own map pin, the welcome
// line and the fallback contact channel for failed bookings.
type HotelConfig struct {
	Name         string
	MapQuery     string
	ContactPhone string
	WelcomeText  string
}

func loadHotelConfig() HotelConfig {
	return HotelConfig{
		Name:         getEnvOrDefault("HOTEL_NAME", "SV Royal Hotel"),
		MapQuery:     getEnvOrDefault("HOTEL_MAP_QUERY", "SV Royal Hotel Guntur Andhra Pradesh"),
		ContactPhone: getEnvOrDefault("HOTEL_CONTACT_PHONE", "+91 9563 776 776"),
		WelcomeText:  getEnvOrDefault("HOTEL_WELCOME_TEXT", "Welcome to SV Royal Hotel! 👋 How can I assist you today?"),
	}
}

// SessionConfig selects the session persistence backend.
type SessionConfig struct {
	Backend       string // memory, file or redis
	StateDir      string
	RedisAddr     string
	RedisPassword string
	TTL           time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("SESSION_BACKEND", "memory"))
	switch backend {
	case "memory", "file", "redis":
	default:
		return SessionConfig{}, fmt.Errorf("invalid SESSION_BACKEND value: %q", backend)
	}

	ttlMinutes := 720
	if override, err := parseOptionalIntEnv("SESSION_TTL_MINUTES"); err != nil {
		return SessionConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return SessionConfig{}, fmt.Errorf("SESSION_TTL_MINUTES must be positive, got %d", *override)
		}
		ttlMinutes = *override
	}

	return SessionConfig{
		Backend:       backend,
		StateDir:      getEnvOrDefault("SESSION_STATE_DIR", "./sessions"),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		TTL:           time.Duration(ttlMinutes) * time.Minute,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
