package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// PasswordPolicy mirrors the membership password complexity options.
type PasswordPolicy struct {
	RequiredLength         int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
}

// Config carries every recognized option. Values come from the environment;
// main loads .env first via godotenv.
type Config struct {
	ApplicationID uuid.UUID
	DatabaseURL   string
	HTTPPort      string

	JWTIssuer   string
	JWTAudience string
	JWTSecret   string
	JWTTTL      time.Duration
	JWTMaxIdle  time.Duration

	Password PasswordPolicy
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPPort:    envOr("HTTP_PORT", "8080"),
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTTL:      envDuration("JWT_TTL", 24*time.Hour),
		JWTMaxIdle:  envDuration("JWT_MAX_IDLE", 30*time.Minute),
		Password: PasswordPolicy{
			RequiredLength:         envInt("PASSWORD_MIN_LENGTH", 6),
			RequireDigit:           envBool("PASSWORD_REQUIRE_DIGIT"),
			RequireLowercase:       envBool("PASSWORD_REQUIRE_LOWERCASE"),
			RequireUppercase:       envBool("PASSWORD_REQUIRE_UPPERCASE"),
			RequireNonAlphanumeric: envBool("PASSWORD_REQUIRE_NONALPHANUMERIC"),
		},
	}

	appID := os.Getenv("APPLICATION_ID")
	if appID == "" {
		return nil, fmt.Errorf("config: APPLICATION_ID is empty")
	}
	id, err := uuid.Parse(appID)
	if err != nil {
		return nil, fmt.Errorf("config: APPLICATION_ID: %w", err)
	}
	cfg.ApplicationID = id

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is empty")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
