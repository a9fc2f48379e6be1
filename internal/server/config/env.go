package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// loadDotEnv is a seam over godotenv so tests do not read the working dir.
var loadDotEnv = func() error { return godotenv.Load() }

// parseEnv overlays environment variables onto config. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it because godotenv never overrides existing keys.
func parseEnv(config *Config, lookup lookupFunc) error {
	if err := loadDotEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		config.EndpointAddrHTTP = ":" + port
	}
	str(&config.EndpointAddrHTTP, "ADDRESS")
	str(&config.DatabaseDSN, "DATABASE_DSN", "DATABASE_URL")
	str(&config.AccessTokenSecret, "SECRET_KEY")
	str(&config.RefreshTokenSecret, "REFRESH_SECRET_KEY")
	str(&config.LogLevel, "LOG_LEVEL")
	str(&config.RateLimit, "RATE_LIMIT")
	str(&config.CORSOrigins, "CORS_ORIGINS")
	str(&config.S3AccessKey, "AWS_ACCESS_KEY_ID")
	str(&config.S3SecretKey, "AWS_SECRET_ACCESS_KEY")
	str(&config.S3Bucket, "AWS_S3_BUCKET_NAME")
	str(&config.S3Region, "AWS_REGION")
	str(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")

	if v, ok := lookup("APP_ENV"); ok {
		config.Development = strings.EqualFold(v, "development")
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration},
		{"REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration},
		{"SWEEP_INTERVAL", &config.SweepInterval},
		{"DB_TIMEOUT", &config.DBTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v, ok := lookup("BCRYPT_COST"); ok && v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BCRYPT_COST: %w", err)
		}
		config.BcryptCost = cost
	}
	return nil
}
