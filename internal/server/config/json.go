package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/timex"
)

// JSONConfig is the on-disk shape of the optional config file. Durations
// accept "90m"-style strings or integer nanoseconds. Absent or zero fields
// leave the corresponding Config value untouched.
type JSONConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	SweepInterval                timex.Duration `json:"sweep_interval"`
	DBTimeout                    timex.Duration `json:"db_timeout"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	LogLevel                     string         `json:"log_level"`
	RateLimit                    string         `json:"rate_limit"`
	CORSOrigins                  string         `json:"cors_origins"`
	S3AccessKey                  string         `json:"s3_access_key"`
	S3SecretKey                  string         `json:"s3_secret_key"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJSON overlays the file at path onto config. An empty path is a no-op.
func parseJSON(config *Config, path string) error {
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JSONConfig{}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = v.Duration
		}
	}

	setStr(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setStr(&config.DatabaseDSN, c.DatabaseDSN)
	setStr(&config.AccessTokenSecret, c.AccessTokenSecret)
	setStr(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setStr(&config.LogLevel, c.LogLevel)
	setStr(&config.RateLimit, c.RateLimit)
	setStr(&config.CORSOrigins, c.CORSOrigins)
	setStr(&config.S3AccessKey, c.S3AccessKey)
	setStr(&config.S3SecretKey, c.S3SecretKey)
	setStr(&config.S3Bucket, c.S3Bucket)
	setStr(&config.S3Region, c.S3Region)
	setStr(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setDur(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDur(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDur(&config.SweepInterval, c.SweepInterval)
	setDur(&config.DBTimeout, c.DBTimeout)

	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	return nil
}
