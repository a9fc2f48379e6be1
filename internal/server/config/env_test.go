package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParseEnv(t *testing.T) {
	noDotEnv(t)

	cfg := &Config{}
	cfg.LoadDefaults()

	err := parseEnv(cfg, mapLookup(map[string]string{
		"PORT":                  "8080",
		"DATABASE_URL":          "postgres://env",
		"SECRET_KEY":            "a",
		"REFRESH_SECRET_KEY":    "b",
		"ACCESS_TOKEN_TTL":      "15m",
		"REFRESH_TOKEN_TTL":     "720h",
		"SWEEP_INTERVAL":        "24h",
		"DB_TIMEOUT":            "2s",
		"BCRYPT_COST":           "12",
		"AWS_S3_BUCKET_NAME":    "imports",
		"AWS_REGION":            "eu-west-1",
		"AWS_ACCESS_KEY_ID":     "key",
		"AWS_SECRET_ACCESS_KEY": "secret",
		"APP_ENV":               "Development",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
	assert.Equal(t, "a", cfg.AccessTokenSecret)
	assert.Equal(t, "b", cfg.RefreshTokenSecret)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, 24*time.Hour, cfg.SweepInterval)
	assert.Equal(t, 2*time.Second, cfg.DBTimeout)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "imports", cfg.S3Bucket)
	assert.Equal(t, "eu-west-1", cfg.S3Region)
	assert.Equal(t, "key", cfg.S3AccessKey)
	assert.Equal(t, "secret", cfg.S3SecretKey)
	assert.True(t, cfg.Development)
}

func TestParseEnv_BadValues(t *testing.T) {
	noDotEnv(t)

	cfg := &Config{}
	assert.Error(t, parseEnv(cfg, mapLookup(map[string]string{"ACCESS_TOKEN_TTL": "soon"})))
	assert.Error(t, parseEnv(cfg, mapLookup(map[string]string{"BCRYPT_COST": "high"})))
}

func TestParseEnv_DotEnvError(t *testing.T) {
	orig := loadDotEnv
	loadDotEnv = func() error { return errors.New("unreadable") }
	t.Cleanup(func() { loadDotEnv = orig })

	assert.Error(t, parseEnv(&Config{}, mapLookup(nil)))
}
