package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	args := []string{
		"-a", "127.0.0.1:9090", "-d", "db", "-s", "access", "-k", "refresh",
		"-t", "15", "-r", "60", "-w", "30", "-l", "debug",
		"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
		"-c", "ignored.json",
	}
	require.NoError(t, parseFlags(cfg, args))

	want := &Config{}
	want.LoadDefaults()
	want.EndpointAddrHTTP = "127.0.0.1:9090"
	want.DatabaseDSN = "db"
	want.AccessTokenSecret = "access"
	want.RefreshTokenSecret = "refresh"
	want.AccessTokenValidityDuration = 15 * time.Minute
	want.RefreshTokenValidityDuration = time.Hour
	want.SweepInterval = 30 * time.Minute
	want.LogLevel = "debug"
	want.S3AccessKey = "user"
	want.S3SecretKey = "password"
	want.S3Bucket = "bucket"
	want.S3Region = "us-west-1"
	want.S3BaseEndpoint = "http://endpoint"

	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestParseFlags_KeepsDurationsWhenAbsent(t *testing.T) {
	cfg := &Config{AccessTokenValidityDuration: 30 * time.Second}
	require.NoError(t, parseFlags(cfg, []string{"-a", ":1"}))
	assert.Equal(t, 30*time.Second, cfg.AccessTokenValidityDuration)
}

func TestParseFlags_BadValue(t *testing.T) {
	assert.Error(t, parseFlags(&Config{}, []string{"-t", "soon"}))
}
