// Package config centralizes how careplan reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Arbitration names how the tracker resolves completions that land out of
// issue order.
type Arbitration string

const (
	ArbitrationLatestIssued  Arbitration = "latest-issued"
	ArbitrationLastWriteWins Arbitration = "last-write-wins"
)

// Config represents runtime configuration for the CLI, the TUI, and the stub
// server. Fields left empty disable the feature they configure.
type Config struct {
	APIURL      string
	LogLevel    string
	LogFormat   string
	LogFile     string
	SessionFile string
	Arbitration Arbitration

	Archive ArchiveConfig
	Stub    StubConfig
}

// ArchiveConfig points at an S3 compatible bucket that receives downloaded
// care plans. Archiving is off while Endpoint or Bucket is empty.
type ArchiveConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// Enabled reports whether enough settings are present to archive.
func (a ArchiveConfig) Enabled() bool {
	return a.Endpoint != "" && a.Bucket != ""
}

// StubConfig drives the local development server.
type StubConfig struct {
	Address string
	Workers int
	Step    time.Duration
}

const (
	defaultAPIURL      = "http://localhost:8000"
	defaultLogLevel    = "info"
	defaultLogFormat   = "console"
	defaultStubAddress = ":8000"
	defaultStubWorkers = 2
	defaultStubStep    = 3 * time.Second
	sessionFileName    = "session.yaml"
)

// Load reads configuration from environment variables falling back to
// defaults. Invalid numeric values fall back silently.
func Load() (*Config, error) {
	cfg := &Config{
		APIURL:      strings.TrimRight(readEnv("CAREPLAN_API_URL", defaultAPIURL), "/"),
		LogLevel:    readEnv("CAREPLAN_LOG_LEVEL", defaultLogLevel),
		LogFormat:   readEnv("CAREPLAN_LOG_FORMAT", defaultLogFormat),
		LogFile:     readEnv("CAREPLAN_LOG_FILE", ""),
		SessionFile: readEnv("CAREPLAN_SESSION_FILE", ""),
		Arbitration: parseArbitration("CAREPLAN_ARBITRATION"),
		Archive: ArchiveConfig{
			Endpoint:  readEnv("CAREPLAN_ARCHIVE_ENDPOINT", ""),
			Bucket:    readEnv("CAREPLAN_ARCHIVE_BUCKET", ""),
			AccessKey: readEnv("CAREPLAN_ARCHIVE_ACCESS_KEY", ""),
			SecretKey: readEnv("CAREPLAN_ARCHIVE_SECRET_KEY", ""),
			Region:    readEnv("CAREPLAN_ARCHIVE_REGION", "us-east-1"),
			UseSSL:    parseBool("CAREPLAN_ARCHIVE_USE_SSL", false),
		},
		Stub: StubConfig{
			Address: readEnv("CAREPLAN_STUB_ADDRESS", defaultStubAddress),
			Workers: parseInt("CAREPLAN_STUB_WORKERS", defaultStubWorkers),
			Step:    parseDuration("CAREPLAN_STUB_STEP", defaultStubStep),
		},
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = defaultSessionFile()
	}
	if cfg.Stub.Workers <= 0 {
		cfg.Stub.Workers = defaultStubWorkers
	}
	if cfg.Stub.Step < 0 {
		cfg.Stub.Step = defaultStubStep
	}
	return cfg, nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseArbitration(key string) Arbitration {
	switch Arbitration(strings.ToLower(readEnv(key, ""))) {
	case ArbitrationLastWriteWins:
		return ArbitrationLastWriteWins
	default:
		return ArbitrationLatestIssued
	}
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// time.ParseDuration understands inputs like "5s" or "250ms".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".careplan", sessionFileName)
	}
	return filepath.Join(dir, "careplan", sessionFileName)
}
