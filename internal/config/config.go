package config

import (
	"os"
	"strconv"
	"time"

	"binstudy/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Experiment ExperimentConfig
	Database   DatabaseConfig
	Server     ServerConfig
	Report     ReportConfig
}

// ExperimentConfig holds the experiment harness settings
type ExperimentConfig struct {
	// ChallengeDir contains one subdirectory per study type
	// ("proximity", "data_dep"), each holding the challenge binaries.
	ChallengeDir string
	// RecoveryLog is the crash-recovery checkpoint path.
	RecoveryLog string
	// AssignmentLog, when set, is an externally produced assignment record
	// the harness waits for at startup instead of randomizing.
	AssignmentLog string
	// AssignmentWait bounds how long startup polls for AssignmentLog.
	AssignmentWait time.Duration
	// BriefingDir holds per-study markdown briefings for the console.
	BriefingDir string
	// Seed drives assignment generation; 0 means derive from the clock.
	Seed int64
	// ChallengeCount overrides the per-study challenge count (pilot runs
	// use shorter sequences).
	ChallengeCount int
}

// DatabaseConfig holds database connection settings. The progress ledger
// falls back to in-memory when URL is empty.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds operator console settings
type ServerConfig struct {
	Port string
}

// ReportConfig holds coordinator report settings
type ReportConfig struct {
	File string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Experiment: ExperimentConfig{
			ChallengeDir:   os.Getenv("CHALLENGE_DIR"),
			RecoveryLog:    getEnvOrDefault("RECOVERY_LOG", "experiment_recovery.json"),
			AssignmentLog:  os.Getenv("ASSIGNMENT_LOG"),
			AssignmentWait: getEnvDurationOrDefault("ASSIGNMENT_WAIT", 2*time.Minute),
			BriefingDir:    os.Getenv("BRIEFING_DIR"),
			Seed:           getEnvInt64OrDefault("EXPERIMENT_SEED", 0),
			ChallengeCount: getEnvIntOrDefault("CHALLENGE_COUNT", 0),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("SERVER_PORT", "8080"),
		},
		Report: ReportConfig{
			File: getEnvOrDefault("REPORT_FILE", "experiment_report.xlsx"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Experiment.ChallengeDir == "" {
		return errors.ConfigInvalid("CHALLENGE_DIR is required")
	}
	if config.Experiment.RecoveryLog == "" {
		return errors.ConfigInvalid("RECOVERY_LOG must not be empty")
	}
	if config.Experiment.ChallengeCount < 0 {
		return errors.ConfigInvalid("CHALLENGE_COUNT must not be negative")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("SERVER_PORT must not be empty")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
