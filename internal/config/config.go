// Package config loads runtime configuration from environment variables,
// the way the teacher's cmd/server/main.go reads PORT/DB_PATH — plain
// os.Getenv with defaults, no configuration file or flags library.
package config

import (
	"os"
	"strconv"

	"github.com/pbmcore/adjudicator/internal/pbmerr"
)

// Config is the core's runtime configuration.
type Config struct {
	DBPath        string
	ClaimsDir     string
	ClaimsPattern string
	BatchSize     int
	MetricsDir    string
	StatusPort    string
	Speedup       float64
	FidelityDelays bool
}

// Load reads Config from the environment plus the CLI's positional
// speedup argument (spec.md §6.2).
func Load(speedupArg string) (*Config, error) {
	speedup := 1.0
	if speedupArg != "" {
		s, err := strconv.ParseFloat(speedupArg, 64)
		if err != nil || s <= 0 {
			return nil, &pbmerr.ConfigError{Reason: "speedup must be a positive decimal, got " + speedupArg}
		}
		speedup = s
	}

	batchSize := 100
	if v := os.Getenv("ADJUDICATOR_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, &pbmerr.ConfigError{Reason: "ADJUDICATOR_BATCH_SIZE must be a positive integer"}
		}
		batchSize = n
	}

	// PORT set to an empty string disables the status server; unset means
	// the default port.
	statusPort := "8090"
	if v, ok := os.LookupEnv("PORT"); ok {
		statusPort = v
	}

	return &Config{
		DBPath:         getenv("ADJUDICATOR_DB_PATH", "adjudicator.db"),
		ClaimsDir:      getenv("ADJUDICATOR_CLAIMS_DIR", "testdata/claims"),
		ClaimsPattern:  getenv("ADJUDICATOR_CLAIMS_PATTERN", "pharmacy_claims_simulation_*.csv"),
		BatchSize:      batchSize,
		MetricsDir:     getenv("ADJUDICATOR_METRICS_DIR", "metrics"),
		StatusPort:     statusPort,
		Speedup:        speedup,
		FidelityDelays: os.Getenv("ADJUDICATOR_FIDELITY_DELAYS") == "true",
	}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
