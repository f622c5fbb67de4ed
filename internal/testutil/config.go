package testutil

import (
	"os"
	"strconv"
)

const (
	// Test environment variables
	TestSeedEnv         = "TEST_SEED"
	TestPropertyRunsEnv = "TEST_PROPERTY_RUNS"

	// Defaults when environment variables are not set
	DefaultTestSeed         = 20240601
	DefaultTestPropertyRuns = 2000
)

// GetTestInt returns an integer from environment variable or default
func GetTestInt(envVar string, defaultValue int) int {
	if v := os.Getenv(envVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetTestSeed returns the seed for property tests. A fixed default keeps
// failures reproducible.
func GetTestSeed() int64 {
	return int64(GetTestInt(TestSeedEnv, DefaultTestSeed))
}

// GetTestPropertyRuns returns how many random contexts property tests check
func GetTestPropertyRuns() int {
	return GetTestInt(TestPropertyRunsEnv, DefaultTestPropertyRuns)
}
