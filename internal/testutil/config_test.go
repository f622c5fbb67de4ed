package testutil

import (
	"testing"
)

func TestGetTestInt(t *testing.T) {
	// Test with environment variable set
	t.Setenv("TEST_VAR", "42")

	result := GetTestInt("TEST_VAR", 7)
	if result != 42 {
		t.Errorf("expected 42, got %d", result)
	}

	// Test with environment variable unset
	result = GetTestInt("UNSET_VAR", 7)
	if result != 7 {
		t.Errorf("expected 7, got %d", result)
	}

	// Test with garbage value
	t.Setenv("TEST_VAR", "not-a-number")
	result = GetTestInt("TEST_VAR", 7)
	if result != 7 {
		t.Errorf("expected fallback 7, got %d", result)
	}
}

func TestGetTestSeed(t *testing.T) {
	if GetTestSeed() != DefaultTestSeed {
		t.Errorf("expected default seed %d, got %d", DefaultTestSeed, GetTestSeed())
	}

	t.Setenv(TestSeedEnv, "99")
	if GetTestSeed() != 99 {
		t.Errorf("expected seed 99, got %d", GetTestSeed())
	}
}

func TestGetTestPropertyRuns(t *testing.T) {
	if GetTestPropertyRuns() != DefaultTestPropertyRuns {
		t.Errorf("expected default runs %d, got %d", DefaultTestPropertyRuns, GetTestPropertyRuns())
	}

	t.Setenv(TestPropertyRunsEnv, "10")
	if GetTestPropertyRuns() != 10 {
		t.Errorf("expected 10 runs, got %d", GetTestPropertyRuns())
	}
}
