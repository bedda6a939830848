package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv is the environment flag that disables runtime side effects.
const TestModeEnv = "VENDORFLOW_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	v := os.Getenv(TestModeEnv)
	testModeFlag.Store(v == "1" || v == "true")
}

// InTestMode reports whether binaries should skip connecting to real infrastructure.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode re-reads the flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}
