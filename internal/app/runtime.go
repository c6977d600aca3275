package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv keeps binaries from dialing Postgres, Redis or SMTP when it
// parses as true.
const TestModeEnv = "WORKDESK_TEST_MODE"

var testMode atomic.Bool

func init() {
	RefreshTestMode()
}

// InTestMode reports the flag read by the last RefreshTestMode.
func InTestMode() bool {
	return testMode.Load()
}

// RefreshTestMode rereads TestModeEnv. Unparsable values count as false.
func RefreshTestMode() {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(err == nil && on)
}
