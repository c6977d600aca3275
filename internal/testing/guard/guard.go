// Package guard is imported blank by cmd tests. It turns test mode on unless
// the environment already decides it.
package guard

import (
	"os"

	"github.com/odyssey-erp/workdesk/internal/app"
)

func init() {
	if _, set := os.LookupEnv(app.TestModeEnv); !set {
		_ = os.Setenv(app.TestModeEnv, "true")
	}
	app.RefreshTestMode()
}
