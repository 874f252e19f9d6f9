package log

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

// EnableDebug re-applies the TRACE toggle for callers that set the
// variable after package init.
func EnableDebug() {
	if str := os.Getenv("TRACE"); str != "" {
		L.SetLevel(hclog.Trace)
	}
}
