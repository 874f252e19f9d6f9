// Package log carries the kernel's shared logger. The level defaults to
// Info; the TRACE environment variable raises it to Trace, which turns on
// the per-event scheduler and IPC logs.
package log

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

var L hclog.Logger

func init() {
	L = hclog.New(&hclog.LoggerOptions{
		Name: "quintos",
	})
	L.SetLevel(hclog.Info)

	if str := os.Getenv("TRACE"); str != "" {
		L.SetLevel(hclog.Trace)
	}
}
