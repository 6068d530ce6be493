// Package klog provides the structured logger shared across the render core.
package klog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Base is the root logger; components derive sub-loggers from it via With
// so log lines carry a "component" field without callers re-specifying it
// per call site.
var Base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Level:           log.InfoLevel,
})

// For returns a sub-logger tagged with the given component name.
func For(component string) *log.Logger {
	return Base.With("component", component)
}

// SetLevel adjusts the global log level (e.g. from config/CLI flags).
func SetLevel(level log.Level) {
	Base.SetLevel(level)
}
