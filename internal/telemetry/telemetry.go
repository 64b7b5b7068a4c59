// Package telemetry wires the engine's structured logging, built on
// go.uber.org/zap the way AltairaLabs-Omnia and nmxmxh-inos_v1 both
// construct their loggers.
package telemetry

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once   sync.Once
	global *zap.Logger
)

// L returns the process-wide logger, building a sane production
// logger (JSON encoding, info level) on first use. Tests should call
// SetForTesting instead of relying on this default.
func L() *zap.Logger {
	once.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		global = l
	})
	return global
}

// SetForTesting installs l as the global logger, returning a restore
// function. Intended for table tests that want zaptest's observer;
// cmd/launcher also uses it to install the -v debug logger.
func SetForTesting(l *zap.Logger) (restore func()) {
	prev := global
	global = l
	once.Do(func() {}) // ensure once is considered fired
	return func() { global = prev }
}

// New builds a development-mode logger (human-readable, debug level),
// used by cmd/launcher when -v is passed.
func New(verbose bool) *zap.Logger {
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			return l
		}
	}
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
