package amf3

import "go.uber.org/zap"

// logger is package-global and nop by default so importing amf3 never
// forces a logging backend on the caller. SetLogger lets a host process
// opt in to visibility over registry overwrite events.
var logger = zap.NewNop()

// SetLogger replaces the package-wide logger. Passing nil restores the
// no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
