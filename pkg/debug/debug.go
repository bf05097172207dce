// Package debug provides conditional debug logging for threatmap.
//
// Debug logging is enabled by setting the THREATMAP_DEBUG environment variable:
//
//	THREATMAP_DEBUG=1 threatmap render --focus ransomware
//
// When enabled, debug messages are written to stderr with timestamps.
// When disabled (default), the debug functions are no-ops. Warn always logs.
//
// Usage:
//
//	import "github.com/vanderheijden86/threatmap/pkg/debug"
//
//	func myFunc() {
//	    debug.Log("processing %d items", count)
//	    // ...
//	    debug.LogTiming("myFunc", elapsed)
//	}
package debug

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// enabled is true when THREATMAP_DEBUG env var is set
	enabled bool
	// logger writes to stderr
	logger *zap.SugaredLogger
)

func init() {
	enabled = os.Getenv("THREATMAP_DEBUG") != ""
	logger = newLogger(enabled)
}

func newLogger(verbose bool) *zap.SugaredLogger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core).Named("threatmap").Sugar()
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
	logger = newLogger(e)
}

// SetLogger replaces the underlying logger. Tests use it with zaptest/observer
// cores; passing nil restores the default stderr logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = newLogger(enabled)
		return
	}
	logger = l.Sugar()
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Debugf(format, args...)
}

// Warn writes a warning regardless of the debug setting.
func Warn(format string, args ...any) {
	logger.Warnf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Debugw("timing", "op", name, "took", d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	logger.Debugf(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
// Usage:
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    // ...
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Debugf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Debugf("<- %s (%v)", name, time.Since(start))
	}
}

// Section logs a section header for visual organization in debug output.
func Section(name string) {
	if !enabled {
		return
	}
	logger.Debugf("=== %s ===", name)
}

// Sync flushes buffered log entries. Call it before exit.
func Sync() {
	_ = logger.Sync()
}
