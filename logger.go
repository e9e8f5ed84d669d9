package rendercore

import (
	"log/slog"

	"github.com/gogpu/rendercore/internal/logging"
)

// SetLogger configures the logger for rendercore and all its sub-packages.
// By default, rendercore produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used by rendercore:
//   - [slog.LevelDebug]: per-frame diagnostics (skipped frames, buffer growth)
//   - [slog.LevelInfo]: lifecycle events (renderer created, closed)
//   - [slog.LevelWarn]: recoverable failures (surface reconfigure, pool overflow)
//
// Example:
//
//	rendercore.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by rendercore.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
