package ravrf

import (
	"log/slog"
	"os"
)

var storeLogLevel = new(slog.LevelVar)

// levelByName maps the RAVRF_LOG_LEVEL values a caller can set to their
// slog.Level, leaving Info as the implicit default for anything else
// (including an unset or unrecognized value).
var levelByName = map[string]slog.Level{
	"DEBUG": slog.LevelDebug,
	"WARN":  slog.LevelWarn,
	"ERROR": slog.LevelError,
}

// ConfigureLogging installs a TextHandler as the global default slog logger,
// tagged with a "component=ravrf" attribute so its lines are distinguishable
// in a host process that logs from multiple packages. The level is read from
// RAVRF_LOG_LEVEL at call time; Create/Open/Close and the lint scanner log
// through this default logger at Debug, so a caller who wants to see them
// sets RAVRF_LOG_LEVEL=DEBUG before calling ConfigureLogging. Applications
// embedding this module call it once at startup.
func ConfigureLogging() {
	storeLogLevel.Set(slog.LevelInfo)
	if lvl, ok := levelByName[os.Getenv("RAVRF_LOG_LEVEL")]; ok {
		storeLogLevel.Set(lvl)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: storeLogLevel,
	})
	slog.SetDefault(slog.New(handler).With("component", "ravrf"))
}

// SetLogLevel overrides the level set by ConfigureLogging, e.g. to raise
// verbosity mid-run without reinstalling the handler.
func SetLogLevel(level slog.Level) {
	storeLogLevel.Set(level)
}
