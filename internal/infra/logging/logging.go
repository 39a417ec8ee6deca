package logging

import (
	"log/slog"
	"os"
)

// SetupJSON installs a JSON slog handler as the process default. Both
// binaries call this once, right after config load.
func SetupJSON(level slog.Level) {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}
