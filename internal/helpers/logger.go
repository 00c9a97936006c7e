package helpers

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a text logger on stderr. Verbosity counts -v flags:
// 0 logs warnings and up, each step reveals one more level.
func NewLogger(verbosity int) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn - slog.Level(verbosity*4),
	}))
}

func NewNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
