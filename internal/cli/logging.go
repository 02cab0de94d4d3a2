package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// newLogger returns a logger writing to w at level. Terminals get the
// colored charmbracelet handler; anything else gets plain key=value text.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	if isTerminal(w) {
		handler := log.NewWithOptions(w, log.Options{
			Level:           log.Level(level),
			Prefix:          "cjs",
			ReportTimestamp: true,
		})
		return slog.New(handler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
