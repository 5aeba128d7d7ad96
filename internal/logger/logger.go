package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"finance-portal/internal/config"
)

// ParseLevel maps a config level name to a slog level. Unknown names fall
// back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds the process logger. When cfg.File is set, output goes to both
// stdout and the file. The returned closer releases the file handle.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
	}

	return NewWithWriter(out, cfg), closer, nil
}

// NewWithWriter builds a logger on an arbitrary writer.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("app", "finance-portal")
}
