package main

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger builds the process logger from a level name. Progress markers go
// to stdout, so logs use their own writer.
func newLogger(levelName string, w io.Writer) *slog.Logger {
	level := new(slog.LevelVar)

	switch strings.ToUpper(levelName) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "WARN":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}
