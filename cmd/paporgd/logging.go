package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iperka/paporg-sub001/internal/tracker"
)

// newLogger builds the daemon's file logger: JSON records written
// through a size-rotated lumberjack writer, mirrored to bc (if
// non-nil) so live subscribers see the same records.
func newLogger(path, level string, bc *tracker.LogBroadcaster) (*slog.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	var handler slog.Handler = slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: parseLevel(level)})
	if bc != nil {
		handler = tracker.NewBroadcastHandler(handler, bc)
	}
	return slog.New(handler), nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
