// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the standard StageGate logger. When stderr is a
// terminal, it uses slog.TextHandler for human-readable output. When
// stderr is piped or redirected (CI, scripts, systemd), it uses
// slog.JSONHandler for machine-parseable output. It also sets the
// default slog logger so that third-party code using slog.Info etc.
// gets the same handler.
//
// Callers scope the logger with component context via With():
//
//	logger := service.NewLogger(level).With("component", "sweeper")
func NewLogger(level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLogLevel maps a configuration log level string to its slog
// level. The input is expected to have passed config validation, so
// an unknown value is a programming error on the caller's part.
func ParseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}
