package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/cyp0633/libgitdoc/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the process logger. Output goes to stderr, or to a rotated
// file when one is configured. verbose forces debug level.
func newLogger(c config.LogConfig, verbose bool) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	if c.File != "" {
		out = &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	}
	return slog.New(slog.NewTextHandler(out, opts)), nil
}
