package main

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging installs the default slog logger. Logs always go to a rotating
// file; verbose mode also writes debug output to stderr.
func setupLogging(file string, verbose bool) io.Closer {
	fileWriter := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	level := slog.LevelInfo
	var w io.Writer = fileWriter
	if verbose {
		level = slog.LevelDebug
		w = io.MultiWriter(os.Stderr, fileWriter)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return fileWriter
}
