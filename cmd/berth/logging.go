package main

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// Logrus Bridge
// =============================================================================

// logrusBridge forwards logrus entries, written by compose-go while loading
// descriptors, to the slog logger.
type logrusBridge struct {
	logger *slog.Logger
}

func (h *logrusBridge) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *logrusBridge) Fire(e *logrus.Entry) error {
	level := slog.LevelInfo
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		level = slog.LevelError
	case logrus.WarnLevel:
		level = slog.LevelWarn
	case logrus.DebugLevel, logrus.TraceLevel:
		level = slog.LevelDebug
	}

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		attrs = append(attrs, k, e.Data[k])
	}

	h.logger.Log(context.Background(), level, e.Message, attrs...)
	return nil
}

// RouteLogrus sends the standard logrus logger's output to logger instead of stderr.
func RouteLogrus(logger *slog.Logger) {
	std := logrus.StandardLogger()
	std.SetOutput(io.Discard)
	std.ReplaceHooks(make(logrus.LevelHooks))
	std.AddHook(&logrusBridge{logger: logger.With("component", "compose-go")})
}
