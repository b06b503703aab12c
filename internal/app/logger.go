package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON in production-style deployments,
// human-readable text everywhere else. Every record carries the service name
// so aggregated logs from the API and the worker stay distinguishable.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "tillbook"))
}
