package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON with source locations for
// production aggregation, readable text otherwise. Every record carries the
// service name so gateway lines are filterable next to the ERP's own logs.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "erpgate"))
}
