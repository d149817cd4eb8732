//go:build !debugheaplog

package internal

import (
	"context"
	"log/slog"
)

// LogEnabled reports whether l would emit a record at lvl. A nil logger emits nothing.
func LogEnabled(l *slog.Logger, lvl slog.Level) bool {
	return l != nil && l.Handler().Enabled(context.Background(), lvl)
}

// LogAttrs is used by all package loggers so a nil *slog.Logger disables logging.
// Building with the debugheaplog tag replaces it with a print based logger that
// reports heap growth between records.
func LogAttrs(l *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if l != nil {
		l.LogAttrs(context.Background(), level, msg, attrs...)
	}
}
