//go:build debugheaplog

package internal

import (
	"log/slog"
	"runtime"
	"sync"
)

var heaplog struct {
	mu      sync.Mutex
	stats   runtime.MemStats
	total   uint64
	mallocs uint64
}

func LogEnabled(*slog.Logger, slog.Level) bool { return true }

// LogAttrs prints the record with the runtime print builtins, which never touch
// the heap, and then any allocation made since the previous record.
func LogAttrs(_ *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if level == LevelTrace {
		print("TRACE ")
	} else {
		print(level.String(), " ")
	}
	print(msg)
	for _, a := range attrs {
		switch a.Value.Kind() {
		case slog.KindString:
			print(" ", a.Key, "=", a.Value.String())
		case slog.KindInt64:
			print(" ", a.Key, "=", a.Value.Int64())
		case slog.KindUint64:
			print(" ", a.Key, "=", a.Value.Uint64())
		case slog.KindBool:
			print(" ", a.Key, "=", a.Value.Bool())
		}
	}
	println()

	heaplog.mu.Lock()
	defer heaplog.mu.Unlock()
	runtime.ReadMemStats(&heaplog.stats)
	if heaplog.stats.TotalAlloc != heaplog.total {
		println("[ALLOC]", msg,
			"inc=", heaplog.stats.TotalAlloc-heaplog.total,
			"n=", heaplog.stats.Mallocs-heaplog.mallocs,
			"heap=", heaplog.stats.HeapAlloc)
	}
	heaplog.total = heaplog.stats.TotalAlloc
	heaplog.mallocs = heaplog.stats.Mallocs
}
