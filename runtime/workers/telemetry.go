package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker periodically logs the server's own CPU and memory usage.
// Chat fan-out is memory bound (one buffered channel per connection), so a
// drifting RSS is the first sign of leaked sessions.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			memInfo, err := p.MemoryInfo()
			if err != nil {
				w.log.Error("Failed to collect memory stats", "err", err)
				continue
			}
			cpuPercent, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Failed to collect cpu stats", "err", err)
				continue
			}
			w.log.Info("Process stats",
				"rss_bytes", memInfo.RSS,
				"cpu_percent", cpuPercent)
		}
	}
}
