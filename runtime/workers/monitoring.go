package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// StatsFunc lets the relay contribute application-level figures (connected
// identities, live sinks) to each sample without coupling the worker to
// the registry type.
type StatsFunc func() map[string]any

// MonitoringWorker periodically samples the server process (CPU, resident
// memory, goroutines) together with relay stats and writes one structured
// log line per interval.
type MonitoringWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	stats          StatsFunc
}

func NewMonitoringWorker(log *slog.Logger, metricInterval time.Duration, stats StatsFunc) *MonitoringWorker {
	return &MonitoringWorker{log: log, metricInterval: metricInterval, stats: stats}
}

func (w *MonitoringWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping monitoring")
			return nil
		case <-ticker.C:
			w.sample(proc)
		}
	}
}

func (w *MonitoringWorker) sample(proc *process.Process) {
	attrs := []any{"goroutines", runtime.NumGoroutine()}

	if cpu, err := proc.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	}
	if ram, err := proc.MemoryPercent(); err == nil {
		attrs = append(attrs, "ram_percent", ram)
	}
	if w.stats != nil {
		for k, v := range w.stats() {
			attrs = append(attrs, k, v)
		}
	}

	w.log.Info("relay health", attrs...)
}
