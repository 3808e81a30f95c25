package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-relay/contract"
)

// HealthWorker periodically logs the relay's own resource usage and the
// current room occupancy. It observes, it never mutates.
type HealthWorker struct {
	log      *slog.Logger
	room     contract.IRoom
	interval time.Duration
}

func NewHealthWorker(log *slog.Logger, room contract.IRoom, interval time.Duration) *HealthWorker {
	return &HealthWorker{log: log, room: room, interval: interval}
}

// Run samples CPU, RSS and process status on every tick until the
// context is canceled. Sampling errors are logged and skipped; the
// worker only stops on cancellation.
func (w *HealthWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			memInfo, err := p.MemoryInfo()
			if err != nil {
				w.log.Error("Error while finding process ram usage", "err", err)
				continue
			}
			status, err := p.Status()
			if err != nil {
				w.log.Error("Error while finding process status", "err", err)
				continue
			}

			users := w.room.Users()
			w.log.Info("Relay health",
				"status", status,
				"cpu_percent", cpu,
				"rss_bytes", memInfo.RSS,
				"connected_users", len(users),
			)
		}
	}
}
