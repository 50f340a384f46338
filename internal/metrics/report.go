package metrics

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Report is an instantaneous view of the service counters merged with
// ambient process facts at read time. There is no history and nothing is
// persisted.
type Report struct {
	PID            int     `json:"pid"`
	UptimeSeconds  float64 `json:"uptimeSeconds"`
	MemoryRSSBytes uint64  `json:"memoryRssBytes"`
	Goroutines     int     `json:"goroutines"`

	ConnectionsActive uint64 `json:"connectionsActive"`
	ConnectionsTotal  uint64 `json:"connectionsTotal"`
	MessagesRouted    uint64 `json:"messagesRouted"`
	HandlerErrors     uint64 `json:"handlerErrors"`
}

// Report builds the snapshot. Process facts are best-effort: a probe
// failure leaves the corresponding fields zero rather than failing the
// whole report.
func (m *Metrics) Report() Report {
	snap := m.Snapshot()

	r := Report{
		PID:        os.Getpid(),
		Goroutines: runtime.NumGoroutine(),

		ConnectionsActive: snap[ConnectionsActive],
		ConnectionsTotal:  snap[ConnectionsTotal],
		MessagesRouted:    snap[MessagesRouted],
		HandlerErrors:     snap[HandlerErrors],
	}

	if proc, err := process.NewProcess(int32(r.PID)); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			r.MemoryRSSBytes = mem.RSS
		}
		if createdMs, err := proc.CreateTime(); err == nil {
			created := time.UnixMilli(createdMs)
			r.UptimeSeconds = time.Since(created).Seconds()
		}
	}

	return r
}
