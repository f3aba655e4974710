// Package observability aggregates relay telemetry for logs and the
// inspect page. Counters are atomic; snapshots are guarded by a mutex.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/process"
)

// RelayStats is the periodic snapshot rendered by the debug server.
type RelayStats struct {
	ActiveConnections int64   `json:"active_connections"`
	ActiveSessions    int64   `json:"active_sessions"`
	EventsBroadcast   uint64  `json:"events_broadcast"`
	ChatMessages      uint64  `json:"chat_messages"`
	DeliveryFailures  uint64  `json:"delivery_failures"`
	TelemetryDropped  uint64  `json:"telemetry_dropped"`
	CPUPercent        float64 `json:"cpu_percent"`
	RSSBytes          uint64  `json:"rss_bytes"`
	AllocMemMb        uint64  `json:"alloc_mem_mb"`
	NumGC             uint32  `json:"num_gc"`
	Goroutines        int     `json:"goroutines"`
}

type Monitoring struct {
	log *slog.Logger
	mu  sync.RWMutex

	latest RelayStats
	proc   *process.Process

	activeConnections int64
	activeSessions    int64
	eventsBroadcast   uint64
	chatMessages      uint64
	deliveryFailures  uint64
	telemetryDropped  uint64
}

func NewMonitoring(log *slog.Logger) *Monitoring {
	// A process handle failure only disables CPU/RSS sampling.
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Debug("Self process handle unavailable", "err", err)
		proc = nil
	}
	return &Monitoring{log: log, proc: proc}
}

func (m *Monitoring) ConnectionOpened() { atomic.AddInt64(&m.activeConnections, 1) }
func (m *Monitoring) ConnectionClosed() { atomic.AddInt64(&m.activeConnections, -1) }
func (m *Monitoring) SessionStarted()   { atomic.AddInt64(&m.activeSessions, 1) }
func (m *Monitoring) SessionEnded()     { atomic.AddInt64(&m.activeSessions, -1) }

func (m *Monitoring) IncrEventsBroadcast()  { atomic.AddUint64(&m.eventsBroadcast, 1) }
func (m *Monitoring) IncrChatMessages()     { atomic.AddUint64(&m.chatMessages, 1) }
func (m *Monitoring) IncrDeliveryFailures() { atomic.AddUint64(&m.deliveryFailures, 1) }
func (m *Monitoring) IncrTelemetryDropped() { atomic.AddUint64(&m.telemetryDropped, 1) }

// GetLatest returns the last computed snapshot.
func (m *Monitoring) GetLatest() RelayStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Refresh recomputes the snapshot from the atomic counters and the process
// metrics. The telemetry worker calls it on every metric interval tick.
func (m *Monitoring) Refresh() {
	stats := RelayStats{
		ActiveConnections: atomic.LoadInt64(&m.activeConnections),
		ActiveSessions:    atomic.LoadInt64(&m.activeSessions),
		EventsBroadcast:   atomic.LoadUint64(&m.eventsBroadcast),
		ChatMessages:      atomic.LoadUint64(&m.chatMessages),
		DeliveryFailures:  atomic.LoadUint64(&m.deliveryFailures),
		TelemetryDropped:  atomic.LoadUint64(&m.telemetryDropped),
		Goroutines:        runtime.NumGoroutine(),
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.AllocMemMb = memStats.Alloc / 1024 / 1024
	stats.NumGC = memStats.NumGC

	if m.proc != nil {
		if cpu, err := m.proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
		if memInfo, err := m.proc.MemoryInfo(); err == nil {
			stats.RSSBytes = memInfo.RSS
		}
	}

	m.mu.Lock()
	m.latest = stats
	m.mu.Unlock()

	m.log.Debug("Stats updated",
		"connections", stats.ActiveConnections,
		"sessions", stats.ActiveSessions,
		"broadcast", stats.EventsBroadcast,
		"delivery_failures", stats.DeliveryFailures,
	)
}
