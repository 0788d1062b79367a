package metrics

import (
	"context"
	"runtime"
	"time"
)

// StartSystemCollector samples memory, goroutine and GC gauges on the
// manager's refresh interval until ctx is cancelled. It is a no-op when
// metrics are disabled.
func StartSystemCollector(ctx context.Context) {
	globalManager.startSystemCollector(ctx)
}

func (m *Manager) startSystemCollector(ctx context.Context) {
	if !m.enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(m.refreshInterval)
		defer ticker.Stop()

		var lastNumGC uint32
		for {
			lastNumGC = m.sampleSystem(lastNumGC)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// sampleSystem updates the runtime gauges and observes GC pauses that
// happened since lastNumGC. It returns the new GC count.
func (m *Manager) sampleSystem(lastNumGC uint32) uint32 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.systemMemoryUsage.Set(float64(ms.Alloc))
	m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))

	// PauseNs is a ring of the last 256 pauses.
	n := ms.NumGC - lastNumGC
	if n > uint32(len(ms.PauseNs)) {
		n = uint32(len(ms.PauseNs))
	}
	for i := uint32(0); i < n; i++ {
		idx := (ms.NumGC - i + uint32(len(ms.PauseNs)) - 1) % uint32(len(ms.PauseNs))
		m.systemGCPauseTime.Observe(float64(ms.PauseNs[idx]) / float64(time.Millisecond))
	}
	return ms.NumGC
}
