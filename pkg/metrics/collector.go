package metrics

import (
	"context"
	"runtime"
	"time"
)

// CollectSystemMetrics samples memory and goroutine gauges once.
func CollectSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.Alloc)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// RunSystemCollector samples system gauges every refresh interval until ctx is done.
func RunSystemCollector(ctx context.Context) {
	interval := global().RefreshInterval()
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	CollectSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			CollectSystemMetrics()
		}
	}
}
