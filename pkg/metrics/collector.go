package metrics

import "time"

// RouterStats is the narrow view of package mux's Router this
// collector needs. It is declared here, rather than importing the mux
// package directly, because mux itself increments these very metrics -
// an import the other way would cycle.
type RouterStats interface {
	Stats() (activeSubmissions, listenersAttached int)
}

// Collector periodically samples a Router's gauges. EventsRouted,
// BuildStartedSynthesized, BuildFinishedSynthesized and ListenerFaults
// are counters updated inline by package mux as they happen;
// Collector only needs to poll the two gauges that reflect
// point-in-time state.
type Collector struct {
	router RouterStats
	stopCh chan struct{}
}

// NewCollector creates a metrics collector for router.
func NewCollector(router RouterStats) *Collector {
	return &Collector{
		router: router,
		stopCh: make(chan struct{}),
	}
}

// Start begins periodic sampling.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	active, listeners := c.router.Stats()
	SubmissionsActive.Set(float64(active))
	ListenersAttached.Set(float64(listeners))
}
