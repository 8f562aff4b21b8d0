package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewTimer tests timer creation
func TestNewTimer(t *testing.T) {
	timer := NewTimer()

	if timer == nil {
		t.Fatal("NewTimer() returned nil")
	}

	if timer.start.IsZero() {
		t.Error("NewTimer() start time is zero")
	}

	// Verify start time is recent (within last second)
	if time.Since(timer.start) > time.Second {
		t.Error("NewTimer() start time is not recent")
	}
}

// TestTimerObserveDuration tests histogram observation
func TestTimerObserveDuration(t *testing.T) {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration histogram",
		Buckets: prometheus.DefBuckets,
	})

	timer := NewTimer()
	time.Sleep(50 * time.Millisecond)

	// This should not panic, and should record a duration at or above
	// the sleep.
	timer.ObserveDuration(histogram)
}
