package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TrackerLookupTotal counts per-carrier oracle lookups by outcome.
	TrackerLookupTotal *prometheus.CounterVec
	// TrackerLookupLatency records per-carrier oracle lookup latency in milliseconds.
	TrackerLookupLatency *prometheus.HistogramVec
	// FanoutDuration records the wall time of a full carrier fan-out in milliseconds.
	FanoutDuration prometheus.Histogram
	// FanoutResults records how many carriers answered per fan-out.
	FanoutResults prometheus.Histogram
	// CommandTotal counts chat commands by name and outcome.
	CommandTotal *prometheus.CounterVec
	// SelectionTotal counts reaction selections by outcome.
	SelectionTotal *prometheus.CounterVec
	// CarrierDirectorySize reports the number of carriers in the current snapshot.
	CarrierDirectorySize prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers bot Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TrackerLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracker_lookup_total",
			Help:      "Count of per-carrier tracking lookups by outcome.",
		}, []string{"result"})
		TrackerLookupLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tracker_lookup_duration_ms",
			Help:      "Latency of per-carrier tracking lookups in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 1500, 2500},
		}, []string{"result"})
		FanoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parcel_fanout_duration_ms",
			Help:      "Wall time of a parcel fan-out across all carriers in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000},
		})
		FanoutResults = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parcel_fanout_results",
			Help:      "Number of carriers that returned a result per fan-out.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		})
		CommandTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_command_total",
			Help:      "Count of handled chat commands by outcome.",
		}, []string{"command", "result"})
		SelectionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parcel_selection_total",
			Help:      "Count of reaction selections by outcome.",
		}, []string{"result"})
		CarrierDirectorySize = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "carrier_directory_size",
			Help:      "Number of carriers in the loaded directory snapshot.",
		})

		mustRegisterCollector(reg, TrackerLookupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TrackerLookupTotal = v
			}
		})
		mustRegisterCollector(reg, TrackerLookupLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				TrackerLookupLatency = v
			}
		})
		mustRegisterCollector(reg, FanoutDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				FanoutDuration = v
			}
		})
		mustRegisterCollector(reg, FanoutResults, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				FanoutResults = v
			}
		})
		mustRegisterCollector(reg, CommandTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CommandTotal = v
			}
		})
		mustRegisterCollector(reg, SelectionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SelectionTotal = v
			}
		})
		mustRegisterCollector(reg, CarrierDirectorySize, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				CarrierDirectorySize = v
			}
		})
	})
}

// ObserveLookup records a single oracle lookup outcome. Safe to call before
// the collectors are registered.
func ObserveLookup(result string, millis float64) {
	if TrackerLookupTotal != nil {
		TrackerLookupTotal.WithLabelValues(result).Inc()
	}
	if TrackerLookupLatency != nil {
		TrackerLookupLatency.WithLabelValues(result).Observe(millis)
	}
}

// ObserveFanout records the duration and hit count of a completed fan-out.
func ObserveFanout(millis float64, found int) {
	if FanoutDuration != nil {
		FanoutDuration.Observe(millis)
	}
	if FanoutResults != nil {
		FanoutResults.Observe(float64(found))
	}
}

// CountCommand increments the command counter.
func CountCommand(command, result string) {
	if CommandTotal != nil {
		CommandTotal.WithLabelValues(command, result).Inc()
	}
}

// CountSelection increments the selection counter.
func CountSelection(result string) {
	if SelectionTotal != nil {
		SelectionTotal.WithLabelValues(result).Inc()
	}
}

// SetCarrierCount publishes the directory size.
func SetCarrierCount(n int) {
	if CarrierDirectorySize != nil {
		CarrierDirectorySize.Set(float64(n))
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
