// Package metrics exposes Prometheus counters and gauges for both
// server roles, served over plain HTTP via promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Naming holds the naming server's counters and gauges.
type Naming struct {
	Registrations   prometheus.Counter
	Decommissions   prometheus.Counter
	DeleteListSize  prometheus.Histogram
	ServiceCalls    *prometheus.CounterVec
	RegisteredCount prometheus.Gauge
}

// NewNaming registers and returns the naming server's metrics.
func NewNaming() *Naming {
	return &Naming{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dfs_naming_registrations_total",
			Help: "Total number of storage server registrations accepted.",
		}),
		Decommissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dfs_naming_decommissions_total",
			Help: "Total number of storage server registrations removed.",
		}),
		DeleteListSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dfs_naming_delete_list_size",
			Help:    "Size of the delete list returned per registration.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		ServiceCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dfs_naming_service_calls_total",
			Help: "Total Service endpoint calls, by method and outcome.",
		}, []string{"method", "outcome"}),
		RegisteredCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dfs_naming_registered_storage_servers",
			Help: "Current number of registered storage servers.",
		}),
	}
}

// Storage holds a storage server's counters.
type Storage struct {
	BytesRead    prometheus.Counter
	BytesWritten prometheus.Counter
	CommandCalls *prometheus.CounterVec
}

// NewStorage registers and returns a storage server's metrics.
func NewStorage() *Storage {
	return &Storage{
		BytesRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dfs_storage_bytes_read_total",
			Help: "Total bytes served by read calls.",
		}),
		BytesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dfs_storage_bytes_written_total",
			Help: "Total bytes accepted by write calls.",
		}),
		CommandCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dfs_storage_command_calls_total",
			Help: "Total Command endpoint calls, by method and outcome.",
		}, []string{"method", "outcome"}),
	}
}

// Serve starts a blocking HTTP server exposing /metrics on addr.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
