package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PacketsCaptured counts frames received per datasource instance.
	PacketsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "datasource_packets_captured_total",
			Help:      "Total number of frames captured by a datasource instance",
		},
		[]string{"source_uuid"},
	)

	// PacketsProcessed counts frames that made it through the packet chain.
	PacketsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "packetchain_packets_processed_total",
			Help:      "Total number of frames that completed packet chain dispatch",
		},
		[]string{"stage"},
	)

	// PacketsDropped counts frames a chain handler dropped before DESTROY.
	PacketsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "packetchain_packets_dropped_total",
			Help:      "Total number of frames dropped mid-chain",
		},
		[]string{"stage", "reason"},
	)

	// DevicesTracked reports the current device registry size.
	DevicesTracked = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kismet",
			Name:      "devicetracker_devices",
			Help:      "Current number of tracked devices",
		},
		[]string{"phy"},
	)

	// DatasourceErrors counts driver errors recorded on a source instance.
	DatasourceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "datasource_errors_total",
			Help:      "Total number of errors recorded against a datasource instance",
		},
		[]string{"source_uuid"},
	)

	once sync.Once
)

// InitMetrics registers every collector with the default Prometheus
// registry. Idempotent so it is safe to call from both the daemon and
// tests that construct multiple Applications in the same process.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(PacketsCaptured)
		prometheus.DefaultRegisterer.Register(PacketsProcessed)
		prometheus.DefaultRegisterer.Register(PacketsDropped)
		prometheus.DefaultRegisterer.Register(DevicesTracked)
		prometheus.DefaultRegisterer.Register(DatasourceErrors)
	})
}
