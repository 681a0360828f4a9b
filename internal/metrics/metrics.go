// Package metrics provides Prometheus instrumentation for the Mudra
// pipeline: sample intake, gesture firing, bus fan-out and sink delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mudra"

var (
	samplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "samples_total",
		Help:      "Raw samples received, labeled by source.",
	}, []string{"source"})

	sensorRestartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "sensor_restarts_total",
		Help:      "Source-lost recoveries, labeled by source.",
	}, []string{"source"})

	gestureEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gesture",
		Name:      "events_total",
		Help:      "Gesture events fired, labeled by gesture label.",
	}, []string{"label"})

	coordinatesRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "smoothing",
		Name:      "rejected_total",
		Help:      "Position samples rejected as tracking glitches.",
	})

	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "published_total",
		Help:      "Events published, labeled by topic.",
	}, []string{"topic"})

	deliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "delivered_total",
		Help:      "Events delivered, labeled by topic and sink.",
	}, []string{"topic", "sink"})

	supersededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "superseded_total",
		Help:      "Events overwritten or dropped before delivery, labeled by topic and sink.",
	}, []string{"topic", "sink"})

	sinkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bus",
		Name:      "sink_errors_total",
		Help:      "Failed delivery attempts, labeled by topic and sink.",
	}, []string{"topic", "sink"})

	visualizationClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "server",
		Name:      "visualization_clients",
		Help:      "Connected WebSocket visualization clients.",
	})
)

// RecordSample counts one raw sample from the named source.
func RecordSample(source string) {
	samplesTotal.WithLabelValues(source).Inc()
}

// RecordSensorRestart counts one source-lost recovery.
func RecordSensorRestart(source string) {
	sensorRestartsTotal.WithLabelValues(source).Inc()
}

// RecordGestureEvent counts one fired gesture.
func RecordGestureEvent(label string) {
	gestureEventsTotal.WithLabelValues(label).Inc()
}

// RecordCoordinateRejected counts one outlier-rejected position sample.
func RecordCoordinateRejected() {
	coordinatesRejectedTotal.Inc()
}

// RecordPublish counts one event published to a topic.
func RecordPublish(topic string) {
	publishedTotal.WithLabelValues(topic).Inc()
}

// RecordDelivery counts one successful sink delivery.
func RecordDelivery(topic, sink string) {
	deliveredTotal.WithLabelValues(topic, sink).Inc()
}

// RecordSuperseded counts one event overwritten or dropped before delivery.
func RecordSuperseded(topic, sink string) {
	supersededTotal.WithLabelValues(topic, sink).Inc()
}

// RecordSinkError counts one failed delivery attempt.
func RecordSinkError(topic, sink string) {
	sinkErrorsTotal.WithLabelValues(topic, sink).Inc()
}

// SetVisualizationClients updates the connected client gauge.
func SetVisualizationClients(n int) {
	visualizationClients.Set(float64(n))
}
