// Package metrics wires prometheus/client_golang into the ambient
// observability surface: a gauge of tracked aircraft, per-protocol
// ingest/parse-failure counters, and a gauge of connected clients on
// the two TCP servers. Additive over the original system, which has
// no metrics of its own; exposed via a Registry the supervisor can
// optionally serve over HTTP.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric FlightBox exports.
type Registry struct {
	reg *prometheus.Registry

	AircraftTracked prometheus.Gauge
	MessagesTotal   *prometheus.CounterVec
	ParseFailures   *prometheus.CounterVec
	ClientsOGN      prometheus.Gauge
	ClientsAirConn  prometheus.Gauge
}

// New constructs a Registry with every metric registered against a
// fresh prometheus.Registry (not the global DefaultRegisterer, so
// tests and multiple instances don't collide).
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		AircraftTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightbox_aircraft_tracked",
			Help: "Number of aircraft currently tracked in the state store.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightbox_messages_ingested_total",
			Help: "Messages ingested, labeled by content type.",
		}, []string{"content_type"}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightbox_parse_failures_total",
			Help: "Parse failures, labeled by wire protocol.",
		}, []string{"protocol"}),
		ClientsOGN: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightbox_ogn_clients_connected",
			Help: "Number of connected OGN APRS-IS clients.",
		}),
		ClientsAirConn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightbox_airconnect_clients_connected",
			Help: "Number of connected AirConnect clients.",
		}),
	}

	reg.MustRegister(r.AircraftTracked, r.MessagesTotal, r.ParseFailures, r.ClientsOGN, r.ClientsAirConn)
	return r
}

// Gatherer exposes the underlying registry for promhttp.HandlerFor.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
