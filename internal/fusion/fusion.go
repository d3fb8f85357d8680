// Package fusion is the transformer at the heart of FlightBox: an
// input task that applies incoming sbs1/ogn/nmea messages to the
// state store, and a periodic tick task that emits FLARM sentences
// for every tracked aircraft and reaps stale records. Grounded on
// input_processor/data_processor and generate_flarm_messages in
// transformation_sbs1ognnmea_flarm.py.
package fusion

import (
	"context"
	"math"
	"time"

	"github.com/flightbox/flightbox/internal/geo"
	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
	"github.com/flightbox/flightbox/internal/metrics"
	"github.com/flightbox/flightbox/internal/store"
	"github.com/flightbox/flightbox/internal/wire/nmea"
	"github.com/flightbox/flightbox/internal/wire/ogn"
	"github.com/flightbox/flightbox/internal/wire/sbs1"
)

// TickInterval is the fusion component's periodic emission/aging
// cadence.
const TickInterval = 1 * time.Second

const (
	distanceMin = -32768.0
	distanceMax = 32767.0
)

// Fusion owns the store and runs the two sibling tasks described in
// spec §4.6: Input and Tick.
type Fusion struct {
	store   *store.Store
	sub     <-chan hub.Message
	out     *hub.Hub
	log     logging.Logger
	metrics *metrics.Registry

	allowedSBS1Types map[string]struct{}
}

// New builds a Fusion reading from sub (subscribed to {sbs1,ogn,nmea})
// and writing generated FLARM sentences to out.
func New(sub <-chan hub.Message, out *hub.Hub, st *store.Store, allowedSBS1Types map[string]struct{}, log logging.Logger, m *metrics.Registry) *Fusion {
	return &Fusion{
		store:            st,
		sub:              sub,
		out:              out,
		log:              log.With("Fusion"),
		metrics:          m,
		allowedSBS1Types: allowedSBS1Types,
	}
}

// RunInput drains sub, dispatching each message to the matching
// parser, until the channel is closed (the hub's sentinel) or ctx is
// cancelled.
func (f *Fusion) RunInput(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-f.sub:
			if !ok || msg.IsSentinel() {
				return
			}
			f.dispatch(msg)
		}
	}
}

func (f *Fusion) dispatch(msg hub.Message) {
	now := time.Now()
	if f.metrics != nil {
		f.metrics.MessagesTotal.WithLabelValues(string(msg.Type)).Inc()
	}

	// Parsers never raise to this loop: wire-level parse errors are
	// absorbed inside each Apply function and simply result in a
	// no-op update, matching spec's propagation policy.
	switch msg.Type {
	case hub.ContentSBS1:
		sbs1.Apply(msg.Payload, f.allowedSBS1Types, now, f.store)
	case hub.ContentOGN:
		ogn.Apply(msg.Payload, now, f.store)
	case hub.ContentNMEA:
		f.applyNMEA(msg.Payload, now)
	}
}

func (f *Fusion) applyNMEA(line string, now time.Time) {
	var ok bool
	switch {
	case hasPrefix(line, "$GPGGA"):
		ok = nmea.ApplyGGA(line, now, f.store)
	case hasPrefix(line, "$GPGLL"):
		ok = nmea.ApplyGLL(line, now, f.store)
	case hasPrefix(line, "$GPVTG"):
		ok = nmea.ApplyVTG(line, now, f.store)
	default:
		return
	}
	if !ok && f.metrics != nil {
		f.metrics.ParseFailures.WithLabelValues("nmea").Inc()
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// RunTick fires every TickInterval, emitting FLARM sentences for each
// tracked aircraft and then reaping stale records, until ctx is
// cancelled.
func (f *Fusion) RunTick(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			f.tick(now)
		}
	}
}

func (f *Fusion) tick(now time.Time) {
	own := f.store.Ownship()

	for _, ac := range f.store.Snapshot() {
		f.log.Debug("tracked aircraft", "id", ac.Identifier, "age", ac.HumanAge(now))

		// Records past TTL are reaped below and get no emission.
		if ac.Age(now) > store.TTL {
			continue
		}

		// A single bad record's numeric computation must not stall
		// the rest of the tick.
		func() {
			defer func() { recover() }()
			f.emit(own, ac)
		}()
	}

	evicted := f.store.ReapStale(now)
	if len(evicted) > 0 {
		f.log.Debug("reaped stale aircraft", "count", len(evicted))
	}
	if f.metrics != nil {
		f.metrics.AircraftTracked.Set(float64(f.store.Count()))
	}
}

func (f *Fusion) emit(own store.OwnshipStatus, ac *store.AircraftRecord) {
	if !own.HasFix() || ac.Latitude == nil || ac.Longitude == nil {
		return
	}

	ownPoint := geo.Point{Lat: *own.Latitude, Lon: *own.Longitude}
	acPoint := geo.Point{Lat: *ac.Latitude, Lon: *ac.Longitude}

	distM := geo.VincentyDistance(ownPoint, acPoint)
	initialBearing := geo.InitialBearing(ownPoint, acPoint)

	relN := geo.DistanceNorth(initialBearing, distM)
	relE := geo.DistanceEast(initialBearing, distM)

	if relN < distanceMin || relN > distanceMax || relE < distanceMin || relE > distanceMax {
		return
	}

	relVertical := ""
	if own.Altitude != nil && ac.Altitude != nil {
		v := clamp(geo.FeetToMeters(*ac.Altitude-*own.Altitude), distanceMin, distanceMax)
		relVertical = formatInt(v)
	}

	idType := "1"
	id := ac.Identifier
	if ac.Callsign != nil && *ac.Callsign != "" {
		idType = "2"
		id = *ac.Callsign
	}

	track := ""
	if ac.Course != nil {
		track = formatInt(clamp(*ac.Course, 0, 359))
	}

	groundSpeed := ""
	if ac.HSpeed != nil {
		groundSpeed = formatInt(clamp(geo.KnotsToMps(*ac.HSpeed), 0, 32767))
	}

	climbRate := ""
	if ac.VSpeed != nil {
		v := clamp(geo.FeetToMeters(*ac.VSpeed*0.3048)/60.0, -32.7, 32.7)
		climbRate = formatDecimal1(v)
	}

	sentence := nmea.BuildPFLAA(nmea.PFLAAFields{
		RelativeNorth:    formatInt(clamp(relN, distanceMin, distanceMax)),
		RelativeEast:     formatInt(clamp(relE, distanceMin, distanceMax)),
		RelativeVertical: relVertical,
		IDType:           idType,
		ID:               id,
		Track:            track,
		GroundSpeed:      groundSpeed,
		ClimbRate:        climbRate,
	})
	f.out.Submit(hub.Message{Type: hub.ContentFLARM, Payload: sentence})

	if own.Course != nil {
		relBearing := clamp(geo.RelativeBearing(initialBearing, *own.Course), -180, 180)
		relDist := clamp(distM, 0, math.MaxInt32)

		pflau := nmea.BuildPFLAU(nmea.PFLAUFields{
			RelativeBearing:  formatInt(relBearing),
			RelativeVertical: relVertical,
			RelativeDistance: formatInt(relDist),
			ID:               id,
		})
		f.out.Submit(hub.Message{Type: hub.ContentFLARM, Payload: pflau})
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
