// Package store holds the shared, time-aged state the fusion component
// reads and writes: the ownship GNSS status and the map of tracked
// aircraft. Mirrors the two critical sections of
// transformation_sbs1ognnmea_flarm.py's AircraftInfo/GnssStatus pair,
// each behind its own mutex.
package store

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TTL is how long an aircraft record survives without an update before
// the fusion tick reaps it.
const TTL = 30 * time.Second

// HSpeedUnit tags which unit system an aircraft's HSpeed field is
// expressed in, since SBS1 reports knots while OGN's APRS course/speed
// token is knots-equivalent but travels through a different ingestion
// path (resolves the "OGN h_speed units" open question: both are
// knots, but the tag keeps the two paths distinguishable if that ever
// changes).
type HSpeedUnit int

const (
	HSpeedKnots HSpeedUnit = iota
)

// AircraftRecord is the per-identifier state tracked for one aircraft.
// Pointer fields are nil until the corresponding message type has
// supplied a value; identifier is set at creation and never mutated
// afterward.
type AircraftRecord struct {
	Identifier string

	Callsign *string

	Latitude  *float64
	Longitude *float64
	Altitude  *float64 // feet

	HSpeed     *float64 // knots
	HSpeedUnit HSpeedUnit
	VSpeed     *float64 // feet/min
	Course     *float64 // degrees true, 0-359

	LastSeen time.Time
}

// Age reports how long it has been since LastSeen.
func (r *AircraftRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.LastSeen)
}

// HumanAge renders Age as a relative phrase ("5 seconds ago") for debug
// logging, taking both timestamps explicitly rather than consulting
// the wall clock so callers stay deterministic under test.
func (r *AircraftRecord) HumanAge(now time.Time) string {
	return humanize.RelTime(r.LastSeen, now, "ago", "from now")
}

// OwnshipStatus is the singleton GNSS fix. Fields are nil until the
// first NMEA sentence that supplies them arrives.
type OwnshipStatus struct {
	Latitude   *float64
	Longitude  *float64
	Altitude   *float64 // feet
	HSpeed     *float64 // knots
	Course     *float64 // degrees true
	LastUpdate time.Time
}

// HasFix reports whether a latitude/longitude fix has been received.
func (o *OwnshipStatus) HasFix() bool {
	return o != nil && o.Latitude != nil && o.Longitude != nil
}

// Store bundles the aircraft map and ownship status behind independent
// mutexes, matching the original's separate aircraft_lock/
// gnss_status_lock.
type Store struct {
	aircraftMu sync.Mutex
	aircraft   map[string]*AircraftRecord

	ownshipMu sync.Mutex
	ownship   OwnshipStatus
}

// New returns an empty store with ownship uninitialized.
func New() *Store {
	return &Store{aircraft: make(map[string]*AircraftRecord)}
}

// UpdateAircraft fetches the record for id, creating it first if
// absent, stamps LastSeen to now, then invokes fn with it. fn mutates
// the record's fields in place under the aircraft lock.
func (s *Store) UpdateAircraft(id string, now time.Time, fn func(r *AircraftRecord)) {
	s.aircraftMu.Lock()
	defer s.aircraftMu.Unlock()

	r, ok := s.aircraft[id]
	if !ok {
		r = &AircraftRecord{Identifier: id}
		s.aircraft[id] = r
	}
	r.LastSeen = now
	fn(r)
}

// TouchAircraftTimestamp records an observation for an already-known id
// without mutating any field — used when a message's numeric payload
// failed to parse but the line was otherwise attributable to a known
// identifier (spec: "record timestamp but skip the numeric update; do
// not create partial records"). A no-op for an id the store has never
// seen: unlike UpdateAircraft, this must never create a record.
func (s *Store) TouchAircraftTimestamp(id string, now time.Time) {
	s.aircraftMu.Lock()
	defer s.aircraftMu.Unlock()

	r, ok := s.aircraft[id]
	if !ok {
		return
	}
	r.LastSeen = now
}

// Snapshot returns a defensive copy of every tracked aircraft record,
// sorted by identifier for deterministic iteration (mirrors
// `sorted(aircraft.keys())` in the original tick loop).
func (s *Store) Snapshot() []*AircraftRecord {
	s.aircraftMu.Lock()
	ids := maps.Keys(s.aircraft)
	slices.Sort(ids)
	out := make([]*AircraftRecord, 0, len(ids))
	for _, id := range ids {
		cp := *s.aircraft[id]
		out = append(out, &cp)
	}
	s.aircraftMu.Unlock()
	return out
}

// ReapStale removes every record whose age exceeds TTL and returns the
// identifiers evicted.
func (s *Store) ReapStale(now time.Time) []string {
	s.aircraftMu.Lock()
	defer s.aircraftMu.Unlock()

	var evicted []string
	for id, r := range s.aircraft {
		if now.Sub(r.LastSeen) > TTL {
			evicted = append(evicted, id)
			delete(s.aircraft, id)
		}
	}
	slices.Sort(evicted)
	return evicted
}

// Count returns the number of currently tracked aircraft.
func (s *Store) Count() int {
	s.aircraftMu.Lock()
	defer s.aircraftMu.Unlock()
	return len(s.aircraft)
}

// UpdateOwnship invokes fn with the ownship status under its lock and
// stamps LastUpdate to now.
func (s *Store) UpdateOwnship(now time.Time, fn func(o *OwnshipStatus)) {
	s.ownshipMu.Lock()
	defer s.ownshipMu.Unlock()
	fn(&s.ownship)
	s.ownship.LastUpdate = now
}

// Ownship returns a copy of the current ownship status.
func (s *Store) Ownship() OwnshipStatus {
	s.ownshipMu.Lock()
	defer s.ownshipMu.Unlock()
	return s.ownship
}
