// Package sbs1 parses Kinetic Avionics BaseStation ("SBS1") CSV lines
// and applies them to an aircraft store. Grounded on
// handle_sbs1_data in transformation_sbs1ognnmea_flarm.py.
package sbs1

import (
	"strconv"
	"strings"
	"time"

	"github.com/flightbox/flightbox/internal/store"
)

// DefaultTypes is the SBS1 message-type filter applied when a
// consumer doesn't configure one explicitly (flightbox.py's default
// SBS1 input wiring).
var DefaultTypes = map[string]struct{}{"1": {}, "2": {}, "3": {}, "4": {}}

const minFields = 17

// Apply parses one SBS1 CSV line and, if it is a recognized message
// type with enough fields, updates st accordingly. allowedTypes, when
// non-nil, restricts which msg_type values are processed; pass nil to
// accept {1,2,3,4} unconditionally.
//
// Malformed numeric fields cause the update to be skipped for that
// message but still stamp last_seen if the identifier field was
// present — matching "record timestamp but skip the numeric update".
func Apply(line string, allowedTypes map[string]struct{}, now time.Time, st *store.Store) {
	fields := strings.Split(line, ",")
	if len(fields) < minFields {
		return
	}

	msgType := fields[1]
	if allowedTypes == nil {
		allowedTypes = DefaultTypes
	}
	if _, ok := allowedTypes[msgType]; !ok {
		return
	}

	icaoID := fields[4]
	if icaoID == "" {
		return
	}

	callsign := strings.TrimSpace(fields[10])
	altitudeStr := fields[11]
	hSpeedStr := fields[12]
	courseStr := fields[13]
	latStr := fields[14]
	lonStr := fields[15]
	vSpeedStr := fields[16]

	switch msgType {
	case "1":
		st.UpdateAircraft(icaoID, now, func(r *store.AircraftRecord) {
			r.Callsign = &callsign
		})

	case "2", "3":
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		alt, errAlt := strconv.ParseFloat(altitudeStr, 64)
		if errLat != nil || errLon != nil || errAlt != nil {
			st.TouchAircraftTimestamp(icaoID, now)
			return
		}
		st.UpdateAircraft(icaoID, now, func(r *store.AircraftRecord) {
			r.Latitude = &lat
			r.Longitude = &lon
			r.Altitude = &alt
		})

	case "4":
		hSpeed, errH := strconv.ParseFloat(hSpeedStr, 64)
		vSpeed, errV := strconv.ParseFloat(vSpeedStr, 64)
		course, errC := strconv.ParseFloat(courseStr, 64)
		if errH != nil || errV != nil || errC != nil {
			st.TouchAircraftTimestamp(icaoID, now)
			return
		}
		st.UpdateAircraft(icaoID, now, func(r *store.AircraftRecord) {
			r.HSpeed = &hSpeed
			r.HSpeedUnit = store.HSpeedKnots
			r.VSpeed = &vSpeed
			r.Course = &course
		})
	}
}
