// Package ogn parses APRS/OGN beacon lines as emitted by FLARM
// devices through the Open Glider Network and applies them to an
// aircraft store. Grounded on handle_ogn_data in
// transformation_sbs1ognnmea_flarm.py, with the relative-to-absolute
// coordinate reconstruction delegated to internal/geo per spec §4.1.
package ogn

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/flightbox/flightbox/internal/geo"
	"github.com/flightbox/flightbox/internal/store"
)

// ownBeaconID is the receiver's own callsign; beacons carrying it are
// our own transmission looped back and must be discarded.
const ownBeaconID = "FlightBox"

var headPattern = regexp.MustCompile(
	`^(.+?)>APRS,(.+?):/(\d{6})h(\d{4}\.\d{2})(N|S)(.)(\d{5}\.\d{2})(E|W)(.)(?:(\d{3})/(\d{3}))?/A=(\d{6})`)

var (
	addressPattern         = regexp.MustCompile(`^id(\S{2})(\S{6})`)
	climbRatePattern       = regexp.MustCompile(`^([+-]\d+)fpm`)
	turnRatePattern        = regexp.MustCompile(`^([+-]\d+\.\d+)rot`)
	signalStrengthPattern  = regexp.MustCompile(`^(\d+\.\d+)dB`)
	errorCountPattern      = regexp.MustCompile(`^(\d+)e`)
	coordinatesExtPattern  = regexp.MustCompile(`^!W(.)(.)!`)
	hearIDPattern          = regexp.MustCompile(`^hear(\w{4})`)
	frequencyOffsetPattern = regexp.MustCompile(`^([+-]\d+\.\d+)kHz`)
	gpsStatusPattern       = regexp.MustCompile(`^gps(\d+x\d+)`)
	softwareVersionPattern = regexp.MustCompile(`^s(\d+\.\d+)`)
	hardwareVersionPattern = regexp.MustCompile(`^h(\d+)`)
	realIDPattern          = regexp.MustCompile(`^r(\w{6})`)
	flightLevelPattern     = regexp.MustCompile(`^FL(\d{3}\.\d{2})`)
)

const (
	latWidth = 19
	lonWidth = 20
)

// Apply parses one OGN beacon line and updates st. Position
// reconstruction requires ownship to already have a lat/lon fix;
// lines arriving before that are dropped (own location is required
// for FLARM position calculation, same gate as the original).
func Apply(line string, now time.Time, st *store.Store) {
	own := st.Ownship()
	if !own.HasFix() {
		return
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}
	beaconHead := parts[0]
	extensions := parts[1:]

	m := headPattern.FindStringSubmatch(beaconHead)
	if m == nil {
		return
	}

	identifier := m[1]
	if identifier == ownBeaconID {
		return
	}

	latitude := geo.NmeaCoordToDegrees(mustFloat(m[4]))
	if m[5] == "S" {
		latitude = -latitude
	}
	longitude := geo.NmeaCoordToDegrees(mustFloat(m[7]))
	if m[8] == "W" {
		longitude = -longitude
	}

	var track, hSpeed *float64
	if m[10] != "" {
		tr, hs := mustFloat(m[10]), mustFloat(m[11])
		track, hSpeed = &tr, &hs
	}
	altitude := mustFloat(m[12])

	absLat := geo.AbsFromRelFlarmCoordinate(*own.Latitude, latitude, latWidth)
	absLon := geo.AbsFromRelFlarmCoordinate(*own.Longitude, longitude, lonWidth)

	st.UpdateAircraft(identifier, now, func(r *store.AircraftRecord) {
		r.Latitude = &absLat
		r.Longitude = &absLon
		r.Altitude = &altitude
		if hSpeed != nil {
			r.HSpeed = hSpeed
			r.HSpeedUnit = store.HSpeedKnots
			r.Course = track
		}
	})

	applyExtensions(extensions, identifier, latitude, longitude, own, now, st)
}

// applyExtensions walks the space-separated tokens after the position
// head, matching each independently against the recognized extension
// patterns. Unmatched tokens are simply skipped — logging is the
// caller's concern.
func applyExtensions(tokens []string, identifier string, latitude, longitude float64, own store.OwnshipStatus, now time.Time, st *store.Store) {
	for _, tok := range tokens {
		switch {
		case addressPattern.MatchString(tok):
			// Address type / aircraft type / stealth bit are decoded
			// but have no FLARM sentence field in this pipeline beyond
			// ID/IDType, which is derived from callsign presence at
			// emission time, not from this byte.
			continue

		case climbRatePattern.MatchString(tok):
			g := climbRatePattern.FindStringSubmatch(tok)
			climbRate := mustFloat(g[1])
			st.UpdateAircraft(identifier, now, func(r *store.AircraftRecord) {
				r.VSpeed = &climbRate
			})

		case turnRatePattern.MatchString(tok):
			continue // not surfaced in any FLARM sentence field

		case signalStrengthPattern.MatchString(tok):
			continue

		case errorCountPattern.MatchString(tok):
			continue

		case coordinatesExtPattern.MatchString(tok):
			g := coordinatesExtPattern.FindStringSubmatch(tok)
			dLat, dLon := decodeRefinement(g)
			refinedLat := latitude + dLat
			refinedLon := longitude + dLon
			absLat := geo.AbsFromRelFlarmCoordinate(*own.Latitude, refinedLat, latWidth)
			absLon := geo.AbsFromRelFlarmCoordinate(*own.Longitude, refinedLon, lonWidth)
			st.UpdateAircraft(identifier, now, func(r *store.AircraftRecord) {
				r.Latitude = &absLat
				r.Longitude = &absLon
			})

		case hearIDPattern.MatchString(tok):
			continue

		case frequencyOffsetPattern.MatchString(tok):
			continue

		case gpsStatusPattern.MatchString(tok):
			continue

		case softwareVersionPattern.MatchString(tok):
			continue

		case hardwareVersionPattern.MatchString(tok):
			continue

		case realIDPattern.MatchString(tok):
			continue

		case flightLevelPattern.MatchString(tok):
			continue
		}
	}
}

// decodeRefinement turns the two single-digit refinement characters of
// a !Wxy! token into the deltas x/1000 and y/1000, which the caller adds
// directly to the decoded latitude and longitude in degrees.
func decodeRefinement(groups []string) (dLat, dLon float64) {
	x, errX := strconv.Atoi(groups[1])
	y, errY := strconv.Atoi(groups[2])
	if errX != nil || errY != nil {
		return 0, 0
	}
	return float64(x) / 1000.0, float64(y) / 1000.0
}

func mustFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
