// Package nmea parses the GGA/GLL/VTG ownship-fix sentences produced
// by the onboard GNSS receiver, and builds the PFLAA/PFLAU FLARM
// traffic sentences the fusion component emits. Grounded on
// handle_nmea_data and generate_flarm_messages in
// transformation_sbs1ognnmea_flarm.py for semantics, and on
// k3it-stratux/main/flarm-nmea.go's makeFlarmPFLAAString/
// makeFlarmPFLAUString for the Go sentence-building idiom.
package nmea

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	gonmea "github.com/adrianmo/go-nmea"

	"github.com/flightbox/flightbox/internal/geo"
	"github.com/flightbox/flightbox/internal/store"
)

// ApplyGGA validates and applies a $GPGGA sentence to the ownship
// status. Checksum validation is delegated to go-nmea's Parse, which
// returns an error on mismatch (spec: "mismatching sentences are
// dropped"); field semantics are then re-derived by hand from the
// comma-separated payload to match nmea_coord_to_degrees exactly,
// including the "altitude units M means meters" gate the original
// applies explicitly rather than trusting a parsed unit conversion.
func ApplyGGA(line string, now time.Time, st *store.Store) bool {
	if _, err := gonmea.Parse(line); err != nil {
		return false
	}
	fields := splitPayload(line)
	if len(fields) < 11 {
		return false
	}

	lat, errLat := parseHemisphere(fields[2], fields[3], "N", "S")
	lon, errLon := parseHemisphere(fields[4], fields[5], "E", "W")
	if errLat != nil || errLon != nil {
		return false
	}

	var altFeet *float64
	if altRaw, units := fields[9], fields[10]; altRaw != "" && units == "M" {
		if altM, err := strconv.ParseFloat(altRaw, 64); err == nil {
			v := geo.MetersToFeet(altM)
			altFeet = &v
		}
	}

	st.UpdateOwnship(now, func(o *store.OwnshipStatus) {
		o.Latitude = &lat
		o.Longitude = &lon
		if altFeet != nil {
			o.Altitude = altFeet
		}
	})
	return true
}

// ApplyGLL validates and applies a $GPGLL sentence to the ownship
// status (latitude/longitude only).
func ApplyGLL(line string, now time.Time, st *store.Store) bool {
	if _, err := gonmea.Parse(line); err != nil {
		return false
	}
	fields := splitPayload(line)
	if len(fields) < 6 {
		return false
	}

	lat, errLat := parseHemisphere(fields[2], fields[3], "N", "S")
	lon, errLon := parseHemisphere(fields[4], fields[5], "E", "W")
	if errLat != nil || errLon != nil {
		return false
	}

	st.UpdateOwnship(now, func(o *store.OwnshipStatus) {
		o.Latitude = &lat
		o.Longitude = &lon
	})
	return true
}

// ApplyVTG validates and applies a $GPVTG sentence's course/speed
// fields to ownship, when present (spec: "only when fields are
// non-empty").
func ApplyVTG(line string, now time.Time, st *store.Store) bool {
	if _, err := gonmea.Parse(line); err != nil {
		return false
	}
	fields := splitPayload(line)
	if len(fields) <= 9 {
		return false
	}

	courseTrue := fields[1]
	speedKnots := fields[5]

	var course, hSpeed *float64
	if courseTrue != "" {
		if v, err := strconv.ParseFloat(courseTrue, 64); err == nil {
			course = &v
		}
	}
	if speedKnots != "" {
		if v, err := strconv.ParseFloat(speedKnots, 64); err == nil {
			hSpeed = &v
		}
	}
	if course == nil && hSpeed == nil {
		return false
	}

	st.UpdateOwnship(now, func(o *store.OwnshipStatus) {
		if hSpeed != nil {
			o.HSpeed = hSpeed
		}
		if course != nil {
			o.Course = course
		}
	})
	return true
}

func splitPayload(line string) []string {
	payload := strings.SplitN(line, "*", 2)[0]
	return strings.Split(payload, ",")
}

func parseHemisphere(raw, dir, positive, negative string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	deg := geo.NmeaCoordToDegrees(v)
	switch dir {
	case negative:
		return -deg, nil
	case positive:
		return deg, nil
	default:
		return 0, fmt.Errorf("unrecognized hemisphere %q", dir)
	}
}
