package nmea

import (
	"fmt"
	"strings"
)

// checksum computes the standard NMEA XOR checksum over payload
// (everything between '$' and '*'), rendered as two uppercase hex
// digits. Grounded on k3it-stratux/main/flarm-nmea.go's checksum loop.
func checksum(payload string) string {
	var cks byte
	for i := 0; i < len(payload); i++ {
		cks ^= payload[i]
	}
	return fmt.Sprintf("%02X", cks)
}

// build joins fields with commas, computes the checksum, and wraps the
// result into a complete "$...*CS\r\n" sentence.
func build(fields []string) string {
	payload := strings.Join(fields, ",")
	return fmt.Sprintf("$%s*%s\r\n", payload, checksum(payload))
}

// PFLAAFields is the set of already-formatted string fields a PFLAA
// traffic sentence carries; empty strings are valid (an omitted
// optional value), matching the original's '' placeholders.
type PFLAAFields struct {
	RelativeNorth    string
	RelativeEast     string
	RelativeVertical string
	IDType           string // "1" (ICAO/identifier) or "2" (callsign)
	ID               string
	Track            string
	GroundSpeed      string
	ClimbRate        string
}

// BuildPFLAA renders a complete $PFLAA sentence. AlarmLevel, TurnRate,
// and AcftType are always emitted as fixed placeholders (no collision
// computation or aircraft-type classification is in scope).
func BuildPFLAA(f PFLAAFields) string {
	return build([]string{
		"PFLAA",
		"0", // AlarmLevel: no-alarm per Non-goals
		f.RelativeNorth,
		f.RelativeEast,
		f.RelativeVertical,
		f.IDType,
		f.ID,
		f.Track,
		"", // TurnRate: not computed
		f.GroundSpeed,
		f.ClimbRate,
		"0", // AcftType: unknown
	})
}

// PFLAUFields is the set of fields a PFLAU sentence carries beyond its
// fixed status values.
type PFLAUFields struct {
	RelativeBearing  string
	RelativeVertical string
	RelativeDistance string
	ID               string
}

// BuildPFLAU renders a complete $PFLAU sentence. RX/TX/GPS/Power/
// AlarmLevel/AlarmType are fixed status values per spec §4.6: no
// received-device count, no own transmission, a 3D airborne fix, power
// OK, no alarm, and alarm type "aircraft" respectively.
func BuildPFLAU(f PFLAUFields) string {
	return build([]string{
		"PFLAU",
		"0", // RX
		"0", // TX
		"2", // GPS: airborne 3D fix
		"1", // Power: OK
		"0", // AlarmLevel: no-alarm
		f.RelativeBearing,
		"2", // AlarmType: aircraft
		f.RelativeVertical,
		f.RelativeDistance,
		f.ID,
	})
}
