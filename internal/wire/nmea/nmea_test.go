package nmea

import (
	"strings"
	"testing"
	"time"

	"github.com/flightbox/flightbox/internal/store"
)

func appendChecksum(payload string) string {
	return "$" + payload + "*" + checksum(payload) + "\r\n"
}

func TestApplyGGAConvertsAltitudeMetersToFeet(t *testing.T) {
	st := store.New()
	now := time.Unix(1000, 0)

	line := appendChecksum("GPGGA,123519,5000.00,N,00800.00,E,1,08,0.9,100.0,M,46.9,M,,")
	if !ApplyGGA(line, now, st) {
		t.Fatalf("ApplyGGA rejected a well-formed sentence")
	}

	own := st.Ownship()
	if own.Latitude == nil || *own.Latitude != 50.0 {
		t.Errorf("latitude = %v, want 50.0", own.Latitude)
	}
	if own.Longitude == nil || *own.Longitude != 8.0 {
		t.Errorf("longitude = %v, want 8.0", own.Longitude)
	}
	if own.Altitude == nil {
		t.Fatalf("altitude not set")
	}
	if diff := *own.Altitude - 328.084; diff < -0.01 || diff > 0.01 {
		t.Errorf("altitude = %v feet, want ~328.084", *own.Altitude)
	}
}

func TestApplyGGASouthernWesternHemisphere(t *testing.T) {
	st := store.New()
	now := time.Unix(1000, 0)

	line := appendChecksum("GPGGA,123519,5000.00,S,00800.00,W,1,08,0.9,100.0,M,46.9,M,,")
	ApplyGGA(line, now, st)

	own := st.Ownship()
	if own.Latitude == nil || *own.Latitude != -50.0 {
		t.Errorf("latitude = %v, want -50.0", own.Latitude)
	}
	if own.Longitude == nil || *own.Longitude != -8.0 {
		t.Errorf("longitude = %v, want -8.0", own.Longitude)
	}
}

func TestApplyGGABadChecksumDropped(t *testing.T) {
	st := store.New()
	now := time.Unix(1000, 0)

	line := "$GPGGA,123519,5000.00,N,00800.00,E,1,08,0.9,100.0,M,46.9,M,,*00\r\n"
	if ApplyGGA(line, now, st) {
		t.Fatalf("expected bad checksum to be rejected")
	}
	if st.Ownship().HasFix() {
		t.Errorf("ownship should be untouched after rejected sentence")
	}
}

func TestApplyVTGOnlyAppliesNonEmptyFields(t *testing.T) {
	st := store.New()
	now := time.Unix(1000, 0)

	line := appendChecksum("GPVTG,045.0,T,,M,005.5,N,010.2,K,A")
	if !ApplyVTG(line, now, st) {
		t.Fatalf("ApplyVTG rejected a well-formed sentence")
	}

	own := st.Ownship()
	if own.Course == nil || *own.Course != 45.0 {
		t.Errorf("course = %v, want 45", own.Course)
	}
	if own.HSpeed == nil || *own.HSpeed != 5.5 {
		t.Errorf("h_speed = %v, want 5.5", own.HSpeed)
	}
}

func TestBuildPFLAAChecksumAndFormat(t *testing.T) {
	sentence := BuildPFLAA(PFLAAFields{
		RelativeNorth:    "0",
		RelativeEast:     "0",
		RelativeVertical: "205",
		IDType:           "1",
		ID:               "ABC123",
		Track:            "",
		GroundSpeed:      "",
		ClimbRate:        "",
	})

	if !strings.HasPrefix(sentence, "$PFLAA,0,0,0,205,1,ABC123,,,,,0*") {
		t.Errorf("unexpected sentence: %q", sentence)
	}
	if !strings.HasSuffix(sentence, "\r\n") {
		t.Errorf("sentence must end in CRLF: %q", sentence)
	}

	payload := sentence[1 : len(sentence)-len("*XX\r\n")]
	want := checksum(payload)
	if !strings.Contains(sentence, "*"+want) {
		t.Errorf("checksum mismatch: sentence=%q want checksum %s", sentence, want)
	}
}

func TestBuildPFLAUFormat(t *testing.T) {
	sentence := BuildPFLAU(PFLAUFields{
		RelativeBearing:  "10",
		RelativeVertical: "205",
		RelativeDistance: "1500",
		ID:               "ABC123",
	})

	if !strings.HasPrefix(sentence, "$PFLAU,0,0,2,1,0,10,2,205,1500,ABC123*") {
		t.Errorf("unexpected sentence: %q", sentence)
	}
}
