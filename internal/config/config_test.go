package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesOriginalWiring(t *testing.T) {
	c := Default()
	if c.SBS1.Host != "127.0.0.1" || c.SBS1.Port != 30003 {
		t.Errorf("unexpected SBS1 default: %+v", c.SBS1)
	}
	if len(c.SBS1.Types) != 4 {
		t.Errorf("expected 4 default SBS1 types, got %v", c.SBS1.Types)
	}
	if c.GNSS.Device != "/dev/ttyACM0" || c.GNSS.Baud != 9600 {
		t.Errorf("unexpected GNSS default: %+v", c.GNSS)
	}
	if c.AirConnect.Port != 2000 {
		t.Errorf("unexpected AirConnect port default: %d", c.AirConnect.Port)
	}
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flightbox.yaml")
	yamlContent := "sbs1:\n  host: 192.168.1.50\nairconnect:\n  password: secret\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.SBS1.Host != "192.168.1.50" {
		t.Errorf("SBS1 host = %q, want overridden value", c.SBS1.Host)
	}
	if c.SBS1.Port != 30003 {
		t.Errorf("SBS1 port should remain default, got %d", c.SBS1.Port)
	}
	if c.AirConnect.Password != "secret" {
		t.Errorf("password not applied")
	}
}

func TestTypeSet(t *testing.T) {
	c := Default()
	set := c.TypeSet()
	for _, want := range []string{"1", "2", "3", "4"} {
		if _, ok := set[want]; !ok {
			t.Errorf("expected type %q in set", want)
		}
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/path.yaml"); err == nil {
		t.Error("expected error loading nonexistent file")
	}
}
