// Package config loads FlightBox's YAML configuration file. Grounded
// on the teacher's --config flag and the neshmi-septentrino-exporter
// pattern of a small gopkg.in/yaml.v3-decoded settings struct with
// defaults applied before unmarshal.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables the supervisor wires components
// with. CLI flags cover only --log-file and --config (spec §6); every
// other source is configured here, with defaults matching the
// original's hard-coded wiring in flightbox.py.
type Config struct {
	Verbose bool `yaml:"verbose"`

	SBS1 struct {
		Host  string   `yaml:"host"`
		Port  int      `yaml:"port"`
		Types []string `yaml:"types"`
	} `yaml:"sbs1"`

	OGNServer struct {
		Port           int    `yaml:"port"`
		ServerName     string `yaml:"server_name"`
		ServerSoftware string `yaml:"server_software"`
	} `yaml:"ogn_server"`

	GNSS struct {
		Device string `yaml:"device"`
		Baud   int    `yaml:"baud"`
	} `yaml:"gnss"`

	AirConnect struct {
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
	} `yaml:"airconnect"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Default returns the configuration flightbox.py wires when no file
// is supplied: SBS1 127.0.0.1:30003 filtered to {1,2,3,4}, the
// internal OGN server, and serial /dev/ttyACM0 @ 9600.
func Default() *Config {
	c := &Config{}
	c.SBS1.Host = "127.0.0.1"
	c.SBS1.Port = 30003
	c.SBS1.Types = []string{"1", "2", "3", "4"}
	c.OGNServer.Port = 14580
	c.OGNServer.ServerName = "FLIGHTBOX"
	c.OGNServer.ServerSoftware = "FlightBox"
	c.GNSS.Device = "/dev/ttyACM0"
	c.GNSS.Baud = 9600
	c.AirConnect.Port = 2000
	c.Metrics.Enabled = false
	c.Metrics.Addr = ":9091"
	return c
}

// Load reads and parses the YAML file at path, starting from
// Default() so a partial file only overrides what it specifies.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// TypeSet returns the configured SBS1 message-type filter as a set
// suitable for internal/wire/sbs1.Apply.
func (c *Config) TypeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.SBS1.Types))
	for _, t := range c.SBS1.Types {
		set[t] = struct{}{}
	}
	return set
}
