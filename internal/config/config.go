// Package config holds the resolved run configuration. Unlike a long-running
// service, a run is one pass over one file, so the configuration is immutable
// once resolved.
package config

import (
	"fmt"
)

// ReportMode selects the text output of a run.
type ReportMode string

const (
	ReportShort ReportMode = "short"
	ReportFull  ReportMode = "full"
	ReportIP    ReportMode = "ip"
	ReportNone  ReportMode = "none"
)

// ParseReportMode validates the user-supplied mode string.
func ParseReportMode(value string) (ReportMode, error) {
	switch ReportMode(value) {
	case ReportShort, ReportFull, ReportIP, ReportNone:
		return ReportMode(value), nil
	}
	return "", fmt.Errorf("config: unknown report mode %q (want short, full, ip or none)", value)
}

// Config is the fully resolved configuration of one run.
type Config struct {
	LogFile      string
	ActionFilter string // boolean expression over action names, empty = all
	IPFilter     string // raw substring filter applied to whole lines
	Year         int    // year of syslog timestamps
	RFC3339      bool   // timestamps are RFC3339 instead of syslog style
	ReportMode   ReportMode
	GeoFile      string // MaxMind City database path, empty disables geo
	MapDest      string // HTML map output path, empty disables the map
	MapMinConn   int64  // minimum CONNECT count for a client to appear on the map
	SQLitePath   string // results database path, empty disables the export
	Workers      int    // ingest shard workers, 1 = sequential
}

// Validate rejects combinations the run could not honor.
func (c *Config) Validate() error {
	if c.LogFile == "" {
		return fmt.Errorf("config: log file path is required")
	}
	if c.MapDest != "" && c.GeoFile == "" {
		return fmt.Errorf("config: map output requires a geolocation database (--geofile)")
	}
	if c.Year < 1970 {
		return fmt.Errorf("config: year %d is before the unix epoch", c.Year)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: worker count must be at least 1, got %d", c.Workers)
	}
	if c.MapMinConn < 0 {
		return fmt.Errorf("config: map-min-conn must not be negative, got %d", c.MapMinConn)
	}
	return nil
}
