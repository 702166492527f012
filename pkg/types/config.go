package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Schema  string         `json:"$schema,omitempty"`
	Data    *DataConfig    `json:"data,omitempty"`
	Server  *ServerConfig  `json:"server,omitempty"`
	Monitor *MonitorConfig `json:"monitor,omitempty"`
	Log     *LogConfig     `json:"log,omitempty"`
}

// DataConfig configures where session data lives.
type DataConfig struct {
	// Dir is the storage root. Empty means the XDG data directory.
	Dir string `json:"dir,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Hostname string `json:"hostname,omitempty"`
	Port     int    `json:"port,omitempty"`
}

// MonitorConfig configures background monitors.
type MonitorConfig struct {
	// Interval between polls. Accepts a duration string ("500ms") or a
	// number of milliseconds.
	Interval Duration `json:"interval,omitempty"`
	// Triggers replaces the built-in trigger phrase list when non-empty.
	Triggers []string `json:"triggers,omitempty"`
	// Roles restricts which event roles are scanned. Empty means model only.
	Roles []string `json:"roles,omitempty"`
	// MaxInterventions bounds queued warnings per monitor. Zero or negative
	// means unbounded.
	MaxInterventions int `json:"maxInterventions,omitempty"`
	// FirstMatchOnly stops trigger scanning at the first match in a batch.
	// Nil means true.
	FirstMatchOnly *bool `json:"firstMatchOnly,omitempty"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Pretty bool   `json:"pretty,omitempty"`
}

// Duration is a time.Duration that unmarshals from either a duration string
// or a number of milliseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v) * time.Millisecond)
		return nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration: %v", raw)
	}
}
