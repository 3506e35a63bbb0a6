// Package config implements Flighthook's TOML configuration: the raw
// document shape, resolution into a flat actor spec list, mutation
// actions, atomic persistence, and file hot-reload.
package config

import "github.com/flighthook/flighthook/internal/units"

// UsePartialPolicy controls whether a launch monitor's shot accumulator
// may emit an estimated result from a partial burst.
type UsePartialPolicy string

const (
	UsePartialNever        UsePartialPolicy = "never"
	UsePartialChippingOnly UsePartialPolicy = "chipping_only"
	UsePartialAlways       UsePartialPolicy = "always"
)

// WebserverSection configures one HTTP bind endpoint.
type WebserverSection struct {
	Name string `toml:"name" json:"name"`
	Bind string `toml:"bind" json:"bind"`
}

// MevoSection configures one Mevo-family launch monitor session.
type MevoSection struct {
	Name          string           `toml:"name" json:"name"`
	Address       string           `toml:"address,omitempty" json:"address,omitempty"`
	BallType      string           `toml:"ball_type,omitempty" json:"ball_type,omitempty"`
	TeeHeight     *units.Distance  `toml:"tee_height,omitempty" json:"tee_height,omitempty"`
	Range         *units.Distance  `toml:"range,omitempty" json:"range,omitempty"`
	SurfaceHeight *units.Distance  `toml:"surface_height,omitempty" json:"surface_height,omitempty"`
	TrackPct      *float64         `toml:"track_pct,omitempty" json:"track_pct,omitempty"`
	UsePartial    UsePartialPolicy `toml:"use_partial,omitempty" json:"use_partial,omitempty"`
}

// MockMonitorSection configures one synthetic reference launch monitor.
type MockMonitorSection struct {
	Name string `toml:"name" json:"name"`
}

// GsProSection configures one simulator integration bridge.
type GsProSection struct {
	Name            string `toml:"name" json:"name"`
	Address         string `toml:"address,omitempty" json:"address,omitempty"`
	FullMonitor     string `toml:"full_monitor,omitempty" json:"full_monitor,omitempty"`
	ChippingMonitor string `toml:"chipping_monitor,omitempty" json:"chipping_monitor,omitempty"`
	PuttingMonitor  string `toml:"putting_monitor,omitempty" json:"putting_monitor,omitempty"`
}

// RandomClubSection configures one synthetic club-selection generator,
// used in development/testing to exercise club->mode derivation without
// a real simulator attached.
type RandomClubSection struct {
	Name string `toml:"name" json:"name"`
}

// FlighthookConfig is the root TOML document.
type FlighthookConfig struct {
	ChippingClubs []string `toml:"chipping_clubs,omitempty" json:"chipping_clubs,omitempty"`
	PuttingClubs  []string `toml:"putting_clubs,omitempty" json:"putting_clubs,omitempty"`

	Webserver   map[string]WebserverSection   `toml:"webserver,omitempty" json:"webserver,omitempty"`
	Mevo        map[string]MevoSection        `toml:"mevo,omitempty" json:"mevo,omitempty"`
	MockMonitor map[string]MockMonitorSection `toml:"mock_monitor,omitempty" json:"mock_monitor,omitempty"`
	GsPro       map[string]GsProSection       `toml:"gspro,omitempty" json:"gspro,omitempty"`
	RandomClub  map[string]RandomClubSection  `toml:"random_club,omitempty" json:"random_club,omitempty"`
}

// Clone returns a deep copy so callers can mutate a working copy
// without aliasing the cached configuration.
func (c *FlighthookConfig) Clone() *FlighthookConfig {
	if c == nil {
		return &FlighthookConfig{}
	}
	out := &FlighthookConfig{
		ChippingClubs: append([]string(nil), c.ChippingClubs...),
		PuttingClubs:  append([]string(nil), c.PuttingClubs...),
		Webserver:     make(map[string]WebserverSection, len(c.Webserver)),
		Mevo:          make(map[string]MevoSection, len(c.Mevo)),
		MockMonitor:   make(map[string]MockMonitorSection, len(c.MockMonitor)),
		GsPro:         make(map[string]GsProSection, len(c.GsPro)),
		RandomClub:    make(map[string]RandomClubSection, len(c.RandomClub)),
	}
	for k, v := range c.Webserver {
		out.Webserver[k] = v
	}
	for k, v := range c.Mevo {
		out.Mevo[k] = v
	}
	for k, v := range c.MockMonitor {
		out.MockMonitor[k] = v
	}
	for k, v := range c.GsPro {
		out.GsPro[k] = v
	}
	for k, v := range c.RandomClub {
		out.RandomClub[k] = v
	}
	return out
}

// DetectMode derives the detection mode for a club selection from the
// configured chipping/putting club sets. Clubs in neither set map to
// "full".
func (c *FlighthookConfig) DetectMode(club string) string {
	for _, cc := range c.ChippingClubs {
		if cc == club {
			return "chipping"
		}
	}
	for _, pc := range c.PuttingClubs {
		if pc == club {
			return "putting"
		}
	}
	return "full"
}
