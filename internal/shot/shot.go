// Package shot defines the launch-monitor shot data model: the ball,
// optional club and spin measurements, and the ready-state update that
// a launch monitor publishes between shots.
package shot

import "github.com/flighthook/flighthook/internal/units"

// Ball carries the always-present ball-flight measurements for a shot.
type Ball struct {
	LaunchSpeed     units.Velocity `json:"launch_speed"`
	LaunchAzimuth   float64        `json:"launch_azimuth"`   // degrees, +right/-left
	LaunchElevation float64        `json:"launch_elevation"` // degrees
	Carry           units.Distance `json:"carry"`
	Total           units.Distance `json:"total"`
	MaxHeight       units.Distance `json:"max_height"`
	BackspinRPM     float64        `json:"backspin_rpm"`
	SidespinRPM     float64        `json:"sidespin_rpm"`
}

// Club carries the optional club-head measurements for a shot.
type Club struct {
	ClubSpeed           units.Velocity `json:"club_speed"`
	Path                float64        `json:"path"`         // degrees
	AttackAngle         float64        `json:"attack_angle"` // degrees
	FaceAngle           float64        `json:"face_angle"`   // degrees
	DynamicLoft         float64        `json:"dynamic_loft"` // degrees
	SmashFactor         float64        `json:"smash_factor"`
	PostImpactClubSpeed units.Velocity `json:"post_impact_club_speed"`
	ClubOffset          units.Distance `json:"club_offset"`
	ClubHeight          units.Distance `json:"club_height"`
}

// Spin carries the optional consolidated spin measurement for a shot,
// when a device reports total spin and axis rather than back/side
// components directly.
type Spin struct {
	TotalRPM float64 `json:"total_rpm"`
	AxisDeg  float64 `json:"axis_deg"`
}

// Data is one complete (or partial) shot result.
type Data struct {
	Source     string `json:"source"`
	ShotNumber int    `json:"shot_number"`
	Ball       Ball   `json:"ball"`
	Club       *Club  `json:"club,omitempty"`
	Spin       *Spin  `json:"spin,omitempty"`
	Estimated  bool   `json:"estimated"`
}

// ReadyState is the launch monitor's armed/ball-detected status update,
// published between shots.
type ReadyState struct {
	Armed        bool `json:"armed"`
	BallDetected bool `json:"ball_detected"`
}
