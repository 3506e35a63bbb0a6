package shot

import (
	"fmt"

	"github.com/flighthook/flighthook/internal/units"
)

// UnitSystem selects the target units for ConvertUnits.
type UnitSystem string

const (
	UnitsMetric   UnitSystem = "metric"
	UnitsImperial UnitSystem = "imperial"
)

// ConvertUnits returns a copy of d with every distance and velocity
// field re-tagged to system's units. Internal arithmetic routes
// through the canonical unit (meters, meters per second), so repeated
// conversions never accumulate error.
func ConvertUnits(d Data, system UnitSystem) (Data, error) {
	var distUnit units.DistanceUnit
	var velUnit units.VelocityUnit
	switch system {
	case UnitsMetric:
		distUnit, velUnit = units.Meter, units.MPS
	case UnitsImperial:
		distUnit, velUnit = units.Yard, units.MPH
	default:
		return Data{}, fmt.Errorf("shot: unknown unit system %q", system)
	}

	out := d
	var err error
	if out.Ball.LaunchSpeed, err = convertVelocity(d.Ball.LaunchSpeed, velUnit); err != nil {
		return Data{}, fmt.Errorf("shot: convert launch speed: %w", err)
	}
	if out.Ball.Carry, err = convertDistance(d.Ball.Carry, distUnit); err != nil {
		return Data{}, fmt.Errorf("shot: convert carry: %w", err)
	}
	if out.Ball.Total, err = convertDistance(d.Ball.Total, distUnit); err != nil {
		return Data{}, fmt.Errorf("shot: convert total: %w", err)
	}
	if out.Ball.MaxHeight, err = convertDistance(d.Ball.MaxHeight, distUnit); err != nil {
		return Data{}, fmt.Errorf("shot: convert max height: %w", err)
	}

	if d.Club != nil {
		club := *d.Club
		if club.ClubSpeed, err = convertVelocity(d.Club.ClubSpeed, velUnit); err != nil {
			return Data{}, fmt.Errorf("shot: convert club speed: %w", err)
		}
		if club.PostImpactClubSpeed, err = convertVelocity(d.Club.PostImpactClubSpeed, velUnit); err != nil {
			return Data{}, fmt.Errorf("shot: convert post impact club speed: %w", err)
		}
		if club.ClubOffset, err = convertDistance(d.Club.ClubOffset, distUnit); err != nil {
			return Data{}, fmt.Errorf("shot: convert club offset: %w", err)
		}
		if club.ClubHeight, err = convertDistance(d.Club.ClubHeight, distUnit); err != nil {
			return Data{}, fmt.Errorf("shot: convert club height: %w", err)
		}
		out.Club = &club
	}

	return out, nil
}

// convertDistance passes through the zero value unconverted: a Distance
// with no Unit set means the field was never populated by the source
// device, not a measurement of zero meters.
func convertDistance(d units.Distance, target units.DistanceUnit) (units.Distance, error) {
	if d.Unit == "" {
		return d, nil
	}
	meters, err := d.Meters()
	if err != nil {
		return units.Distance{}, err
	}
	return units.DistanceFromMeters(meters, target)
}

func convertVelocity(v units.Velocity, target units.VelocityUnit) (units.Velocity, error) {
	if v.Unit == "" {
		return v, nil
	}
	mps, err := v.MetersPerSecond()
	if err != nil {
		return units.Velocity{}, err
	}
	return units.VelocityFromMPS(mps, target)
}
