// Package units implements Flighthook's unit-tagged scalar values:
// a (value, unit) pair that serializes to a single string such as
// "1.5in" or "67.2mps". Internal arithmetic always happens in the
// canonical unit (meters for distance, meters per second for
// velocity) to avoid accumulating repeated conversion error.
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// DistanceUnit is a recognized distance suffix.
type DistanceUnit string

const (
	Yard       DistanceUnit = "yd"
	Foot       DistanceUnit = "ft"
	Inch       DistanceUnit = "in"
	Meter      DistanceUnit = "m"
	Centimeter DistanceUnit = "cm"
)

// distanceToMeters holds the multiplier from each unit to meters.
var distanceToMeters = map[DistanceUnit]float64{
	Yard:       0.9144,
	Foot:       0.3048,
	Inch:       0.0254,
	Meter:      1.0,
	Centimeter: 0.01,
}

// VelocityUnit is a recognized velocity suffix.
type VelocityUnit string

const (
	MPH VelocityUnit = "mph"
	MPS VelocityUnit = "mps"
	KPH VelocityUnit = "kph"
	FPS VelocityUnit = "fps"
)

// velocityToMPS holds the multiplier from each unit to meters per second.
var velocityToMPS = map[VelocityUnit]float64{
	MPH: 0.44704,
	MPS: 1.0,
	KPH: 1.0 / 3.6,
	FPS: 0.3048,
}

// Distance is a (value, unit) pair for a length scalar.
type Distance struct {
	Value float64
	Unit  DistanceUnit
}

// Velocity is a (value, unit) pair for a speed scalar.
type Velocity struct {
	Value float64
	Unit  VelocityUnit
}

// Meters returns the distance converted to the canonical unit.
func (d Distance) Meters() (float64, error) {
	factor, ok := distanceToMeters[d.Unit]
	if !ok {
		return 0, fmt.Errorf("units: unrecognized distance unit %q", d.Unit)
	}
	return d.Value * factor, nil
}

// DistanceFromMeters constructs a Distance in the given unit from a
// canonical meters value.
func DistanceFromMeters(meters float64, unit DistanceUnit) (Distance, error) {
	factor, ok := distanceToMeters[unit]
	if !ok {
		return Distance{}, fmt.Errorf("units: unrecognized distance unit %q", unit)
	}
	return Distance{Value: meters / factor, Unit: unit}, nil
}

// MetersPerSecond returns the velocity converted to the canonical unit.
func (v Velocity) MetersPerSecond() (float64, error) {
	factor, ok := velocityToMPS[v.Unit]
	if !ok {
		return 0, fmt.Errorf("units: unrecognized velocity unit %q", v.Unit)
	}
	return v.Value * factor, nil
}

// VelocityFromMPS constructs a Velocity in the given unit from a
// canonical meters-per-second value.
func VelocityFromMPS(mps float64, unit VelocityUnit) (Velocity, error) {
	factor, ok := velocityToMPS[unit]
	if !ok {
		return Velocity{}, fmt.Errorf("units: unrecognized velocity unit %q", unit)
	}
	return Velocity{Value: mps / factor, Unit: unit}, nil
}

// ParseDistance parses a string of the form "1.5in" into a Distance.
// Parsing is exact: any suffix other than yd/ft/in/m/cm is an error.
func ParseDistance(s string) (Distance, error) {
	value, unit, err := splitValueUnit(s, []DistanceUnit{Yard, Foot, Inch, Meter, Centimeter})
	if err != nil {
		return Distance{}, fmt.Errorf("units: parse distance %q: %w", s, err)
	}
	return Distance{Value: value, Unit: DistanceUnit(unit)}, nil
}

// ParseVelocity parses a string of the form "67.2mps" into a Velocity.
// Parsing is exact: any suffix other than mph/mps/kph/fps is an error.
func ParseVelocity(s string) (Velocity, error) {
	value, unit, err := splitValueUnit(s, []VelocityUnit{MPH, MPS, KPH, FPS})
	if err != nil {
		return Velocity{}, fmt.Errorf("units: parse velocity %q: %w", s, err)
	}
	return Velocity{Value: value, Unit: VelocityUnit(unit)}, nil
}

// splitValueUnit finds the longest recognized suffix in candidates and
// parses the remainder as a float64. Suffixes are tried longest-first so
// that e.g. "mph" is not mistaken for a shorter unit sharing a prefix.
func splitValueUnit[U ~string](s string, candidates []U) (float64, string, error) {
	trimmed := strings.TrimSpace(s)
	var best U
	found := false
	for _, u := range candidates {
		suffix := string(u)
		if strings.HasSuffix(trimmed, suffix) {
			if !found || len(suffix) > len(string(best)) {
				best = u
				found = true
			}
		}
	}
	if !found {
		return 0, "", fmt.Errorf("no recognized unit suffix")
	}
	numeric := strings.TrimSuffix(trimmed, string(best))
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid numeric value %q: %w", numeric, err)
	}
	return value, string(best), nil
}

func formatValueUnit(value float64, unit string) string {
	return strconv.FormatFloat(value, 'g', -1, 64) + unit
}

// String renders the distance as "<value><unit>", e.g. "1.5in".
func (d Distance) String() string {
	return formatValueUnit(d.Value, string(d.Unit))
}

// String renders the velocity as "<value><unit>", e.g. "67.2mps".
func (v Velocity) String() string {
	return formatValueUnit(v.Value, string(v.Unit))
}

// MarshalText implements encoding.TextMarshaler so Distance values
// serialize to a single string in both TOML and JSON.
func (d Distance) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Distance) UnmarshalText(text []byte) error {
	parsed, err := ParseDistance(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler so Velocity values
// serialize to a single string in both TOML and JSON.
func (v Velocity) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Velocity) UnmarshalText(text []byte) error {
	parsed, err := ParseVelocity(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
