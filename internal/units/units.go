// Package units provides shared constants and conversions for the
// engine's measurement units. Ground speeds are stored in knots,
// altitudes in feet, vertical rates in feet per minute; metric
// upstream feeds and display-unit queries convert through here.
package units

// Display unit constants accepted by the query API.
const (
	KTS = "kts"
	MPS = "mps"
	KMH = "kmh"
	MPH = "mph"
)

// ValidUnits contains all valid display unit values.
var ValidUnits = []string{KTS, MPS, KMH, MPH}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units
// for error messages.
func GetValidUnitsString() string {
	return "kts, mps, kmh, mph"
}

// ConvertSpeed converts a stored ground speed (knots) to the target
// display units. Unknown units return knots unchanged.
func ConvertSpeed(speedKts float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedKts * 0.514444
	case KMH:
		return speedKts * 1.852
	case MPH:
		return speedKts * 1.15078
	default:
		return speedKts
	}
}
