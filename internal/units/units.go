// Package units holds the conversion factors between the SI values readings
// carry internally and the conventional units upstream feeds and band tables
// use (feet, knots, miles per hour, inches).
package units

const (
	metersPerFoot = 0.3048
	metersPerInch = 0.0254
	mpsPerMph     = 0.44704
	mpsPerKnot    = 0.514444
)

// FeetToMeters converts a length in feet to meters.
func FeetToMeters(ft float64) float64 {
	return ft * metersPerFoot
}

// MetersToFeet converts a length in meters to feet.
func MetersToFeet(m float64) float64 {
	return m / metersPerFoot
}

// InchesToMeters converts a depth in inches to meters.
func InchesToMeters(in float64) float64 {
	return in * metersPerInch
}

// MetersToInches converts a depth in meters to inches.
func MetersToInches(m float64) float64 {
	return m / metersPerInch
}

// MillimetersToMeters converts a depth in millimeters to meters.
func MillimetersToMeters(mm float64) float64 {
	return mm / 1000
}

// MphToMetersPerSecond converts a speed in miles per hour to meters per second.
func MphToMetersPerSecond(mph float64) float64 {
	return mph * mpsPerMph
}

// MetersPerSecondToMph converts a speed in meters per second to miles per hour.
func MetersPerSecondToMph(mps float64) float64 {
	return mps / mpsPerMph
}

// KnotsToMetersPerSecond converts a speed in knots to meters per second.
func KnotsToMetersPerSecond(kn float64) float64 {
	return kn * mpsPerKnot
}

// KmhToMetersPerSecond converts a speed in kilometers per hour to meters per second.
func KmhToMetersPerSecond(kmh float64) float64 {
	return kmh / 3.6
}
