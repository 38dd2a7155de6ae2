package pnp

import "math"

// saturationTable holds saturated water-vapor pressure over water in mmHg
// for integer temperatures 0-60 degrees C, computed from the Buck equation
// and rounded to 2 decimals. This is the table the legacy program shipped;
// it is kept verbatim so the table path reproduces its output exactly.
var saturationTable = [61]float64{
	4.58, 4.93, 5.29, 5.69, 6.10, 6.54,
	7.01, 7.51, 8.05, 8.61, 9.21, 9.85,
	10.52, 11.23, 11.99, 12.79, 13.64, 14.53,
	15.48, 16.48, 17.54, 18.66, 19.83, 21.08,
	22.39, 23.77, 25.22, 26.75, 28.36, 30.06,
	31.84, 33.72, 35.68, 37.75, 39.92, 42.20,
	44.60, 47.10, 49.73, 52.49, 55.37, 58.39,
	61.56, 64.87, 68.33, 71.95, 75.73, 79.69,
	83.81, 88.13, 92.63, 97.32, 102.22, 107.33,
	112.66, 118.21, 123.99, 130.01, 136.28, 142.81,
	149.60,
}

// kpaToMmHg converts kilopascals to millimeters of mercury.
const kpaToMmHg = 7.50061683

// BtpsFactor computes the BTPS correction factor the way the legacy
// program does: the temperature is truncated to an integer, clamped to
// [10,35] degrees C, and the saturated vapor pressure is taken from the
// precomputed table. Pressure is in mmHg. A pressure at or below the body
// vapor pressure of 47 mmHg yields factor 1.0 (no correction) - the
// formula would otherwise divide near zero.
func BtpsFactor(temperature, pressure float64) float64 {
	if pressure <= 47.0 {
		return 1.0
	}
	t := int(temperature)
	if t < 10 {
		t = 10
	}
	if t > 35 {
		t = 35
	}
	svp := saturationTable[t]
	return (pressure - svp) / (pressure - 47.0) * (310.0 / (273.0 + float64(t)))
}

// buckSaturationKPa evaluates the Buck equation over water at temperature t
// in degrees C, returning the saturated vapor pressure in kPa.
func buckSaturationKPa(t float64) float64 {
	return 0.61121 * math.Exp((18.678-t/234.5)*(t/(257.14+t)))
}

// BtpsFactorContinuous computes the BTPS correction factor from the Buck
// saturation formula evaluated directly at the fractional temperature, with
// no truncation and no table. It exists alongside BtpsFactor because the
// environment scanner's tenths-scaled hypothesis recovers fractional
// temperatures the table path would truncate away.
func BtpsFactorContinuous(temperature, pressure float64) float64 {
	if pressure <= 47.0 {
		return 1.0
	}
	svp := buckSaturationKPa(temperature) * kpaToMmHg
	return (pressure - svp) / (pressure - 47.0) * (310.0 / (273.15 + temperature))
}
