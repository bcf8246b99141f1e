package core

import "math"

// FreeSpaceImpedanceOhm is the impedance of free space Z0.
const FreeSpaceImpedanceOhm = 377.0

// minRangeM floors the slant range so the cell directly beneath a source
// stays finite.
const minRangeM = 1.0

// fieldFloorVPerM floors the field magnitude before the log conversion.
const fieldFloorVPerM = 1e-15

// EIRPdBmToW converts an EIRP in dBm to linear Watts.
func EIRPdBmToW(eirpDBm float64) float64 {
	return math.Pow(10.0, (eirpDBm-30.0)/10.0)
}

// PowerDensityWM2 returns the power density in W/m2 at a slant range rM
// metres from a source radiating eirpW with a directional gain factor
// gainLin, attenuated by additionalLossDB on top of the 4*pi*r^2 spreading.
func PowerDensityWM2(eirpW, gainLin, rM, additionalLossDB float64) float64 {
	r := math.Max(rM, minRangeM)
	spread := eirpW * gainLin / (4.0 * math.Pi * r * r)
	return spread * math.Pow(10.0, -additionalLossDB/10.0)
}

// FieldStrengthDBuVPerM converts a total power density in W/m2 to an
// electric field strength in dBuV/m using E = sqrt(Z0 * S).
func FieldStrengthDBuVPerM(powerDensityWM2 float64) float64 {
	e := math.Sqrt(FreeSpaceImpedanceOhm * math.Max(powerDensityWM2, 0.0))
	return 20.0*math.Log10(math.Max(e, fieldFloorVPerM)) + 120.0
}
