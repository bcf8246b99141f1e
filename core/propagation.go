package core

import (
	"math"

	"github.com/signalsfoundry/emfield/model"
)

// SpeedOfLightMPerS is the vacuum speed of light.
const SpeedOfLightMPerS = 299792458.0

// twoRayClampDB bounds the two-ray interference delta. Deep destructive
// nulls are otherwise unbounded in dB.
const twoRayClampDB = 40.0

// nearFieldWavelengths is the horizontal separation, in wavelengths, under
// which the two-ray coherent term is dropped.
const nearFieldWavelengths = 10.0

// FSPLdB returns the Friis free-space path loss in dB for a frequency in
// MHz and a slant range in km.
func FSPLdB(fMHz, rKm float64) float64 {
	return 32.45 +
		20.0*math.Log10(math.Max(fMHz, 1e-6)) +
		20.0*math.Log10(math.Max(rKm, minDistanceKm))
}

// TwoRayDeltaDB returns the flat-earth two-ray interference loss relative
// to FSPL on the slant path, in dB. Positive values are destructive
// interference, negative constructive. The ground reflection is modelled as
// a perfectly conducting plane, reflection coefficient -1. Inside the near
// field (horizontal separation under ten wavelengths) the coherent term is
// unstable and the delta is exactly zero. The result is clamped to
// +/- twoRayClampDB.
func TwoRayDeltaDB(fMHz, horizontalKm, slantKm, txAltM, rxAltM float64) float64 {
	wavelengthM := SpeedOfLightMPerS / (math.Max(fMHz, 1e-6) * 1e6)
	horizontalM := math.Max(horizontalKm, minDistanceKm) * 1000.0
	if horizontalM < nearFieldWavelengths*wavelengthM {
		return 0.0
	}

	ht := math.Max(txAltM, 1.0)
	hr := math.Max(rxAltM, 1.0)
	directM := math.Sqrt(horizontalM*horizontalM + (ht-hr)*(ht-hr))
	reflectedM := math.Sqrt(horizontalM*horizontalM + (ht+hr)*(ht+hr))

	phase := 2.0 * math.Pi * (reflectedM - directM) / math.Max(wavelengthM, 1e-9)
	// |1 - e^{-j phase}| for the -1 reflection coefficient.
	interference := math.Max(2.0*math.Abs(math.Sin(phase*0.5)), 1e-6)

	delta := FSPLdB(fMHz, directM/1000.0) - 20.0*math.Log10(interference) - FSPLdB(fMHz, slantKm)
	return math.Max(-twoRayClampDB, math.Min(twoRayClampDB, delta))
}

// AtmosphericDBPerKm approximates gaseous, rain, and fog attenuation per
// kilometre at a frequency in MHz. The gas term follows an empirical
// standard-atmosphere curve when the request selects "auto", otherwise it
// is the caller's numeric dB/km value unchanged.
func AtmosphericDBPerKm(atm model.Atmosphere, fMHz float64) float64 {
	freqGHz := math.Max(fMHz, 1e-6) / 1000.0
	gas := 0.004 * (1.0 + 0.1*math.Pow(freqGHz, 1.2))
	if !atm.GasLoss.Auto() {
		gas = atm.GasLoss.DBPerKm()
	}
	rain := 0.0001 * atm.RainRateMMPH * math.Pow(freqGHz, 0.8)
	fog := 0.0002 * atm.FogLWCGM3 * freqGHz * freqGHz
	return gas + rain + fog
}

// ExtraLossDB returns the loss to add on top of FSPL for one source-cell
// path: the two-ray delta (zero under free_space) plus atmospheric
// attenuation accumulated over the slant range.
func ExtraLossDB(env model.Environment, fMHz, slantKm, horizontalKm, txAltM, rxAltM float64) float64 {
	delta := 0.0
	if env.Propagation.Model == model.PropagationTwoRayFlat {
		delta = TwoRayDeltaDB(fMHz, horizontalKm, slantKm, txAltM, rxAltM)
	}
	return delta + AtmosphericDBPerKm(env.Atmosphere, fMHz)*math.Max(slantKm, 0.0)
}
