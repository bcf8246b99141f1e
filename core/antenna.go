package core

import (
	"math"

	"github.com/signalsfoundry/emfield/model"
)

// gaussianBeamCoeff is (10*log10 e) * (4 ln 2), the constant of the
// separable Gaussian mainlobe model. At an offset of half the beamwidth it
// yields the -3.01 dB half-power point.
var gaussianBeamCoeff = 10.0 * math.Log10(math.E) * 4.0 * math.Ln2

// AntennaGainDBi evaluates the peak gain of a source antenna toward a
// target, in dBi relative to a 0 dBi mainlobe peak. Bearing is the azimuth
// from the source to the target, elevation the apparent elevation angle,
// both in degrees.
//
// Peak scan semantics collapse the time dimension: a target inside the
// swept coverage sees the mainlobe peak at some instant of the scan period
// and gets exactly 0 dBi. Targets outside coverage see the static pattern,
// the larger of the Gaussian mainlobe falloff and the sidelobe template
// floor.
func AntennaGainDBi(ant model.Antenna, bearingDeg, elevationDeg float64) float64 {
	if inScanCoverage(ant, bearingDeg) {
		return 0.0
	}
	offAz := angularDiffDeg(bearingDeg, ant.Pointing.AzDeg)
	offEl := elevationDeg - ant.Pointing.ElDeg
	mainlobe := math.Min(
		gaussianAxisGainDB(offAz, ant.Pattern.HPBWDeg),
		gaussianAxisGainDB(offEl, ant.Pattern.VPBWDeg),
	)
	return math.Max(mainlobe, sidelobeFloorDB(ant.Pattern.SidelobeTemplate, math.Abs(offAz)))
}

// inScanCoverage reports whether the bearing lies inside the antenna's
// swept arc. A non-scanning antenna covers nothing; its directionality
// comes entirely from the static pattern.
func inScanCoverage(ant model.Antenna, bearingDeg float64) bool {
	switch ant.Scan.Mode {
	case model.ScanCircular:
		return true
	case model.ScanSector:
		half := ant.Scan.SectorDeg * 0.5
		return math.Abs(angularDiffDeg(bearingDeg, ant.Pointing.AzDeg)) <= half
	default:
		return false
	}
}

// gaussianAxisGainDB is the one-axis Gaussian mainlobe falloff in dB for an
// off-axis angle and a half-power beamwidth, both in degrees.
func gaussianAxisGainDB(offsetDeg, beamwidthDeg float64) float64 {
	ratio := offsetDeg / math.Max(beamwidthDeg, 1e-6)
	return -gaussianBeamCoeff * ratio * ratio
}

// sidelobeFloorDB returns the template gain floor for an absolute azimuth
// offset in degrees. Unknown templates are rejected at validation; the
// default arm keeps the function total.
func sidelobeFloorDB(template model.SidelobeTemplate, absOffAzDeg float64) float64 {
	switch template {
	case model.SidelobeRCS13:
		if absOffAzDeg < 10.0 {
			return -13.0
		}
		return -20.0
	case model.SidelobeRadarNarrow:
		if absOffAzDeg < 10.0 {
			return -20.0
		}
		return -25.0
	case model.SidelobeCommOmniBack:
		return -10.0
	default:
		return -20.0
	}
}
