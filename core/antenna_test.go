package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/emfield/model"
)

func directionalAntenna() model.Antenna {
	return model.Antenna{
		Pattern: model.AntennaPattern{
			Type:             "simplified_directional",
			HPBWDeg:          10,
			VPBWDeg:          10,
			SidelobeTemplate: model.SidelobeMILSTD20,
		},
		Pointing: model.Pointing{AzDeg: 0, ElDeg: 0},
		Scan:     model.ScanSpec{Mode: model.ScanNone},
	}
}

func TestAntennaGainDBi_BoresightIsPeak(t *testing.T) {
	if g := AntennaGainDBi(directionalAntenna(), 0, 0); g != 0 {
		t.Errorf("boresight gain = %g, want 0", g)
	}
}

func TestAntennaGainDBi_HalfPowerPoint(t *testing.T) {
	// Half the beamwidth off axis is the -3.01 dB point.
	g := AntennaGainDBi(directionalAntenna(), 5, 0)
	if math.Abs(g-(-3.0103)) > 0.001 {
		t.Errorf("gain at half beamwidth = %.4f, want about -3.0103", g)
	}
}

func TestAntennaGainDBi_NarrowerAxisDominates(t *testing.T) {
	ant := directionalAntenna()
	ant.Pattern.VPBWDeg = 5
	az := AntennaGainDBi(ant, 4, 0)
	el := AntennaGainDBi(ant, 0, 4)
	if el >= az {
		t.Errorf("narrow vertical beam should fall off faster: az %g, el %g", az, el)
	}
}

func TestAntennaGainDBi_SidelobeFloors(t *testing.T) {
	cases := []struct {
		template model.SidelobeTemplate
		offAzDeg float64
		want     float64
	}{
		{model.SidelobeMILSTD20, 90, -20},
		{model.SidelobeRCS13, 5, -13},
		{model.SidelobeRCS13, 90, -20},
		{model.SidelobeRadarNarrow, 5, -20},
		{model.SidelobeRadarNarrow, 90, -25},
		{model.SidelobeCommOmniBack, 170, -10},
	}
	for _, tc := range cases {
		ant := directionalAntenna()
		ant.Pattern.HPBWDeg = 1 // force the mainlobe far below the floor
		ant.Pattern.SidelobeTemplate = tc.template
		if got := AntennaGainDBi(ant, tc.offAzDeg, 0); got != tc.want {
			t.Errorf("%s at %g deg: got %g, want %g", tc.template, tc.offAzDeg, got, tc.want)
		}
	}
}

func TestAntennaGainDBi_SidelobeNearBoundary(t *testing.T) {
	ant := directionalAntenna()
	ant.Pattern.HPBWDeg = 1
	ant.Pattern.SidelobeTemplate = model.SidelobeRCS13
	// Exactly 10 degrees is no longer "near".
	if got := AntennaGainDBi(ant, 10, 0); got != -20 {
		t.Errorf("RCS-13 at exactly 10 deg: got %g, want -20", got)
	}
}

func TestAntennaGainDBi_CircularScanCoversAllAzimuths(t *testing.T) {
	ant := directionalAntenna()
	ant.Scan = model.ScanSpec{Mode: model.ScanCircular, RPM: 12}
	for _, bearing := range []float64{0, 90, 180, 359} {
		if g := AntennaGainDBi(ant, bearing, 0); g != 0 {
			t.Errorf("circular scan at bearing %g: got %g, want 0", bearing, g)
		}
	}
}

func TestAntennaGainDBi_SectorScan(t *testing.T) {
	ant := directionalAntenna()
	ant.Pointing.AzDeg = 90
	ant.Scan = model.ScanSpec{Mode: model.ScanSector, RPM: 6, SectorDeg: 60}

	if g := AntennaGainDBi(ant, 100, 0); g != 0 {
		t.Errorf("inside sector: got %g, want 0", g)
	}
	if g := AntennaGainDBi(ant, 120, 0); g != 0 {
		t.Errorf("sector edge is covered: got %g, want 0", g)
	}
	if g := AntennaGainDBi(ant, 150, 0); g >= 0 {
		t.Errorf("outside sector should fall back to the static pattern, got %g", g)
	}
}

func TestAntennaGainDBi_NoScanSeesStaticPatternOnly(t *testing.T) {
	ant := directionalAntenna()
	if g := AntennaGainDBi(ant, 90, 0); g != -20 {
		t.Errorf("non-scanning antenna far off axis: got %g, want the -20 floor", g)
	}
}
