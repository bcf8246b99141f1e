package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/emfield/model"
)

func TestFSPLdB_ReferencePoint(t *testing.T) {
	// 1 MHz at 1 km leaves only the constant term.
	if got := FSPLdB(1, 1); math.Abs(got-32.45) > 1e-9 {
		t.Errorf("FSPL(1 MHz, 1 km) = %g, want 32.45", got)
	}
}

func TestFSPLdB_TwentyPerDecade(t *testing.T) {
	base := FSPLdB(100, 1)
	if got := FSPLdB(100, 10); math.Abs(got-base-20) > 1e-9 {
		t.Errorf("one decade of range should add 20 dB, got %+g", got-base)
	}
	if got := FSPLdB(1000, 1); math.Abs(got-base-20) > 1e-9 {
		t.Errorf("one decade of frequency should add 20 dB, got %+g", got-base)
	}
}

func TestFSPLdB_FlooredArguments(t *testing.T) {
	if got := FSPLdB(0, 0); math.IsInf(got, 0) || math.IsNaN(got) {
		t.Errorf("zero arguments must stay finite, got %g", got)
	}
}

func TestTwoRayDeltaDB_NearFieldIsZero(t *testing.T) {
	// At 100 MHz the wavelength is ~3 m; 10 m horizontal is inside ten
	// wavelengths.
	if got := TwoRayDeltaDB(100, 0.01, 0.01, 10, 2); got != 0 {
		t.Errorf("near-field delta = %g, want exactly 0", got)
	}
}

func TestTwoRayDeltaDB_Clamped(t *testing.T) {
	// Sweep geometries; deep nulls must never exceed the clamp.
	for d := 1.0; d <= 50; d += 0.7 {
		got := TwoRayDeltaDB(3000, d, d, 30, 2)
		if got > twoRayClampDB || got < -twoRayClampDB {
			t.Fatalf("delta %g at %g km outside clamp", got, d)
		}
	}
}

func TestTwoRayDeltaDB_LowAltitudesFloored(t *testing.T) {
	// Zero antenna heights are floored to 1 m, so the delta stays finite.
	got := TwoRayDeltaDB(1000, 5, 5, 0, 0)
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Errorf("zero altitudes must stay finite, got %g", got)
	}
}

func TestAtmosphericDBPerKm_AutoGas(t *testing.T) {
	atm := model.Atmosphere{GasLoss: model.AutoGasLoss()}
	// At 1 GHz: 0.004 * (1 + 0.1) with no rain or fog.
	got := AtmosphericDBPerKm(atm, 1000)
	if math.Abs(got-0.0044) > 1e-9 {
		t.Errorf("auto gas at 1 GHz = %g, want 0.0044", got)
	}
}

func TestAtmosphericDBPerKm_NumericGasUsedAsGiven(t *testing.T) {
	atm := model.Atmosphere{GasLoss: model.NumericGasLoss(0.0001)}
	got := AtmosphericDBPerKm(atm, 1000)
	want := 0.0001
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("numeric gas = %g, want the caller's %g", got, want)
	}
}

func TestAtmosphericDBPerKm_RainAndFog(t *testing.T) {
	atm := model.Atmosphere{
		GasLoss:      model.AutoGasLoss(),
		RainRateMMPH: 10,
		FogLWCGM3:    0.5,
	}
	got := AtmosphericDBPerKm(atm, 1000)
	want := 0.0044 + 0.0001*10*1 + 0.0002*0.5*1
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("rain+fog at 1 GHz = %g, want %g", got, want)
	}
}

func TestExtraLossDB_FreeSpaceHasNoTwoRayTerm(t *testing.T) {
	env := model.Environment{
		Propagation: model.Propagation{Model: model.PropagationFreeSpace},
		Atmosphere:  model.Atmosphere{GasLoss: model.AutoGasLoss()},
	}
	slantKm := 10.0
	got := ExtraLossDB(env, 1000, slantKm, slantKm, 30, 2)
	want := AtmosphericDBPerKm(env.Atmosphere, 1000) * slantKm
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("free-space extra loss = %g, want atmospheric-only %g", got, want)
	}
}

func TestExtraLossDB_TwoRayAddsDelta(t *testing.T) {
	env := model.Environment{
		Propagation: model.Propagation{Model: model.PropagationTwoRayFlat},
		Atmosphere:  model.Atmosphere{GasLoss: model.AutoGasLoss()},
	}
	slantKm := 10.0
	got := ExtraLossDB(env, 1000, slantKm, slantKm, 30, 2)
	want := TwoRayDeltaDB(1000, slantKm, slantKm, 30, 2) +
		AtmosphericDBPerKm(env.Atmosphere, 1000)*slantKm
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("two-ray extra loss = %g, want %g", got, want)
	}
}
