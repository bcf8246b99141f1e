package model

import (
	"encoding/json"
	"fmt"
)

// LatLon is a WGS84 coordinate pair in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Region is the polygonal area of interest. Vertices are listed clockwise
// and the ring is implicitly closed (the last vertex connects back to the
// first).
type Region struct {
	CRS     string   `json:"crs,omitempty"`
	Polygon []LatLon `json:"polygon"`
}

// GridSpec describes the sampling lattice: one angular resolution shared by
// latitude and longitude, and a single AMSL altitude slice in metres.
type GridSpec struct {
	ResolutionDeg float64 `json:"resolution_deg"`
	AltM          float64 `json:"alt_m"`
}

// GasLoss is either a numeric gaseous attenuation in dB/km or the sentinel
// "auto", which selects the built-in frequency-dependent approximation.
type GasLoss struct {
	set   bool
	auto  bool
	value float64
}

// AutoGasLoss returns the "auto" sentinel value.
func AutoGasLoss() GasLoss { return GasLoss{set: true, auto: true} }

// NumericGasLoss returns a fixed gaseous attenuation in dB/km.
func NumericGasLoss(dbPerKm float64) GasLoss { return GasLoss{set: true, value: dbPerKm} }

// Auto reports whether the empirical gas model should be used. The zero
// value defaults to auto.
func (g GasLoss) Auto() bool { return !g.set || g.auto }

// DBPerKm returns the numeric attenuation; only meaningful when !Auto().
func (g GasLoss) DBPerKm() float64 { return g.value }

func (g *GasLoss) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "auto" {
			return fmt.Errorf("gas_loss: unknown sentinel %q", s)
		}
		*g = AutoGasLoss()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("gas_loss: expected number or \"auto\"")
	}
	*g = NumericGasLoss(v)
	return nil
}

func (g GasLoss) MarshalJSON() ([]byte, error) {
	if g.Auto() {
		return json.Marshal("auto")
	}
	return json.Marshal(g.value)
}

// Atmosphere holds the attenuation inputs.
type Atmosphere struct {
	// GasLoss is the gaseous attenuation in dB/km, or "auto".
	GasLoss GasLoss `json:"gas_loss"`
	// RainRateMMPH is the rain rate in mm/h.
	RainRateMMPH float64 `json:"rain_rate_mmph"`
	// FogLWCGM3 is the fog liquid water content in g/m3.
	FogLWCGM3 float64 `json:"fog_lwc_gm3"`
}

// PropagationModel selects the path-loss model.
type PropagationModel string

const (
	PropagationFreeSpace  PropagationModel = "free_space"
	PropagationTwoRayFlat PropagationModel = "two_ray_flat"
)

// Propagation wraps the model selector to match the wire shape
// environment.propagation.model.
type Propagation struct {
	Model PropagationModel `json:"model"`
}

// Environment bundles propagation and atmosphere configuration.
type Environment struct {
	Propagation Propagation `json:"propagation"`
	Atmosphere  Atmosphere  `json:"atmosphere"`
}

// SidelobeTemplate names a preset gain envelope outside the mainlobe.
type SidelobeTemplate string

const (
	SidelobeMILSTD20     SidelobeTemplate = "MIL-STD-20"
	SidelobeRCS13        SidelobeTemplate = "RCS-13"
	SidelobeRadarNarrow  SidelobeTemplate = "Radar-Narrow-25"
	SidelobeCommOmniBack SidelobeTemplate = "Comm-Omni-Back-10"
)

// AntennaPattern is the simplified directional pattern: Gaussian mainlobe
// with per-axis half-power beamwidths plus a sidelobe template.
type AntennaPattern struct {
	Type             string           `json:"type,omitempty"`
	HPBWDeg          float64          `json:"hpbw_deg"`
	VPBWDeg          float64          `json:"vpbw_deg"`
	SidelobeTemplate SidelobeTemplate `json:"sidelobe_template"`
}

// Pointing is the boresight direction. Azimuth is degrees clockwise from
// geographic north, elevation is degrees above the horizontal.
type Pointing struct {
	AzDeg float64 `json:"az_deg"`
	ElDeg float64 `json:"el_deg"`
}

// ScanMode describes antenna scanning behaviour.
type ScanMode string

const (
	ScanNone     ScanMode = "none"
	ScanCircular ScanMode = "circular"
	ScanSector   ScanMode = "sector"
)

// ScanSpec describes how the boresight moves over time. Under peak temporal
// aggregation only the swept coverage matters; RPM is carried for future
// time-resolved support.
type ScanSpec struct {
	Mode      ScanMode `json:"mode"`
	RPM       float64  `json:"rpm"`
	SectorDeg float64  `json:"sector_deg"`
}

// Antenna is the full antenna configuration of a source.
type Antenna struct {
	Pattern  AntennaPattern `json:"pattern"`
	Pointing Pointing       `json:"pointing"`
	Scan     ScanSpec       `json:"scan"`
}

// Polarization of an emission.
type Polarization string

const (
	PolarizationH    Polarization = "H"
	PolarizationV    Polarization = "V"
	PolarizationRHCP Polarization = "RHCP"
	PolarizationLHCP Polarization = "LHCP"
)

// Emission describes the radiated signal of a source.
type Emission struct {
	// EIRPdBm is the equivalent isotropically radiated power in dBm.
	EIRPdBm float64 `json:"eirp_dBm"`
	// CenterFreqMHz is the emission centre frequency in MHz.
	CenterFreqMHz float64 `json:"center_freq_MHz"`
	// BandwidthMHz is the occupied bandwidth in MHz.
	BandwidthMHz float64 `json:"bandwidth_MHz"`
	// Polarization is one of H, V, RHCP, LHCP.
	Polarization Polarization `json:"polarization"`
	// DutyCycle in [0,1]. Nil defaults to 1. Carried for completeness; peak
	// aggregation does not scale power by it.
	DutyCycle *float64 `json:"duty_cycle,omitempty"`
}

// DutyCycleValue returns the duty cycle, defaulting to 1 when unset.
func (e Emission) DutyCycleValue() float64 {
	if e.DutyCycle == nil {
		return 1.0
	}
	return *e.DutyCycle
}

// SourceKind tags the class of emitter.
type SourceKind string

const (
	SourceRadar  SourceKind = "radar"
	SourceComm   SourceKind = "comm"
	SourceJammer SourceKind = "jammer"
	SourceOther  SourceKind = "other"
)

// SourcePosition is a geodetic position; altitude is metres AMSL.
type SourcePosition struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	AltM float64 `json:"alt_m"`
}

// Source is one emitter contributing to the field.
type Source struct {
	ID       string         `json:"id"`
	Type     SourceKind     `json:"type"`
	Position SourcePosition `json:"position"`
	Emission Emission       `json:"emission"`
	Antenna  Antenna        `json:"antenna"`
}

// Band is a named frequency interval. The engine evaluates propagation at
// the band centre frequency (FMin+FMax)/2.
type Band struct {
	Name     string  `json:"name"`
	FMinMHz  float64 `json:"f_min_MHz"`
	FMaxMHz  float64 `json:"f_max_MHz"`
	RefBwKHz float64 `json:"ref_bw_kHz"`
}

// CenterMHz returns the band centre frequency in MHz.
func (b Band) CenterMHz() float64 { return (b.FMinMHz + b.FMaxMHz) / 2.0 }

// Limits guards server resources against oversized workloads.
type Limits struct {
	MaxSources    int     `json:"max_sources"`
	MaxRegionKm   float64 `json:"max_region_km"`
	MaxGridPoints int     `json:"max_grid_points"`
}

// Policy-locked request options. Requests may state them explicitly but
// only these values are accepted.
const (
	MetricEFielddBuVPerM = "E_field_dBuV_per_m"
	CombinePowerSum      = "power_sum"
	TemporalPeak         = "peak"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultResolutionDeg     = 0.01
	DefaultInfluenceBufferKm = 200.0
	DefaultRefBwKHz          = 1000.0
	DefaultThresholdDBuVPerM = 40.0
	DefaultMaxSources        = 50
	DefaultMaxRegionKm       = 200.0
	DefaultMaxGridPoints     = 200000
)

// ComputeRequest is the top-level payload accepted by the CLI and REST
// surfaces. Units follow the field names: degrees, metres, km, MHz, dBm.
type ComputeRequest struct {
	Region            Region      `json:"region"`
	Grid              GridSpec    `json:"grid"`
	InfluenceBufferKm *float64    `json:"influence_buffer_km,omitempty"`
	Environment       Environment `json:"environment"`
	Bands             []Band      `json:"bands"`
	Metric            string      `json:"metric,omitempty"`
	CombineSources    string      `json:"combine_sources,omitempty"`
	TemporalAgg       string      `json:"temporal_agg,omitempty"`
	Limits            Limits      `json:"limits"`
	Sources           []Source    `json:"sources"`
	// ThresholdDBuVPerM is the no-data cutoff. Nil defaults to 40.
	ThresholdDBuVPerM *float64 `json:"threshold_dbuv_per_m,omitempty"`
}

// InfluenceBuffer returns the influence buffer in km with the default applied.
func (r *ComputeRequest) InfluenceBuffer() float64 {
	if r.InfluenceBufferKm == nil {
		return DefaultInfluenceBufferKm
	}
	return *r.InfluenceBufferKm
}

// Threshold returns the no-data threshold in dBuV/m with the default applied.
func (r *ComputeRequest) Threshold() float64 {
	if r.ThresholdDBuVPerM == nil {
		return DefaultThresholdDBuVPerM
	}
	return *r.ThresholdDBuVPerM
}

// ApplyDefaults fills unset optional fields in place. It is idempotent and
// must run before Validate.
func (r *ComputeRequest) ApplyDefaults() {
	if r.Region.CRS == "" {
		r.Region.CRS = "WGS84"
	}
	if r.Grid.ResolutionDeg == 0 {
		r.Grid.ResolutionDeg = DefaultResolutionDeg
	}
	if r.Environment.Propagation.Model == "" {
		r.Environment.Propagation.Model = PropagationFreeSpace
	}
	if r.Metric == "" {
		r.Metric = MetricEFielddBuVPerM
	}
	if r.CombineSources == "" {
		r.CombineSources = CombinePowerSum
	}
	if r.TemporalAgg == "" {
		r.TemporalAgg = TemporalPeak
	}
	if r.Limits.MaxSources == 0 {
		r.Limits.MaxSources = DefaultMaxSources
	}
	if r.Limits.MaxRegionKm == 0 {
		r.Limits.MaxRegionKm = DefaultMaxRegionKm
	}
	if r.Limits.MaxGridPoints == 0 {
		r.Limits.MaxGridPoints = DefaultMaxGridPoints
	}
	for i := range r.Bands {
		if r.Bands[i].RefBwKHz == 0 {
			r.Bands[i].RefBwKHz = DefaultRefBwKHz
		}
	}
	for i := range r.Sources {
		src := &r.Sources[i]
		if src.Type == "" {
			src.Type = SourceOther
		}
		if src.Antenna.Pattern.Type == "" {
			src.Antenna.Pattern.Type = "simplified_directional"
		}
		if src.Antenna.Pattern.SidelobeTemplate == "" {
			src.Antenna.Pattern.SidelobeTemplate = SidelobeMILSTD20
		}
		if src.Antenna.Scan.Mode == "" {
			src.Antenna.Scan.Mode = ScanNone
		}
	}
}
