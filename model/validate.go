package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func unsupportedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedOption, fmt.Sprintf(format, args...))
}

// Validate checks the full request contract. ApplyDefaults must have run
// first so that optional fields carry their defaults. Errors wrap
// ErrInvalidRequest or ErrUnsupportedOption and name the offending field
// path.
func (r *ComputeRequest) Validate() error {
	if r.Metric != MetricEFielddBuVPerM {
		return unsupportedf("metric: only %q is supported, got %q", MetricEFielddBuVPerM, r.Metric)
	}
	if r.CombineSources != CombinePowerSum {
		return unsupportedf("combine_sources: only %q is supported, got %q", CombinePowerSum, r.CombineSources)
	}
	if r.TemporalAgg != TemporalPeak {
		return unsupportedf("temporal_agg: only %q is supported, got %q", TemporalPeak, r.TemporalAgg)
	}
	switch r.Environment.Propagation.Model {
	case PropagationFreeSpace, PropagationTwoRayFlat:
	default:
		return unsupportedf("environment.propagation.model: unknown model %q", r.Environment.Propagation.Model)
	}

	if err := r.validateLimits(); err != nil {
		return err
	}
	if err := r.validateRegion(); err != nil {
		return err
	}
	if err := r.validateGrid(); err != nil {
		return err
	}
	if r.InfluenceBuffer() < 0 {
		return invalidf("influence_buffer_km: must be >= 0, got %g", r.InfluenceBuffer())
	}
	if err := r.validateAtmosphere(); err != nil {
		return err
	}
	if err := r.validateBands(); err != nil {
		return err
	}
	return r.validateSources()
}

func (r *ComputeRequest) validateLimits() error {
	if r.Limits.MaxSources <= 0 {
		return invalidf("limits.max_sources: must be > 0")
	}
	if r.Limits.MaxRegionKm <= 0 || r.Limits.MaxRegionKm > 1000 {
		return invalidf("limits.max_region_km: must be in (0, 1000], got %g", r.Limits.MaxRegionKm)
	}
	if r.Limits.MaxGridPoints <= 0 || r.Limits.MaxGridPoints > 200000 {
		return invalidf("limits.max_grid_points: must be in (0, 200000], got %d", r.Limits.MaxGridPoints)
	}
	return nil
}

func (r *ComputeRequest) validateRegion() error {
	if r.Region.CRS != "WGS84" {
		return unsupportedf("region.crs: only \"WGS84\" is supported, got %q", r.Region.CRS)
	}
	poly := r.Region.Polygon
	if len(poly) < 3 {
		return invalidf("region.polygon: must contain at least 3 vertices, got %d", len(poly))
	}
	for i, v := range poly {
		if v.Lat < -90 || v.Lat > 90 {
			return invalidf("region.polygon[%d].lat: must be in [-90, 90], got %g", i, v.Lat)
		}
		if v.Lon < -180 || v.Lon > 180 {
			return invalidf("region.polygon[%d].lon: must be in [-180, 180], got %g", i, v.Lon)
		}
	}

	ring := polygonRing(poly)
	switch ring.Orientation() {
	case orb.CW:
	case orb.CCW:
		return invalidf("region.polygon: vertices must be listed clockwise")
	default:
		return invalidf("region.polygon: degenerate polygon with zero area")
	}
	if selfIntersects(ring) {
		return invalidf("region.polygon: polygon is self-intersecting")
	}

	bound := ring.Bound()
	southKm := geo.DistanceHaversine(bound.Min, orb.Point{bound.Max[0], bound.Min[1]}) / 1000.0
	westKm := geo.DistanceHaversine(bound.Min, orb.Point{bound.Min[0], bound.Max[1]}) / 1000.0
	if southKm > r.Limits.MaxRegionKm || westKm > r.Limits.MaxRegionKm {
		return invalidf("region.polygon: bounding box %.1f x %.1f km exceeds limit of %g km per side",
			southKm, westKm, r.Limits.MaxRegionKm)
	}
	return nil
}

func (r *ComputeRequest) validateGrid() error {
	if r.Grid.ResolutionDeg <= 0 {
		return invalidf("grid.resolution_deg: must be > 0, got %g", r.Grid.ResolutionDeg)
	}
	bound := polygonRing(r.Region.Polygon).Bound()
	rows := axisSteps(bound.Max[1]-bound.Min[1], r.Grid.ResolutionDeg) + 1
	cols := axisSteps(bound.Max[0]-bound.Min[0], r.Grid.ResolutionDeg) + 1
	if rows*cols > r.Limits.MaxGridPoints {
		return invalidf("grid.resolution_deg: %d grid cells exceed limit of %d", rows*cols, r.Limits.MaxGridPoints)
	}
	return nil
}

// axisSteps mirrors the lattice construction: the number of whole steps of
// size res covering span, with a tolerance so exact multiples do not gain a
// spurious extra step.
func axisSteps(span, res float64) int {
	if span <= 0 {
		return 0
	}
	return int(math.Ceil(span/res - 1e-9))
}

func (r *ComputeRequest) validateAtmosphere() error {
	atm := r.Environment.Atmosphere
	if !atm.GasLoss.Auto() && atm.GasLoss.DBPerKm() < 0 {
		return invalidf("environment.atmosphere.gas_loss: must be >= 0, got %g", atm.GasLoss.DBPerKm())
	}
	if atm.RainRateMMPH < 0 {
		return invalidf("environment.atmosphere.rain_rate_mmph: must be >= 0, got %g", atm.RainRateMMPH)
	}
	if atm.FogLWCGM3 < 0 {
		return invalidf("environment.atmosphere.fog_lwc_gm3: must be >= 0, got %g", atm.FogLWCGM3)
	}
	return nil
}

func (r *ComputeRequest) validateBands() error {
	if len(r.Bands) == 0 {
		return invalidf("bands: at least one band is required")
	}
	seen := make(map[string]struct{}, len(r.Bands))
	for i, b := range r.Bands {
		if strings.TrimSpace(b.Name) == "" {
			return invalidf("bands[%d].name: is required", i)
		}
		if _, ok := seen[b.Name]; ok {
			return invalidf("bands[%d].name: duplicate band name %q", i, b.Name)
		}
		seen[b.Name] = struct{}{}
		if b.FMinMHz <= 0 {
			return invalidf("bands[%d].f_min_MHz: must be > 0, got %g", i, b.FMinMHz)
		}
		if b.FMaxMHz <= b.FMinMHz {
			return invalidf("bands[%d].f_max_MHz: must be greater than f_min_MHz (%g), got %g", i, b.FMinMHz, b.FMaxMHz)
		}
		if b.RefBwKHz <= 0 {
			return invalidf("bands[%d].ref_bw_kHz: must be > 0, got %g", i, b.RefBwKHz)
		}
	}
	return nil
}

func (r *ComputeRequest) validateSources() error {
	if len(r.Sources) > r.Limits.MaxSources {
		return invalidf("sources: %d sources exceed limit of %d", len(r.Sources), r.Limits.MaxSources)
	}
	seen := make(map[string]struct{}, len(r.Sources))
	for i, src := range r.Sources {
		path := func(field string) string { return fmt.Sprintf("sources[%d].%s", i, field) }
		if strings.TrimSpace(src.ID) == "" {
			return invalidf("%s: is required", path("id"))
		}
		if _, ok := seen[src.ID]; ok {
			return invalidf("%s: duplicate source id %q", path("id"), src.ID)
		}
		seen[src.ID] = struct{}{}
		switch src.Type {
		case SourceRadar, SourceComm, SourceJammer, SourceOther:
		default:
			return invalidf("%s: unknown source type %q", path("type"), src.Type)
		}
		if src.Position.Lat < -90 || src.Position.Lat > 90 {
			return invalidf("%s: must be in [-90, 90], got %g", path("position.lat"), src.Position.Lat)
		}
		if src.Position.Lon < -180 || src.Position.Lon > 180 {
			return invalidf("%s: must be in [-180, 180], got %g", path("position.lon"), src.Position.Lon)
		}
		if src.Emission.CenterFreqMHz <= 0 {
			return invalidf("%s: must be > 0, got %g", path("emission.center_freq_MHz"), src.Emission.CenterFreqMHz)
		}
		if src.Emission.BandwidthMHz <= 0 {
			return invalidf("%s: must be > 0, got %g", path("emission.bandwidth_MHz"), src.Emission.BandwidthMHz)
		}
		switch src.Emission.Polarization {
		case PolarizationH, PolarizationV, PolarizationRHCP, PolarizationLHCP:
		default:
			return invalidf("%s: unknown polarization %q", path("emission.polarization"), src.Emission.Polarization)
		}
		if dc := src.Emission.DutyCycleValue(); dc < 0 || dc > 1 {
			return invalidf("%s: must be in [0, 1], got %g", path("emission.duty_cycle"), dc)
		}
		if src.Antenna.Pattern.HPBWDeg <= 0 {
			return invalidf("%s: must be > 0, got %g", path("antenna.pattern.hpbw_deg"), src.Antenna.Pattern.HPBWDeg)
		}
		if src.Antenna.Pattern.VPBWDeg <= 0 {
			return invalidf("%s: must be > 0, got %g", path("antenna.pattern.vpbw_deg"), src.Antenna.Pattern.VPBWDeg)
		}
		switch src.Antenna.Pattern.SidelobeTemplate {
		case SidelobeMILSTD20, SidelobeRCS13, SidelobeRadarNarrow, SidelobeCommOmniBack:
		default:
			return invalidf("%s: unknown sidelobe template %q", path("antenna.pattern.sidelobe_template"), src.Antenna.Pattern.SidelobeTemplate)
		}
		if src.Antenna.Scan.RPM < 0 {
			return invalidf("%s: must be >= 0, got %g", path("antenna.scan.rpm"), src.Antenna.Scan.RPM)
		}
		switch src.Antenna.Scan.Mode {
		case ScanNone, ScanCircular:
		case ScanSector:
			if src.Antenna.Scan.SectorDeg <= 0 || src.Antenna.Scan.SectorDeg > 360 {
				return invalidf("%s: must be in (0, 360] for sector scan, got %g", path("antenna.scan.sector_deg"), src.Antenna.Scan.SectorDeg)
			}
		default:
			return unsupportedf("%s: unknown scan mode %q", path("antenna.scan.mode"), src.Antenna.Scan.Mode)
		}
	}
	return nil
}

// polygonRing converts request vertices into a closed orb ring with
// x = longitude, y = latitude.
func polygonRing(poly []LatLon) orb.Ring {
	ring := make(orb.Ring, 0, len(poly)+1)
	for _, v := range poly {
		ring = append(ring, orb.Point{v.Lon, v.Lat})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// selfIntersects reports whether any two non-adjacent edges of the closed
// ring cross or touch (an endpoint lying on the other edge counts).
func selfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1
	if n < 4 {
		return false
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsCross(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d orb.Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)
	if o1*o2 < 0 && o3*o4 < 0 {
		return true
	}
	return o1 == 0 && onSegment(a, b, c) ||
		o2 == 0 && onSegment(a, b, d) ||
		o3 == 0 && onSegment(c, d, a) ||
		o4 == 0 && onSegment(c, d, b)
}

func orient(a, b, c orb.Point) float64 {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
