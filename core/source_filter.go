package core

import "github.com/signalsfoundry/emfield/model"

// FilterSources culls sources whose minimum great-circle distance to any
// polygon vertex exceeds the influence buffer. Vertex-only distance is a
// conservative bound at the scale this system operates on; a source just
// outside the buffer from every vertex contributes negligibly anywhere
// inside the polygon. Input order is preserved. The second return value is
// the number of sources removed.
func FilterSources(sources []model.Source, polygon []model.LatLon, bufferKm float64) ([]model.Source, int) {
	if len(sources) == 0 {
		return nil, 0
	}
	kept := make([]model.Source, 0, len(sources))
	for _, src := range sources {
		if minVertexDistanceKm(src, polygon) <= bufferKm {
			kept = append(kept, src)
		}
	}
	return kept, len(sources) - len(kept)
}

func minVertexDistanceKm(src model.Source, polygon []model.LatLon) float64 {
	min := -1.0
	for _, v := range polygon {
		d := DistanceKm(src.Position.Lat, src.Position.Lon, v.Lat, v.Lon)
		if min < 0 || d < min {
			min = d
		}
	}
	return min
}
