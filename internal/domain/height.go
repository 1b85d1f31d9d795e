package domain

// HeightConfig holds the constants of height resolution, in metres.
type HeightConfig struct {
	DefaultHeightM float64
	FloorHeightM   float64
	MinHeightM     float64
	MaxHeightM     float64
}

// DefaultHeightConfig returns the European defaults: 3 m floors, a 3-floor
// fallback, and sanity bounds of 2 m and 300 m.
func DefaultHeightConfig() HeightConfig {
	return HeightConfig{
		DefaultHeightM: 9.0,
		FloorHeightM:   3.0,
		MinHeightM:     2.0,
		MaxHeightM:     300.0,
	}
}

// HeightResolver assigns every building a final height and its provenance.
type HeightResolver struct {
	cfg HeightConfig
}

// NewHeightResolver creates a resolver with the given constants.
func NewHeightResolver(cfg HeightConfig) *HeightResolver {
	return &HeightResolver{cfg: cfg}
}

// Resolve picks, per building, the highest-priority available signal:
// primary, then secondary, then levels times floor height, then the default.
// The result is clamped into [MinHeightM, MaxHeightM]; clamping never changes
// the recorded source.
func (r *HeightResolver) Resolve(candidates []BuildingCandidate) ([]Building, HeightStats) {
	out := make([]Building, len(candidates))
	stats := HeightStats{Sources: make(map[HeightSource]int, len(HeightSources))}

	for i, c := range candidates {
		height, source := r.pick(c)
		clamped := clamp(height, r.cfg.MinHeightM, r.cfg.MaxHeightM)
		if clamped != height {
			stats.Clamped++
		}
		out[i] = Building{
			Geometry:     c.Geometry,
			Z:            c.Z,
			BuildingType: c.BuildingType,
			Name:         c.Name,
			Height:       clamped,
			HeightSource: source,
		}
		stats.Sources[source]++
	}
	stats.Total = len(candidates)
	return out, stats
}

func (r *HeightResolver) pick(c BuildingCandidate) (float64, HeightSource) {
	switch {
	case c.HeightPrimary != nil:
		return *c.HeightPrimary, HeightSourcePrimary
	case c.HeightSecondary != nil:
		return *c.HeightSecondary, HeightSourceSecondary
	case c.Levels != nil:
		return *c.Levels * r.cfg.FloorHeightM, HeightSourceLevels
	default:
		return r.cfg.DefaultHeightM, HeightSourceDefault
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
