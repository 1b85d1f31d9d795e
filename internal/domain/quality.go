package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrSchema marks a required attribute missing at a stage boundary. It aborts the run.
var ErrSchema = errors.New("schema error")

// QualityReport describes the resolved building layer.
type QualityReport struct {
	TotalBuildings int                  `json:"total_buildings"`
	Sources        map[HeightSource]int `json:"height_sources"`
	PctKnownHeight float64              `json:"pct_known_height"`
	AvgHeight      float64              `json:"avg_height"`
	MaxHeight      float64              `json:"max_height"`
	MinHeight      float64              `json:"min_height"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

// ValidateBuildings checks that every building carries a numeric height and a
// known height source, then summarizes the layer. Heights are rounded to one
// decimal in the report.
func ValidateBuildings(fc FeatureCollection) (QualityReport, error) {
	report := QualityReport{
		TotalBuildings: len(fc.Items),
		Sources:        make(map[HeightSource]int, len(HeightSources)),
		GeneratedAt:    clock.Now(),
	}

	heights := make([]float64, 0, len(fc.Items))
	for i, f := range fc.Items {
		h, ok := f.Properties[AttrHeight].(float64)
		if !ok {
			return QualityReport{}, fmt.Errorf("%w: building %d: missing numeric %q", ErrSchema, i, AttrHeight)
		}
		src, ok := f.Properties[AttrHeightSource].(string)
		if !ok || !knownSource(HeightSource(src)) {
			return QualityReport{}, fmt.Errorf("%w: building %d: missing or unknown %q", ErrSchema, i, AttrHeightSource)
		}
		heights = append(heights, h)
		report.Sources[HeightSource(src)]++
	}

	if len(heights) == 0 {
		return report, nil
	}

	known := len(heights) - report.Sources[HeightSourceDefault]
	report.PctKnownHeight = round1(float64(known) / float64(len(heights)) * 100)
	report.AvgHeight = round1(stat.Mean(heights, nil))
	report.MaxHeight = round1(floats.Max(heights))
	report.MinHeight = round1(floats.Min(heights))
	return report, nil
}

func knownSource(s HeightSource) bool {
	for _, hs := range HeightSources {
		if s == hs {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
