package domain

import "time"

// HeightStats counts resolved heights by provenance.
type HeightStats struct {
	Total   int                  `json:"total"`
	Clamped int                  `json:"clamped"`
	Sources map[HeightSource]int `json:"sources"`
}

// MergeStats summarizes a secondary-source gap-filling pass.
type MergeStats struct {
	Candidates int `json:"candidates"` // buildings without a primary height
	Matched    int `json:"matched"`
	Unmatched  int `json:"unmatched"`
}

// SanitizeStats summarizes a geometry sanitization pass. Dropped features
// are data-quality gaps, not errors.
type SanitizeStats struct {
	Input          int `json:"input"`
	Reprojected    int `json:"reprojected"`
	Repaired       int `json:"repaired"`
	DroppedInvalid int `json:"dropped_invalid"`
	DroppedEmpty   int `json:"dropped_empty"`
}

// Output is the number of features that survived sanitization.
func (s SanitizeStats) Output() int {
	return s.Input - s.DroppedInvalid - s.DroppedEmpty
}

// ExportStats summarizes one written layer.
type ExportStats struct {
	Features int   `json:"features"`
	Elevated int   `json:"elevated"`
	Bytes    int64 `json:"bytes"`
}

// LayerExported announces a layer file that downstream consumers can pick up.
type LayerExported struct {
	City       string    `json:"city"`
	Kind       Kind      `json:"kind"`
	Path       string    `json:"path"`
	Features   int       `json:"features"`
	Bytes      int64     `json:"bytes"`
	ExportedAt time.Time `json:"exported_at"`
}

// LayerReport is the per-kind slice of a run report.
type LayerReport struct {
	Sanitize SanitizeStats `json:"sanitize"`
	Export   ExportStats   `json:"export"`
	Path     string        `json:"path"`
}

// RunReport aggregates the counters of one pipeline run.
type RunReport struct {
	City       string               `json:"city"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Merge      *MergeStats          `json:"merge,omitempty"`
	Heights    HeightStats          `json:"heights"`
	Quality    QualityReport        `json:"quality"`
	Layers     map[Kind]LayerReport `json:"layers"`
}
