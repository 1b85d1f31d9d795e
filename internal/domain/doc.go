// Package domain models the building, road, and point-of-interest records
// that flow through the Urban3D ETL, and the pure transforms applied to them.
//
// # Data Sources
//
// Acquisition collaborators write one GeoJSON feature collection per dataset:
// buildings and roads from OpenStreetMap, optional gap-filling buildings from
// a secondary source (Overture Maps), and classified points of interest. The
// pipeline reads those files, so this package never deals with upstream APIs.
//
// # Height Signals
//
// A building may report up to three height signals:
//
//	height_primary    surveyed height in metres (OSM building:height)
//	height_secondary  height copied from the nearest secondary building
//	levels            floor count (OSM building:levels)
//
// A signal is available only when it parses to a finite number. Strings such
// as "12 m" or "approx" are treated as absent. Resolution priority is
// primary, secondary, levels × FLOOR_HEIGHT_M, then DEFAULT_HEIGHT_M, and the
// result is clamped into [MIN_HEIGHT_M, MAX_HEIGHT_M]:
//
//	primary=999            → height=300 source=primary
//	levels=4 (3 m floors)  → height=12  source=levels
//	levels=0               → height=2   source=levels
//	(none)                 → height=9   source=default
//
// The height_source label records which signal was present, not which value
// survived clamping. The frontend renders default-height buildings as
// wireframes, so mislabelling a clamped value would misrepresent data gaps.
//
// # OSM Tag Conventions
//
// Simplified road graphs merge parallel edges, so highway and name can arrive
// as lists (["residential", "tertiary"]). Only the first element is
// significant; [FirstTag] collapses them at decode time.
//
// Elevation hints on roads:
//
//	bridge  free text; truthy unless absent, empty, or "no" (any case)
//	layer   integer vertical level, default 0; one level ≈ 6 m
//
// A bridge without a layer tag is treated as layer 1. Both hints are consumed
// by the exporter and never appear in a layer file.
//
// # Identity
//
// Records have no persistent IDs. Collections are positional and may be
// reindexed by any stage that drops features.
package domain
