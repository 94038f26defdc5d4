// Package model contains domain models passed between layers.
package model

import "time"

// Position is the canonical vessel position report produced by the normalizer.
type Position struct {
	Identity   Identity `json:"mmsi"`
	Name       string   `json:"name"`
	Latitude   float64  `json:"lat"`
	Longitude  float64  `json:"lon"`
	SOG        *float64 `json:"sog"` // nil when the report omits it
	COG        *float64 `json:"cog"` // nil when the report omits it
	VesselType string   `json:"type"`
	ObservedAt int64    `json:"ts"` // milliseconds since epoch
}

// ObservedTime returns ObservedAt as a time.Time.
func (p Position) ObservedTime() time.Time {
	return time.UnixMilli(p.ObservedAt)
}

// Float returns a pointer to v, for optional record fields.
func Float(v float64) *float64 {
	return &v
}
