package model

// BoundingBox is a latitude/longitude rectangle. Bounds are not checked for
// Min <= Max; an inverted box simply contains nothing.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// Contains reports whether the point lies inside the box, bounds inclusive.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ContainsPosition applies Contains to a position record.
func (b BoundingBox) ContainsPosition(p Position) bool {
	return b.Contains(p.Latitude, p.Longitude)
}

// Corners returns the box as the feed's subscription pair: the
// north-west corner first, then the south-east corner, each as [lat, lon].
func (b BoundingBox) Corners() [2][2]float64 {
	return [2][2]float64{
		{b.MaxLat, b.MinLon},
		{b.MinLat, b.MaxLon},
	}
}
