package feedsim

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/okian/vesselsnap/internal/domain/model"
)

// Movement model constants.
const (
	knotsToMetersPerSecond = 0.514444
	metersPerDegreeLat     = 111320.0
	maxSpeedKnots          = 18.0
	outsideShare           = 0.1 // vessels placed just outside the box
	staticEvery            = 5   // emit static data every n ticks
)

var vesselNames = []string{
	"MAASSLUIS", "STENA BRITANNICA", "PILOT 7", "NOORDZEE", "AMSTEL", "WAALHAVEN",
	"SMIT ORCA", "NEDLLOYD MARITA", "ROTTERDAM EXPRESS", "FENIKS", "EEMS DART", "BOTLEK",
}

var shipTypes = []int{70, 71, 80, 82, 60, 31, 50, 37, 52}

// Fleet moves a set of simulated vessels around a bounding box.
type Fleet struct {
	rng     *rand.Rand
	box     model.BoundingBox
	vessels []Vessel
	shapes  []Shape
	tick    int
}

// NewFleet places size vessels in and around box. Every fifth vessel has no
// MMSI and every tenth has neither MMSI nor name.
func NewFleet(box model.BoundingBox, size int, seed uint64) *Fleet {
	f := &Fleet{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		box:    box,
		shapes: PositionShapes(),
	}
	f.vessels = make([]Vessel, size)
	for i := range f.vessels {
		f.vessels[i] = f.spawn(i)
	}
	return f
}

// Restrict limits emitted position frames to the named shapes. Unknown names
// are ignored; an empty or fully unknown list keeps every shape.
func (f *Fleet) Restrict(names []string) {
	var shapes []Shape
	for _, name := range names {
		for _, s := range PositionShapes() {
			if string(s) == name {
				shapes = append(shapes, s)
			}
		}
	}
	if len(shapes) > 0 {
		f.shapes = shapes
	}
}

// Vessels returns a copy of the current fleet state.
func (f *Fleet) Vessels() []Vessel {
	out := make([]Vessel, len(f.vessels))
	copy(out, f.vessels)
	return out
}

// Next advances every vessel by elapsed and encodes one frame per vessel,
// rotating through the allowed shapes.
func (f *Fleet) Next(now time.Time, elapsed time.Duration) ([][]byte, error) {
	f.tick++
	frames := make([][]byte, 0, len(f.vessels)+1)
	for i := range f.vessels {
		f.move(&f.vessels[i], elapsed)
		shape := f.shapes[(i+f.tick)%len(f.shapes)]
		b, err := Frame(shape, f.vessels[i], now)
		if err != nil {
			return nil, err
		}
		frames = append(frames, b)
	}
	if f.tick%staticEvery == 0 && len(f.vessels) > 0 {
		v := f.vessels[f.rng.IntN(len(f.vessels))]
		b, err := Frame(ShapeShipStaticData, v, now)
		if err != nil {
			return nil, err
		}
		frames = append(frames, b)
	}
	return frames, nil
}

func (f *Fleet) spawn(i int) Vessel {
	latSpan := f.box.MaxLat - f.box.MinLat
	lonSpan := f.box.MaxLon - f.box.MinLon
	v := Vessel{
		MMSI:     244000000 + int64(f.rng.IntN(999999)),
		Name:     vesselNames[i%len(vesselNames)],
		ShipType: shipTypes[f.rng.IntN(len(shipTypes))],
		Lat:      f.box.MinLat + f.rng.Float64()*latSpan,
		Lon:      f.box.MinLon + f.rng.Float64()*lonSpan,
		SOG:      math.Round(f.rng.Float64()*maxSpeedKnots*10) / 10,
		COG:      math.Round(f.rng.Float64()*3600) / 10,
	}
	if f.rng.Float64() < outsideShare {
		v.Lat = f.box.MaxLat + latSpan*(0.1+f.rng.Float64())
	}
	switch {
	case i%10 == 9:
		v.MMSI, v.Name = 0, ""
	case i%5 == 4:
		v.MMSI = 0
	}
	return v
}

func (f *Fleet) move(v *Vessel, elapsed time.Duration) {
	meters := v.SOG * knotsToMetersPerSecond * elapsed.Seconds()
	rad := v.COG * math.Pi / 180
	v.Lat += meters * math.Cos(rad) / metersPerDegreeLat
	v.Lon += meters * math.Sin(rad) / (metersPerDegreeLat * math.Cos(v.Lat*math.Pi/180))
	// Turn back toward the box when drifting out of it.
	if !f.box.Contains(v.Lat, v.Lon) && f.rng.Float64() < 0.5 {
		v.COG = math.Mod(v.COG+180, 360)
	}
}
