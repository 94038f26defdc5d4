package feedsim

import (
	"encoding/json"
	"time"
)

// feedTimeLayout matches the metadata time_utc field of the live feed.
const feedTimeLayout = "2006-01-02 15:04:05.999999999 -0700 MST"

// Shape names a message variant the simulator can emit.
type Shape string

// Emitted message variants.
const (
	ShapePositionReport    Shape = "PositionReport"
	ShapeClassA            Shape = "ClassAPositionReport"
	ShapeStandardClassB    Shape = "StandardClassBPositionReport"
	ShapeExtendedClassB    Shape = "ExtendedClassBPositionReport"
	ShapeShipPosition      Shape = "ShipPosition"
	ShapeShipStaticData    Shape = "ShipStaticData"
	ShapeBaseStationReport Shape = "BaseStationReport"
)

// PositionShapes returns the variants that carry coordinates.
func PositionShapes() []Shape {
	return []Shape{ShapePositionReport, ShapeClassA, ShapeStandardClassB, ShapeExtendedClassB, ShapeShipPosition}
}

// Vessel is the simulated state of one ship. MMSI 0 means the vessel does
// not broadcast an identifier.
type Vessel struct {
	MMSI     int64
	Name     string
	ShipType int
	Lat      float64
	Lon      float64
	SOG      float64
	COG      float64
}

// Frame encodes v as one feed message of the given shape observed at at.
func Frame(shape Shape, v Vessel, at time.Time) ([]byte, error) {
	var msg map[string]any
	switch shape {
	case ShapeShipPosition:
		// Short-form report at the envelope level with an epoch-ms timestamp.
		report := map[string]any{
			"lat": v.Lat,
			"lon": v.Lon,
			"Sog": v.SOG,
			"Cog": v.COG,
			"ts":  at.UnixMilli(),
		}
		if v.Name != "" {
			report["Name"] = v.Name
		}
		if v.ShipType != 0 {
			report["ShipType"] = v.ShipType
		}
		msg = map[string]any{"MessageType": string(shape), string(shape): report}
		if v.MMSI != 0 {
			msg["MMSI"] = v.MMSI
		}
	case ShapeClassA:
		report := map[string]any{
			"Position":         map[string]any{"lat": v.Lat, "lon": v.Lon},
			"SpeedOverGround":  v.SOG,
			"CourseOverGround": v.COG,
		}
		msg = envelope(shape, v, at, report)
	case ShapeShipStaticData:
		report := map[string]any{"Name": v.Name, "Type": v.ShipType}
		msg = envelope(shape, v, at, report)
	case ShapeBaseStationReport:
		msg = envelope(shape, v, at, map[string]any{"UtcYear": at.UTC().Year()})
	default:
		report := map[string]any{
			"Latitude":  v.Lat,
			"Longitude": v.Lon,
			"Sog":       v.SOG,
			"Cog":       v.COG,
			"Timestamp": at.UTC().Second(),
		}
		msg = envelope(shape, v, at, report)
	}
	return json.Marshal(msg)
}

// envelope wraps report the way the live feed does: a MessageType tag, a
// MetaData block and the report under Message.<shape>.
func envelope(shape Shape, v Vessel, at time.Time, report map[string]any) map[string]any {
	meta := map[string]any{
		"latitude":  v.Lat,
		"longitude": v.Lon,
		"time_utc":  at.UTC().Format(feedTimeLayout),
	}
	if v.MMSI != 0 {
		meta["MMSI"] = v.MMSI
		report["UserID"] = v.MMSI
	}
	if v.Name != "" {
		meta["ShipName"] = v.Name
	}
	return map[string]any{
		"MessageType": string(shape),
		"MetaData":    meta,
		"Message":     map[string]any{string(shape): report},
	}
}

// ErrorFrame encodes the feed's error object.
func ErrorFrame(message string) []byte {
	b, _ := json.Marshal(map[string]string{"error": message})
	return b
}
