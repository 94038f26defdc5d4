package normalize

// Aliases lists the field names probed, in order, for each report attribute.
type Aliases struct {
	Latitude  []string
	Longitude []string
	Nested    []string // sub-objects carrying {lat, lon}
	SOG       []string
	COG       []string
	Name      []string
	Type      []string
	MMSI      []string
	Time      []string
}

// Shape is one named report variant the feed may emit.
type Shape struct {
	Name    string
	Aliases Aliases
}

// reportAliases covers both the long-form and short-form naming conventions.
// The payload-level "Timestamp" is the AIS UTC second (0-59) and is not a time.
var reportAliases = Aliases{
	Latitude:  []string{"Latitude", "lat", "Lat"},
	Longitude: []string{"Longitude", "lon", "Lon"},
	Nested:    []string{"Position", "position", "Location", "location"},
	SOG:       []string{"Sog", "SpeedOverGround"},
	COG:       []string{"Cog", "CourseOverGround"},
	Name:      []string{"ShipName", "Name"},
	Type:      []string{"ShipType"},
	MMSI:      []string{"UserID", "MMSI"},
	Time:      []string{"time_utc", "TimeUtc", "timestamp", "ts"},
}

// Position report variants in probe priority order.
var positionShapes = []Shape{
	{Name: "ShipPosition", Aliases: reportAliases},
	{Name: "PositionReport", Aliases: reportAliases},
	{Name: "ClassAPositionReport", Aliases: reportAliases},
	{Name: "StandardClassBPositionReport", Aliases: reportAliases},
	{Name: "ExtendedClassBPositionReport", Aliases: reportAliases},
}

// Envelope-level field names.
var (
	metadataKeys   = []string{"MetaData", "Metadata"}
	messageKeys    = []string{"Message"}
	typeTagKeys    = []string{"MessageType", "Type"}
	staticDataKeys = []string{"ShipStaticData", "StaticDataReport"}

	metaMMSI     = []string{"MMSI", "Mmsi", "mmsi"}
	envelopeMMSI = []string{"MMSI", "mmsi"}
	metaName     = []string{"ShipName"}
	metaType     = []string{"ShipType"}
	metaTime     = []string{"time_utc", "TimeUtc", "TimeUTC", "timestamp", "Timestamp", "ts"}
	staticName   = []string{"ShipName", "Name"}
	staticType   = []string{"ShipType", "Type"}
)

// ShapeNames returns the report variant names in probe order. They double as
// the feed's message type filter for position-only subscriptions.
func ShapeNames() []string {
	names := make([]string, len(positionShapes))
	for i, s := range positionShapes {
		names[i] = s.Name
	}
	return names
}

// report is what a shape extractor pulls out of a payload.
type report struct {
	lat, lon float64
	sog, cog *float64
	name     string
	typ      string
	mmsi     string
	ts       int64
	hasTS    bool
}

// extract reads a report from payload, failing when either coordinate is
// missing or not a number.
func (s Shape) extract(payload map[string]any) (report, bool) {
	lat, lon, ok := s.coordinates(payload)
	if !ok {
		return report{}, false
	}
	r := report{
		lat:  lat,
		lon:  lon,
		sog:  optionalNumber(payload, s.Aliases.SOG...),
		cog:  optionalNumber(payload, s.Aliases.COG...),
		name: str(payload, s.Aliases.Name...),
		typ:  typeOf(payload, s.Aliases.Type...),
		mmsi: mmsi(payload, s.Aliases.MMSI...),
	}
	r.ts, r.hasTS = timestamp(payload, s.Aliases.Time...)
	return r, true
}

func (s Shape) coordinates(payload map[string]any) (float64, float64, bool) {
	lat, okLat := number(payload, s.Aliases.Latitude...)
	lon, okLon := number(payload, s.Aliases.Longitude...)
	if okLat && okLon {
		return lat, lon, true
	}
	if nested := object(payload, s.Aliases.Nested...); nested != nil {
		lat, okLat = number(nested, s.Aliases.Latitude...)
		lon, okLon = number(nested, s.Aliases.Longitude...)
		if okLat && okLon {
			return lat, lon, true
		}
	}
	return 0, 0, false
}

func (s Shape) hasCoordinates(payload map[string]any) bool {
	_, _, ok := s.coordinates(payload)
	return ok
}
