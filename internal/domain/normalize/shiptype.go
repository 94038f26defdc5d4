package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// AIS ship type code ranges collapsed into categories.
const (
	passengerMin = 60
	cargoMin     = 70
	tankerMin    = 80
	tankerMax    = 90
	codeTug      = 31
	codePilot    = 50
)

// VesselCategory maps a numeric AIS ship type code to a category name.
// Codes without a category come back as their decimal string.
func VesselCategory(code int) string {
	switch {
	case code >= passengerMin && code < cargoMin:
		return "passenger"
	case code >= cargoMin && code < tankerMin:
		return "cargo"
	case code >= tankerMin && code < tankerMax:
		return "tanker"
	case code == codeTug:
		return "tug"
	case code == codePilot:
		return "pilot"
	default:
		return strconv.Itoa(code)
	}
}

// vesselType turns a raw ship type value into the record's type string.
func vesselType(value any) string {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return ""
		}
		return VesselCategory(int(f))
	case float64:
		return VesselCategory(int(v))
	case int:
		return VesselCategory(v)
	case string:
		s := strings.TrimSpace(v)
		if code, err := strconv.Atoi(s); err == nil {
			return VesselCategory(code)
		}
		return s
	default:
		return ""
	}
}

// typeOf returns the first key whose value yields a vessel type.
func typeOf(item map[string]any, keys ...string) string {
	if item == nil {
		return ""
	}
	for _, key := range keys {
		if t := vesselType(item[key]); t != "" {
			return t
		}
	}
	return ""
}
