package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/vesselsnap/internal/app"
	"github.com/okian/vesselsnap/internal/domain/model"
)

// SnapshotHandler serves GET /snapshot.
type SnapshotHandler struct {
	deps       Dependencies
	defaultBox model.BoundingBox
}

// NewSnapshotHandler creates a snapshot handler. Query parameters missing
// from a request fall back to defaultBox.
func NewSnapshotHandler(deps Dependencies, defaultBox model.BoundingBox) *SnapshotHandler {
	return &SnapshotHandler{deps: deps, defaultBox: defaultBox}
}

type vesselRecord struct {
	MMSI string   `json:"mmsi" msgpack:"mmsi"`
	Name string   `json:"name" msgpack:"name"`
	Lat  float64  `json:"lat" msgpack:"lat"`
	Lon  float64  `json:"lon" msgpack:"lon"`
	SOG  *float64 `json:"sog" msgpack:"sog"`
	COG  *float64 `json:"cog" msgpack:"cog"`
	Type string   `json:"type" msgpack:"type"`
	TS   int64    `json:"ts" msgpack:"ts"`
}

type snapshotResponse struct {
	OK       bool           `json:"ok" msgpack:"ok"`
	Count    int            `json:"count" msgpack:"count"`
	MinLat   float64        `json:"minLat" msgpack:"minLat"`
	MaxLat   float64        `json:"maxLat" msgpack:"maxLat"`
	MinLon   float64        `json:"minLon" msgpack:"minLon"`
	MaxLon   float64        `json:"maxLon" msgpack:"maxLon"`
	WindowMs int64          `json:"windowMs" msgpack:"windowMs"`
	Partial  bool           `json:"partial" msgpack:"partial"`
	Data     []vesselRecord `json:"data" msgpack:"data"`
}

// HandleSnapshot handles GET /snapshot?minLat&maxLat&minLon&maxLon&windowMs.
func (h *SnapshotHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, OPTIONS")
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	box, err := parseBox(q, h.defaultBox)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err)
		return
	}
	window, err := parseWindow(q)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err)
		return
	}

	snap, err := h.deps.Snapshot(r.Context(), box, window)
	if err != nil {
		status, code := classify(err)
		writeError(w, r, status, code, errorMessage(err))
		return
	}

	respond(w, r, http.StatusOK, toResponse(snap))
}

func toResponse(snap service.Snapshot) snapshotResponse {
	data := make([]vesselRecord, len(snap.Positions))
	for i, p := range snap.Positions {
		data[i] = vesselRecord{
			MMSI: p.Identity.Key(),
			Name: p.Name,
			Lat:  p.Latitude,
			Lon:  p.Longitude,
			SOG:  p.SOG,
			COG:  p.COG,
			Type: p.VesselType,
			TS:   p.ObservedAt,
		}
	}
	return snapshotResponse{
		OK:       true,
		Count:    len(data),
		MinLat:   snap.Box.MinLat,
		MaxLat:   snap.Box.MaxLat,
		MinLon:   snap.Box.MinLon,
		MaxLon:   snap.Box.MaxLon,
		WindowMs: snap.Window.Milliseconds(),
		Partial:  snap.Partial,
		Data:     data,
	}
}

// classify maps service errors onto HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrCredentialsMissing):
		return http.StatusInternalServerError, "credentials_missing"
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, service.ErrUpstreamUnreachable):
		return http.StatusBadGateway, "upstream_unreachable"
	case errors.Is(err, service.ErrBusy):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusBadGateway, "proxy_error"
	}
}

// errorMessage returns the feed's own text for upstream errors.
func errorMessage(err error) error {
	var upErr *service.UpstreamError
	if errors.As(err, &upErr) {
		return errors.New(upErr.Message)
	}
	return err
}

func parseBox(q url.Values, def model.BoundingBox) (model.BoundingBox, error) {
	box := def
	fields := []struct {
		name string
		dst  *float64
	}{
		{"minLat", &box.MinLat},
		{"maxLat", &box.MaxLat},
		{"minLon", &box.MinLon},
		{"maxLon", &box.MaxLon},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return model.BoundingBox{}, fmt.Errorf("%w: %s must be a number", ErrBadRequest, f.name)
		}
		*f.dst = v
	}
	return box, nil
}

// parseWindow reads windowMs. Absent means zero, which the service maps to
// its default; range clamping is the service's job.
func parseWindow(q url.Values) (time.Duration, error) {
	raw := strings.TrimSpace(q.Get("windowMs"))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: windowMs must be a non-negative integer", ErrBadRequest)
	}
	return time.Duration(v) * time.Millisecond, nil
}
