// Package normalize turns raw vessel-tracking feed messages into canonical
// position records.
//
// The feed wraps a position report in one of several named variants and has
// renamed fields across protocol revisions. The normalizer probes an ordered
// table of report shapes, each with its own field aliases, and takes the
// first that is present. It never fails on malformed input: anything that
// does not yield a position is reported as not found, with a reason.
//
// A top-level "error" field is different: it means the subscription itself
// was rejected, and comes back as an *UpstreamError.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/vesselsnap/internal/domain/model"
)

// Reason explains why a message produced no position.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonDecode
	ReasonNoReport
	ReasonNoCoordinates
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonDecode:
		return "decode"
	case ReasonNoReport:
		return "no_report"
	case ReasonNoCoordinates:
		return "no_coordinates"
	default:
		return "unknown"
	}
}

// Result is the outcome of normalizing one message.
type Result struct {
	Position model.Position
	Shape    string // matched report variant, empty when none matched
	Found    bool
	Reason   Reason // set when Found is false
}

// Normalizer converts feed messages into position records.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	shapes []Shape
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithShapes replaces the report shape table. Order is probe priority.
func WithShapes(shapes ...Shape) Option {
	return func(n *Normalizer) {
		if len(shapes) > 0 {
			n.shapes = shapes
		}
	}
}

// New creates a Normalizer with the default shape table.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{shapes: positionShapes}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize decodes one raw frame and normalizes it. receivedAt is used as
// the observation time when the message carries none.
func (n *Normalizer) Normalize(frame []byte, receivedAt time.Time) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(frame))
	dec.UseNumber()
	var envelope map[string]any
	if err := dec.Decode(&envelope); err != nil || envelope == nil {
		return Result{Reason: ReasonDecode}, nil
	}
	return n.NormalizeMessage(envelope, receivedAt)
}

// NormalizeMessage normalizes an already decoded message.
func (n *Normalizer) NormalizeMessage(envelope map[string]any, receivedAt time.Time) (Result, error) {
	if msg, ok := upstreamError(envelope); ok {
		return Result{}, &UpstreamError{Message: msg}
	}

	shape, payload, ok := n.locate(envelope)
	if !ok {
		return Result{Reason: ReasonNoReport}, nil
	}
	payload = n.unwrap(shape, payload)

	r, ok := shape.extract(payload)
	if !ok {
		return Result{Shape: shape.Name, Reason: ReasonNoCoordinates}, nil
	}

	meta := object(envelope, metadataKeys...)
	static := n.staticData(envelope)

	name := firstNonEmpty(str(meta, metaName...), r.name, str(static, staticName...))
	p := model.Position{
		Identity:   identity(firstNonEmpty(mmsi(meta, metaMMSI...), mmsi(envelope, envelopeMMSI...), r.mmsi), name),
		Name:       name,
		Latitude:   r.lat,
		Longitude:  r.lon,
		SOG:        r.sog,
		COG:        r.cog,
		VesselType: firstNonEmpty(typeOf(meta, metaType...), r.typ, typeOf(static, staticType...)),
		ObservedAt: observedAt(meta, r, receivedAt),
	}
	return Result{Position: p, Shape: shape.Name, Found: true}, nil
}

// locate finds the report payload. An envelope "MessageType" naming a known
// shape is authoritative; otherwise shapes are probed in priority order,
// first inside "Message" and then at the envelope level. Probing stops at the
// first shape present, whether or not it carries coordinates.
func (n *Normalizer) locate(envelope map[string]any) (Shape, map[string]any, bool) {
	msg := object(envelope, messageKeys...)
	containers := []map[string]any{msg, envelope}

	if tag := str(envelope, typeTagKeys[0]); tag != "" {
		if s, ok := n.shapeByName(tag); ok {
			for _, c := range containers {
				if payload := object(c, tag); payload != nil {
					return s, payload, true
				}
			}
		}
	}

	for _, c := range containers {
		for _, s := range n.shapes {
			if payload := object(c, s.Name); payload != nil {
				return s, payload, true
			}
		}
	}
	return Shape{}, nil, false
}

// unwrap peels one extra level when the payload nests the report under a
// type-tag key instead of carrying coordinates itself.
func (n *Normalizer) unwrap(shape Shape, payload map[string]any) map[string]any {
	if shape.hasCoordinates(payload) {
		return payload
	}
	for _, s := range n.shapes {
		if inner := object(payload, s.Name); inner != nil {
			return inner
		}
	}
	if tag := str(payload, typeTagKeys...); tag != "" {
		if inner := object(payload, tag); inner != nil {
			return inner
		}
	}
	return payload
}

func (n *Normalizer) shapeByName(name string) (Shape, bool) {
	for _, s := range n.shapes {
		if s.Name == name {
			return s, true
		}
	}
	return Shape{}, false
}

func (n *Normalizer) staticData(envelope map[string]any) map[string]any {
	if static := object(object(envelope, messageKeys...), staticDataKeys...); static != nil {
		return static
	}
	return object(envelope, staticDataKeys...)
}

func identity(mmsi, name string) model.Identity {
	switch {
	case mmsi != "":
		return model.MMSIIdentity(mmsi)
	case name != "":
		return model.NameIdentity(name)
	default:
		return model.NewUnidentified()
	}
}

func observedAt(meta map[string]any, r report, receivedAt time.Time) int64 {
	if ts, ok := timestamp(meta, metaTime...); ok {
		return ts
	}
	if r.hasTS {
		return r.ts
	}
	return receivedAt.UnixMilli()
}

// upstreamError reports whether the envelope is the feed's error object.
// Empty, null, false and zero values are not errors.
func upstreamError(envelope map[string]any) (string, bool) {
	raw, ok := envelope["error"]
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case bool:
		return "upstream error", v
	case json.Number:
		f, err := v.Float64()
		return v.String(), err != nil || f != 0
	case float64:
		return fmt.Sprint(v), v != 0
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), true
		}
		return string(b), true
	}
}
