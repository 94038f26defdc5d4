// Package dedupe keeps the freshest position report per vessel identity.
package dedupe

import (
	"github.com/okian/vesselsnap/internal/domain/model"
)

// Outcome reports what Insert did with a record.
type Outcome int

const (
	// Added means the identity was new to the aggregate.
	Added Outcome = iota
	// Replaced means an older (or equally old) report was superseded.
	Replaced
	// Stale means a fresher report was already held and the record was ignored.
	Stale
	// Dropped means the aggregate was at capacity and the identity was new.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Replaced:
		return "replaced"
	case Stale:
		return "stale"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Aggregator maps vessel identity to the freshest record seen for it.
//
// An Aggregator belongs to a single snapshot and is not safe for concurrent
// use; the collector feeds it from one loop in arrival order.
type Aggregator struct {
	byKey        map[string]model.Position
	unidentified []model.Position
	maxSize      int // 0 or negative = unbounded
}

// NewAggregator creates an empty aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{}

	for _, opt := range opts {
		opt(a)
	}

	a.byKey = make(map[string]model.Position)
	return a
}

// Insert stores p if its identity is unknown, or if the held record is not
// newer than p. Unidentified records are always kept as their own entry.
func (a *Aggregator) Insert(p model.Position) Outcome {
	if p.Identity.Unidentified() || p.Identity.IsZero() {
		if a.full() {
			return Dropped
		}
		a.unidentified = append(a.unidentified, p)
		return Added
	}

	key := p.Identity.Key()
	current, exists := a.byKey[key]
	if !exists {
		if a.full() {
			return Dropped
		}
		a.byKey[key] = p
		return Added
	}

	if current.ObservedAt <= p.ObservedAt {
		a.byKey[key] = p
		return Replaced
	}
	return Stale
}

// Get returns the held record for an identity.
func (a *Aggregator) Get(id model.Identity) (model.Position, bool) {
	if id.Unidentified() {
		return model.Position{}, false
	}
	p, ok := a.byKey[id.Key()]
	return p, ok
}

// Records returns the aggregated values. Order is not significant.
func (a *Aggregator) Records() []model.Position {
	out := make([]model.Position, 0, a.Size())
	for _, p := range a.byKey {
		out = append(out, p)
	}
	return append(out, a.unidentified...)
}

// Size returns the number of distinct vessels held.
func (a *Aggregator) Size() int {
	return len(a.byKey) + len(a.unidentified)
}

// Reset discards every held record.
func (a *Aggregator) Reset() {
	a.byKey = make(map[string]model.Position)
	a.unidentified = nil
}

func (a *Aggregator) full() bool {
	return a.maxSize > 0 && a.Size() >= a.maxSize
}
