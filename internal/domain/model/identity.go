package model

import (
	"strings"

	"github.com/google/uuid"
)

// Key prefixes for identities that do not come from an MMSI.
const (
	NamePrefix         = "NONMMSI:"
	UnidentifiedPrefix = "ghost:"
)

// IdentityKind tells how a vessel identity was derived.
type IdentityKind int

const (
	// IdentityUnidentified marks a report with neither MMSI nor name.
	// Two unidentified identities are never the same vessel.
	IdentityUnidentified IdentityKind = iota
	IdentityMMSI
	IdentityName
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityMMSI:
		return "mmsi"
	case IdentityName:
		return "name"
	case IdentityUnidentified:
		return "unidentified"
	default:
		return "unknown"
	}
}

// Identity is the deduplication key of a vessel within one snapshot.
type Identity struct {
	kind IdentityKind
	key  string
}

// MMSIIdentity returns the identity for a numeric maritime identifier.
func MMSIIdentity(mmsi string) Identity {
	return Identity{kind: IdentityMMSI, key: mmsi}
}

// NameIdentity returns a synthetic identity derived from a vessel name.
func NameIdentity(name string) Identity {
	return Identity{kind: IdentityName, key: NamePrefix + strings.TrimSpace(name)}
}

// NewUnidentified returns a fresh identity that collides with nothing.
func NewUnidentified() Identity {
	return Identity{kind: IdentityUnidentified, key: UnidentifiedPrefix + uuid.NewString()}
}

// Kind reports how the identity was derived.
func (id Identity) Kind() IdentityKind { return id.kind }

// Key returns the string form used on the wire and in logs.
func (id Identity) Key() string { return id.key }

// String implements fmt.Stringer.
func (id Identity) String() string { return id.key }

// IsZero reports whether the identity was never assigned.
func (id Identity) IsZero() bool { return id.key == "" }

// Unidentified reports whether the identity is a per-report synthetic key.
func (id Identity) Unidentified() bool { return id.kind == IdentityUnidentified }

// SameVessel reports whether two identities denote the same vessel.
// Unidentified identities never match, not even themselves.
func (id Identity) SameVessel(other Identity) bool {
	if id.Unidentified() || other.Unidentified() {
		return false
	}
	return id.kind == other.kind && id.key == other.key
}

// MarshalText encodes the identity as its key.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.key), nil
}
