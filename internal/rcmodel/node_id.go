package rcmodel

import "github.com/google/uuid"

// NodeID is the identity of one control-plane node (not to be confused
// with a data-store Node, which identifies an agent-observed cluster
// member). It is created once at process start, published into the
// coordinator's node registry, and destroyed when the owning session
// closes.
type NodeID struct {
	// Extra carries back-end specific metadata (e.g. build version,
	// hostname) that callers may want to inspect but that never
	// participates in identity comparisons.
	Extra map[string]string `json:"extra,omitempty"`

	// HumanReadable is an operator-facing label, typically the hostname.
	HumanReadable string `json:"human_readable"`

	// UUID is the stable identity of the node across restarts of the
	// *same* registration; a fresh process gets a fresh UUID.
	UUID string `json:"uuid"`
}

// NewNodeID creates a NodeID with a freshly generated UUID and the given
// human-readable label.
func NewNodeID(humanReadable string) NodeID {
	return NodeID{
		HumanReadable: humanReadable,
		UUID:          uuid.NewString(),
		Extra:         map[string]string{},
	}
}

// Equal reports whether two NodeIDs refer to the same registration.
func (n NodeID) Equal(other NodeID) bool {
	return n.UUID == other.UUID
}
