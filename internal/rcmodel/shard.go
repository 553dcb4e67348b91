package rcmodel

// ShardRole is the closed set of roles a shard replica can hold.
type ShardRole string

const (
	ShardRolePrimary   ShardRole = "PRIMARY"
	ShardRoleSecondary ShardRole = "SECONDARY"
	ShardRoleUnknown   ShardRole = "UNKNOWN"
)

// Shard is one replica of one shard on one node. The natural key is the
// triple (ClusterID, NodeID, ShardID); at most one record exists per key
// within a completed refresh.
type Shard struct {
	ClusterID    string    `json:"cluster_id"`
	NodeID       string    `json:"node_id"`
	ShardID      string    `json:"shard_id"`
	Role         ShardRole `json:"role"`
	CommitOffset *int64    `json:"commit_offset,omitempty"`
	Lag          *int64    `json:"lag,omitempty"`
	Stale        bool      `json:"stale"`
}

// StableEqual reports whether the "stable" identity-bearing attributes of
// two shard records match: role and the (cluster, node, shard) key. This
// is the comparison the fetcher uses to decide whether a ShardAllocation
// changed (role flipped) versus merely drifted (commit offset / lag
// moved, no event needed).
func (s Shard) StableEqual(other Shard) bool {
	return s.ClusterID == other.ClusterID &&
		s.NodeID == other.NodeID &&
		s.ShardID == other.ShardID &&
		s.Role == other.Role
}

// FullyEqual reports whether two shard records are identical across every
// observed field, including commit offset and lag. Used to decide whether
// a refresh pass may skip persisting a shard entirely.
func (s Shard) FullyEqual(other Shard) bool {
	if !s.StableEqual(other) {
		return false
	}
	return int64PtrEqual(s.CommitOffset, other.CommitOffset) && int64PtrEqual(s.Lag, other.Lag)
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
