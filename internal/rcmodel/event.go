package rcmodel

import "time"

// EventCode names one event variant. Codes are namespaced by family so
// that eventstream.Scan's kind-prefix filter can match a whole family
// ("agent" matches "agent.AGENT_NEW", "agent.AGENT_DOWN", ...).
type EventCode string

const (
	EventClusterNew     EventCode = "cluster.CLUSTER_NEW"
	EventClusterChanged EventCode = "cluster.CLUSTER_CHANGED"

	EventAgentNew     EventCode = "agent.AGENT_NEW"
	EventAgentDown    EventCode = "agent.AGENT_DOWN"
	EventAgentUp      EventCode = "agent.AGENT_UP"
	EventAgentInfoNew EventCode = "agent.AGENT_INFO_NEW"

	EventNodeNew     EventCode = "node.NODE_NEW"
	EventNodeChanged EventCode = "node.NODE_CHANGED"

	EventShardAllocationNew     EventCode = "shard.SHARD_ALLOCATION_NEW"
	EventShardAllocationChanged EventCode = "shard.SHARD_ALLOCATION_CHANGED"

	EventSnapshotCluster EventCode = "snapshot.SNAPSHOT_CLUSTER"
	EventSnapshotAgent   EventCode = "snapshot.SNAPSHOT_AGENT"
	EventSnapshotNode    EventCode = "snapshot.SNAPSHOT_NODE"
	EventSnapshotShard   EventCode = "snapshot.SNAPSHOT_SHARD"
)

// Family returns the event family a code belongs to, i.e. the portion
// before the first '.'. Scan filters match against this.
func (c EventCode) Family() string {
	for i, r := range string(c) {
		if r == '.' {
			return string(c)[:i]
		}
	}
	return string(c)
}

// Event is a single entry in the append-only event stream. It is a
// tagged union: Code determines which of the payload fields is set.
// Events are append-only and, within a single emitter, monotonic by
// Timestamp.
type Event struct {
	// EventID uniquely identifies this event; the view store's persist
	// operation is idempotent on this field.
	EventID string `json:"event_id"`

	Code      EventCode `json:"code"`
	Timestamp time.Time `json:"timestamp"`

	// Exactly one of the following is populated, matching Code's family.
	Cluster *ClusterEventPayload `json:"cluster,omitempty"`
	Agent   *AgentEventPayload   `json:"agent,omitempty"`
	Node    *NodeEventPayload    `json:"node,omitempty"`
	Shard   *ShardEventPayload   `json:"shard,omitempty"`

	// SnapshotPayload carries the raw JSON body for the snapshot family,
	// whose shape varies by nested kind (cluster/agent/node/shard).
	Snapshot *SnapshotEventPayload `json:"snapshot,omitempty"`
}

// ClusterEventPayload is the payload for the "cluster" event family.
type ClusterEventPayload struct {
	ClusterID   string `json:"cluster_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// AgentEventPayload is the payload for the "agent" event family.
type AgentEventPayload struct {
	ClusterID string      `json:"cluster_id"`
	Host      string      `json:"host"`
	Status    AgentStatus `json:"status"`
}

// NodeEventPayload is the payload for the "node" event family.
type NodeEventPayload struct {
	Before *Node `json:"before,omitempty"`
	After  Node  `json:"after"`
}

// ShardEventPayload is the payload for the "shard" event family.
type ShardEventPayload struct {
	Before *Shard `json:"before,omitempty"`
	After  Shard  `json:"after"`
}

// SnapshotEventPayload carries a point-in-time snapshot of one entity,
// emitted once per cluster every N refreshes per config
// (events.snapshots.frequency).
type SnapshotEventPayload struct {
	ClusterID string      `json:"cluster_id"`
	Kind      string      `json:"kind"`
	Payload   interface{} `json:"payload"`
}

// NewClusterNewEvent builds a CLUSTER_NEW event.
func NewClusterNewEvent(id string, clusterID, displayName string, ts time.Time) Event {
	return Event{
		EventID:   id,
		Code:      EventClusterNew,
		Timestamp: ts,
		Cluster:   &ClusterEventPayload{ClusterID: clusterID, DisplayName: displayName},
	}
}

// NewAgentEvent builds an agent-family event (AGENT_NEW/AGENT_DOWN/AGENT_UP).
func NewAgentEvent(id string, code EventCode, agent Agent, ts time.Time) Event {
	return Event{
		EventID:   id,
		Code:      code,
		Timestamp: ts,
		Agent:     &AgentEventPayload{ClusterID: agent.ClusterID, Host: agent.Host, Status: agent.Status},
	}
}

// NewNodeEvent builds a node-family event (NODE_NEW/NODE_CHANGED).
func NewNodeEvent(id string, code EventCode, before *Node, after Node, ts time.Time) Event {
	return Event{
		EventID:   id,
		Code:      code,
		Timestamp: ts,
		Node:      &NodeEventPayload{Before: before, After: after},
	}
}

// NewShardEvent builds a shard-family event (SHARD_ALLOCATION_NEW/CHANGED).
func NewShardEvent(id string, code EventCode, before *Shard, after Shard, ts time.Time) Event {
	return Event{
		EventID:   id,
		Code:      code,
		Timestamp: ts,
		Shard:     &ShardEventPayload{Before: before, After: after},
	}
}

// NewSnapshotEvent builds a snapshot-family event.
func NewSnapshotEvent(id string, code EventCode, clusterID, kind string, payload interface{}, ts time.Time) Event {
	return Event{
		EventID:   id,
		Code:      code,
		Timestamp: ts,
		Snapshot:  &SnapshotEventPayload{ClusterID: clusterID, Kind: kind, Payload: payload},
	}
}
