package rcmodel

// AgentStatusKind is the closed set of states an Agent record can report.
type AgentStatusKind string

const (
	// AgentStatusUp means the agent responded to every probe in this
	// refresh without error.
	AgentStatusUp AgentStatusKind = "UP"
	// AgentStatusAgentDown means the sidecar agent itself could not be
	// reached or returned an invalid payload.
	AgentStatusAgentDown AgentStatusKind = "AGENT_DOWN"
	// AgentStatusNodeDown means the agent was reachable but reported that
	// the underlying data-store node is unreachable.
	AgentStatusNodeDown AgentStatusKind = "NODE_DOWN"
)

// AgentStatus tags an AgentStatusKind with the human-readable detail
// recorded for AgentDown/NodeDown (empty for Up).
type AgentStatus struct {
	Kind    AgentStatusKind `json:"kind"`
	Message string          `json:"message,omitempty"`
}

// AgentStatusUpValue is the canonical Up status value.
var AgentStatusUpValue = AgentStatus{Kind: AgentStatusUp}

// AgentDown builds an AgentStatus in the AgentDown state.
func AgentDown(message string) AgentStatus {
	return AgentStatus{Kind: AgentStatusAgentDown, Message: message}
}

// NodeDown builds an AgentStatus in the NodeDown state.
func NodeDown(message string) AgentStatus {
	return AgentStatus{Kind: AgentStatusNodeDown, Message: message}
}

// IsUp reports whether the status represents a healthy agent.
func (s AgentStatus) IsUp() bool { return s.Kind == AgentStatusUp }

// Agent is the per-(cluster_id, host) health record refreshed on every
// pass. At most one Agent record exists per (ClusterID, Host) pair; a new
// refresh overwrites the previous one in place.
type Agent struct {
	ClusterID string      `json:"cluster_id"`
	Host      string      `json:"host"`
	Status    AgentStatus `json:"status"`
}

// AgentInfo is the agent's reported build/version tuple, keyed by the
// same (cluster_id, host) pair as Agent.
type AgentInfo struct {
	ClusterID   string `json:"cluster_id"`
	Host        string `json:"host"`
	VersionInfo string `json:"version_info"`
	Checkout    string `json:"checkout,omitempty"`
	Stale       bool   `json:"stale"`
}
