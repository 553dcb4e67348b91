package rcmodel

import "time"

// AgentTarget is the address at which an agent can be reached, as
// produced by discovery (e.g. "http://10.0.0.1:37017").
type AgentTarget = string

// ClusterDiscovery is a discovered cluster: a cluster identity plus the
// list of agent addresses discovery believes belong to it. It is the
// payload discovery produces and the refresh pipeline consumes.
type ClusterDiscovery struct {
	ClusterID   string       `json:"cluster_id"`
	DisplayName string       `json:"display_name,omitempty"`
	Nodes       []AgentTarget `json:"nodes"`
}

// ClusterMeta is the aggregated, rolled-up view of a cluster produced by
// the aggregator at the end of a successful refresh.
type ClusterMeta struct {
	ClusterID   string   `json:"cluster_id"`
	DisplayName string   `json:"display_name,omitempty"`
	Kinds       []string `json:"kinds"`
	Nodes       int      `json:"nodes"`
}

// ClusterSettings is opaque configuration attached to a cluster record.
// The refresh core never interprets its contents; it is carried only so
// the persistence interface's signatures stay complete (spec.md §4.3).
type ClusterSettings struct {
	ClusterID string            `json:"cluster_id"`
	Values    map[string]string `json:"values,omitempty"`
}

// DiscoverySettings configures a scheduled discovery run. NextRun is the
// field internal/store's global_search().discoveries_to_run() cursor
// scans on.
type DiscoverySettings struct {
	Namespace string    `json:"namespace"`
	NextRun   time.Time `json:"next_run"`
	Interval  time.Duration `json:"interval"`
}

// ActionSyncState is opaque to the refresh core; it is referenced by the
// persistence interface (internal/store's actions() sub-interface) for
// completeness but never constructed or inspected by the fetcher,
// aggregator or refresh handler.
type ActionSyncState struct {
	NodeID    string    `json:"node_id"`
	ActionID  string    `json:"action_id"`
	RefreshID int64     `json:"refresh_id"`
	Finished  time.Time `json:"finished,omitempty"`
	Lost      bool      `json:"lost"`
}
