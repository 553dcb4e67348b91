package agentclient

// InfoResponse is the wire shape of GET /api/v1/info.
type InfoResponse struct {
	VersionInfo string `json:"version_info"`
	Checkout    string `json:"checkout,omitempty"`
}

// StatusResponse is the wire shape of GET /api/v1/status: the agent's
// view of the data-store node it sits next to.
type StatusResponse struct {
	ClusterID   string `json:"cluster_id"`
	DisplayName string `json:"display_name,omitempty"`
	Kind        string `json:"kind"`
	NodeID      string `json:"node_id"`
	Version     string `json:"version"`
}

// ShardResponse is one entry of GET /api/v1/shards.
type ShardResponse struct {
	ShardID      string `json:"shard_id"`
	Role         string `json:"role"`
	CommitOffset *int64 `json:"commit_offset,omitempty"`
	Lag          *int64 `json:"lag,omitempty"`
}

// ShardsResponse is the wire shape of GET /api/v1/shards.
type ShardsResponse struct {
	Shards []ShardResponse `json:"shards"`
}
