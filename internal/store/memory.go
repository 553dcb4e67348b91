package store

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/rcmodel"
)

type agentKey struct{ clusterID, host string }
type nodeKey struct{ clusterID, nodeID string }
type shardKey struct{ clusterID, nodeID, shardID string }
type actionKey struct{ nodeID, actionID string }

// memoryStore is the in-memory Store backend used by tests and as the
// default backend in single-node dev mode, mirroring the philosophy of
// original_source/store/primary/src/mock/store.rs: a first-class mock
// store is part of the reference implementation, not merely a test
// double bolted on afterwards.
type memoryStore struct {
	mu sync.RWMutex

	discoveries       map[string]rcmodel.ClusterDiscovery
	settings          map[string]rcmodel.ClusterSettings
	agents            map[agentKey]rcmodel.Agent
	agentInfos        map[agentKey]rcmodel.AgentInfo
	nodes             map[nodeKey]rcmodel.Node
	shards            map[shardKey]rcmodel.Shard
	clusterMeta       map[string]rcmodel.ClusterMeta
	events            []rcmodel.Event
	actions           map[actionKey]rcmodel.ActionSyncState
	discoverySettings map[string]rcmodel.DiscoverySettings
}

// NewMemoryStore builds an in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		discoveries:       make(map[string]rcmodel.ClusterDiscovery),
		settings:          make(map[string]rcmodel.ClusterSettings),
		agents:            make(map[agentKey]rcmodel.Agent),
		agentInfos:        make(map[agentKey]rcmodel.AgentInfo),
		nodes:             make(map[nodeKey]rcmodel.Node),
		shards:            make(map[shardKey]rcmodel.Shard),
		clusterMeta:       make(map[string]rcmodel.ClusterMeta),
		actions:           make(map[actionKey]rcmodel.ActionSyncState),
		discoverySettings: make(map[string]rcmodel.DiscoverySettings),
	}
}

func (s *memoryStore) Close(context.Context) error { return nil }

// --- Cluster ---

type memoryClusterHandle struct {
	store     *memoryStore
	clusterID string
}

func (s *memoryStore) Cluster(_, clusterID string) ClusterHandle {
	return &memoryClusterHandle{store: s, clusterID: clusterID}
}

func (h *memoryClusterHandle) Discovery(context.Context) (rcmodel.ClusterDiscovery, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	d, ok := h.store.discoveries[h.clusterID]
	if !ok {
		return rcmodel.ClusterDiscovery{}, rcerror.New(rcerror.PrimaryStoreRead, "no discovery record for cluster %s", h.clusterID)
	}
	return d, nil
}

func (h *memoryClusterHandle) Settings(context.Context) (rcmodel.ClusterSettings, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	s, ok := h.store.settings[h.clusterID]
	if !ok {
		return rcmodel.ClusterSettings{ClusterID: h.clusterID}, nil
	}
	return s, nil
}

// MarkStale flags every AgentInfo/Node/Shard record of this cluster as
// stale. A subsequent Persist.* call on a matching natural key clears
// the flag for that one record (spec.md §3 Lifecycle).
func (h *memoryClusterHandle) MarkStale(context.Context) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	for k, v := range h.store.agentInfos {
		if k.clusterID == h.clusterID {
			v.Stale = true
			h.store.agentInfos[k] = v
		}
	}
	for k, v := range h.store.nodes {
		if k.clusterID == h.clusterID {
			v.Stale = true
			h.store.nodes[k] = v
		}
	}
	for k, v := range h.store.shards {
		if k.clusterID == h.clusterID {
			v.Stale = true
			h.store.shards[k] = v
		}
	}
	return nil
}

// --- Agent ---

type memoryAgentHandle struct {
	store              *memoryStore
	clusterID, host    string
}

func (s *memoryStore) Agent(clusterID, host string) AgentHandle {
	return &memoryAgentHandle{store: s, clusterID: clusterID, host: host}
}

func (h *memoryAgentHandle) Get(context.Context) (rcmodel.Agent, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	a, ok := h.store.agents[agentKey{h.clusterID, h.host}]
	if !ok {
		return rcmodel.Agent{}, rcerror.New(rcerror.PrimaryStoreRead, "no agent record for %s/%s", h.clusterID, h.host)
	}
	return a, nil
}

func (h *memoryAgentHandle) Info(context.Context) (rcmodel.AgentInfo, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	info, ok := h.store.agentInfos[agentKey{h.clusterID, h.host}]
	if !ok {
		return rcmodel.AgentInfo{}, rcerror.New(rcerror.PrimaryStoreRead, "no agent info for %s/%s", h.clusterID, h.host)
	}
	return info, nil
}

// --- Agents ---

type memoryAgentsHandle struct {
	store     *memoryStore
	clusterID string
}

func (s *memoryStore) Agents(clusterID string) AgentsHandle {
	return &memoryAgentsHandle{store: s, clusterID: clusterID}
}

func (h *memoryAgentsHandle) Iter(context.Context) iter.Seq2[rcmodel.Agent, error] {
	h.store.mu.RLock()
	var snapshot []rcmodel.Agent
	for k, v := range h.store.agents {
		if k.clusterID == h.clusterID {
			snapshot = append(snapshot, v)
		}
	}
	h.store.mu.RUnlock()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Host < snapshot[j].Host })

	return func(yield func(rcmodel.Agent, error) bool) {
		for _, a := range snapshot {
			if !yield(a, nil) {
				return
			}
		}
	}
}

func (h *memoryAgentsHandle) IterInfo(context.Context) iter.Seq2[rcmodel.AgentInfo, error] {
	h.store.mu.RLock()
	var snapshot []rcmodel.AgentInfo
	for k, v := range h.store.agentInfos {
		if k.clusterID == h.clusterID {
			snapshot = append(snapshot, v)
		}
	}
	h.store.mu.RUnlock()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Host < snapshot[j].Host })

	return func(yield func(rcmodel.AgentInfo, error) bool) {
		for _, a := range snapshot {
			if !yield(a, nil) {
				return
			}
		}
	}
}

func (h *memoryAgentsHandle) Counts(context.Context) (AgentCounts, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	var counts AgentCounts
	for k, v := range h.store.agents {
		if k.clusterID != h.clusterID {
			continue
		}
		switch v.Status.Kind {
		case rcmodel.AgentStatusUp:
			counts.Up++
		case rcmodel.AgentStatusAgentDown:
			counts.AgentDown++
		case rcmodel.AgentStatusNodeDown:
			counts.NodeDown++
		}
	}
	return counts, nil
}

// --- Node / Nodes ---

type memoryNodeHandle struct {
	store                    *memoryStore
	clusterID, nodeID string
}

func (s *memoryStore) Node(clusterID, nodeID string) NodeHandle {
	return &memoryNodeHandle{store: s, clusterID: clusterID, nodeID: nodeID}
}

func (h *memoryNodeHandle) Get(context.Context) (rcmodel.Node, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	n, ok := h.store.nodes[nodeKey{h.clusterID, h.nodeID}]
	if !ok {
		return rcmodel.Node{}, rcerror.New(rcerror.PrimaryStoreRead, "no node record for %s/%s", h.clusterID, h.nodeID)
	}
	return n, nil
}

type memoryNodesHandle struct {
	store     *memoryStore
	clusterID string
}

func (s *memoryStore) Nodes(clusterID string) NodesHandle {
	return &memoryNodesHandle{store: s, clusterID: clusterID}
}

func (h *memoryNodesHandle) Iter(context.Context) iter.Seq2[rcmodel.Node, error] {
	h.store.mu.RLock()
	var snapshot []rcmodel.Node
	for k, v := range h.store.nodes {
		if k.clusterID == h.clusterID {
			snapshot = append(snapshot, v)
		}
	}
	h.store.mu.RUnlock()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].NodeID < snapshot[j].NodeID })

	return func(yield func(rcmodel.Node, error) bool) {
		for _, n := range snapshot {
			if !yield(n, nil) {
				return
			}
		}
	}
}

func (h *memoryNodesHandle) Kinds(context.Context) ([]string, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	seen := map[string]struct{}{}
	for k, v := range h.store.nodes {
		if k.clusterID == h.clusterID {
			seen[v.Kind] = struct{}{}
		}
	}
	kinds := make([]string, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds, nil
}

// --- Shard / Shards ---

type memoryShardHandle struct {
	store                              *memoryStore
	clusterID, nodeID, shardID string
}

func (s *memoryStore) Shard(clusterID, nodeID, shardID string) ShardHandle {
	return &memoryShardHandle{store: s, clusterID: clusterID, nodeID: nodeID, shardID: shardID}
}

func (h *memoryShardHandle) Get(context.Context) (rcmodel.Shard, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	sh, ok := h.store.shards[shardKey{h.clusterID, h.nodeID, h.shardID}]
	if !ok {
		return rcmodel.Shard{}, rcerror.New(rcerror.PrimaryStoreRead, "no shard record for %s/%s/%s", h.clusterID, h.nodeID, h.shardID)
	}
	return sh, nil
}

type memoryShardsHandle struct {
	store     *memoryStore
	clusterID string
}

func (s *memoryStore) Shards(clusterID string) ShardsHandle {
	return &memoryShardsHandle{store: s, clusterID: clusterID}
}

func (h *memoryShardsHandle) Iter(context.Context) iter.Seq2[rcmodel.Shard, error] {
	h.store.mu.RLock()
	var snapshot []rcmodel.Shard
	for k, v := range h.store.shards {
		if k.clusterID == h.clusterID {
			snapshot = append(snapshot, v)
		}
	}
	h.store.mu.RUnlock()
	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].ShardID != snapshot[j].ShardID {
			return snapshot[i].ShardID < snapshot[j].ShardID
		}
		return snapshot[i].NodeID < snapshot[j].NodeID
	})

	return func(yield func(rcmodel.Shard, error) bool) {
		for _, sh := range snapshot {
			if !yield(sh, nil) {
				return
			}
		}
	}
}

// Counts deduplicates by shard_id across nodes: each distinct shard_id
// counts once toward Shards, and toward Primaries if at least one of its
// replicas (across nodes) holds the Primary role (spec.md §4.3).
func (h *memoryShardsHandle) Counts(context.Context) (ShardCounts, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	hasPrimary := map[string]bool{}
	for k, v := range h.store.shards {
		if k.clusterID != h.clusterID {
			continue
		}
		if _, ok := hasPrimary[k.shardID]; !ok {
			hasPrimary[k.shardID] = false
		}
		if v.Role == rcmodel.ShardRolePrimary {
			hasPrimary[k.shardID] = true
		}
	}

	counts := ShardCounts{Shards: len(hasPrimary)}
	for _, primary := range hasPrimary {
		if primary {
			counts.Primaries++
		}
	}
	return counts, nil
}

// --- Persist ---

type memoryPersistHandle struct {
	store *memoryStore
}

func (s *memoryStore) Persist() PersistHandle {
	return &memoryPersistHandle{store: s}
}

func (h *memoryPersistHandle) Agent(_ context.Context, agent rcmodel.Agent) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.agents[agentKey{agent.ClusterID, agent.Host}] = agent
	return nil
}

func (h *memoryPersistHandle) AgentInfo(_ context.Context, info rcmodel.AgentInfo) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	info.Stale = false
	h.store.agentInfos[agentKey{info.ClusterID, info.Host}] = info
	return nil
}

func (h *memoryPersistHandle) ClusterDiscovery(_ context.Context, discovery rcmodel.ClusterDiscovery) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.discoveries[discovery.ClusterID] = discovery
	return nil
}

func (h *memoryPersistHandle) Node(_ context.Context, node rcmodel.Node) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	node.Stale = false
	h.store.nodes[nodeKey{node.ClusterID, node.NodeID}] = node
	return nil
}

func (h *memoryPersistHandle) Shard(_ context.Context, shard rcmodel.Shard) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	shard.Stale = false
	h.store.shards[shardKey{shard.ClusterID, shard.NodeID, shard.ShardID}] = shard
	return nil
}

func (h *memoryPersistHandle) Action(_ context.Context, action rcmodel.ActionSyncState) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.actions[actionKey{action.NodeID, action.ActionID}] = action
	return nil
}

func (h *memoryPersistHandle) ClusterMeta(_ context.Context, meta rcmodel.ClusterMeta) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.clusterMeta[meta.ClusterID] = meta
	return nil
}

// --- Legacy ---

type memoryLegacyHandle struct {
	store *memoryStore
}

func (s *memoryStore) Legacy() LegacyHandle {
	return &memoryLegacyHandle{store: s}
}

func (h *memoryLegacyHandle) ClusterMetaFind(_ context.Context, clusterID string) (rcmodel.ClusterMeta, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	meta, ok := h.store.clusterMeta[clusterID]
	if !ok {
		return rcmodel.ClusterMeta{}, rcerror.New(rcerror.PrimaryStoreRead, "no cluster meta for %s", clusterID)
	}
	return meta, nil
}

func (h *memoryLegacyHandle) ClusterMetaTop(_ context.Context, limit int) ([]rcmodel.ClusterMeta, error) {
	h.store.mu.RLock()
	snapshot := make([]rcmodel.ClusterMeta, 0, len(h.store.clusterMeta))
	for _, m := range h.store.clusterMeta {
		snapshot = append(snapshot, m)
	}
	h.store.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Nodes > snapshot[j].Nodes })
	if limit > 0 && len(snapshot) > limit {
		snapshot = snapshot[:limit]
	}
	return snapshot, nil
}

func (h *memoryLegacyHandle) AppendEvent(_ context.Context, event rcmodel.Event) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.events = append(h.store.events, event)
	return nil
}

func (h *memoryLegacyHandle) ScanEvents(_ context.Context, filter eventstream.Filter, options eventstream.Options) iter.Seq2[rcmodel.Event, error] {
	h.store.mu.RLock()
	snapshot := make([]rcmodel.Event, len(h.store.events))
	copy(snapshot, h.store.events)
	h.store.mu.RUnlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		if options.Reverse {
			return snapshot[i].Timestamp.After(snapshot[j].Timestamp)
		}
		return snapshot[i].Timestamp.Before(snapshot[j].Timestamp)
	})

	return func(yield func(rcmodel.Event, error) bool) {
		yielded := 0
		for _, e := range snapshot {
			if !filter.Matches(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
			yielded++
			if options.Limit > 0 && yielded >= options.Limit {
				return
			}
		}
	}
}

// --- GlobalSearch ---

type memoryGlobalSearchHandle struct {
	store *memoryStore
}

func (s *memoryStore) GlobalSearch() GlobalSearchHandle {
	return &memoryGlobalSearchHandle{store: s}
}

func (h *memoryGlobalSearchHandle) DiscoveriesToRun(_ context.Context, now time.Time) iter.Seq2[rcmodel.DiscoverySettings, error] {
	h.store.mu.RLock()
	var due []rcmodel.DiscoverySettings
	for _, d := range h.store.discoverySettings {
		if !d.NextRun.After(now) {
			due = append(due, d)
		}
	}
	h.store.mu.RUnlock()

	sort.Slice(due, func(i, j int) bool { return due[i].Namespace < due[j].Namespace })

	return func(yield func(rcmodel.DiscoverySettings, error) bool) {
		for _, d := range due {
			if !yield(d, nil) {
				return
			}
		}
	}
}

// PutDiscoverySettings is a test/seed helper; it has no spec.md
// equivalent operation name because discovery's own scheduling store is
// out of this core's scope (spec.md §1), but something has to seed the
// cursor GlobalSearch().DiscoveriesToRun() scans.
func (s *memoryStore) PutDiscoverySettings(settings rcmodel.DiscoverySettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discoverySettings[settings.Namespace] = settings
}

// --- Actions ---

type memoryActionsHandle struct {
	store *memoryStore
}

func (s *memoryStore) Actions() ActionsHandle {
	return &memoryActionsHandle{store: s}
}

func (h *memoryActionsHandle) IterLost(_ context.Context, nodeID string, refreshID int64, finishedBefore time.Time) iter.Seq2[rcmodel.ActionSyncState, error] {
	h.store.mu.RLock()
	var snapshot []rcmodel.ActionSyncState
	for k, v := range h.store.actions {
		if k.nodeID != nodeID {
			continue
		}
		if v.RefreshID == refreshID {
			continue
		}
		if v.Finished.IsZero() || v.Finished.After(finishedBefore) {
			continue
		}
		if v.Lost {
			continue
		}
		snapshot = append(snapshot, v)
	}
	h.store.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ActionID < snapshot[j].ActionID })

	return func(yield func(rcmodel.ActionSyncState, error) bool) {
		for _, a := range snapshot {
			if !yield(a, nil) {
				return
			}
		}
	}
}

func (h *memoryActionsHandle) MarkLost(_ context.Context, action rcmodel.ActionSyncState) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	action.Lost = true
	h.store.actions[actionKey{action.NodeID, action.ActionID}] = action
	return nil
}
