package store

import (
	"context"
	"iter"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/replicante-io/replicore/internal/eventstream"
	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/rcmodel"
)

// Mongo collection names, matching
// original_source/store/primary/src/backend/mongo/constants.rs.
const (
	collectionAgents       = "agents"
	collectionAgentsInfo   = "agents_info"
	collectionDiscoveries  = "discoveries"
	collectionNodes        = "nodes"
	collectionShards       = "shards"
	collectionActions      = "actions"
	collectionClusterMeta  = "cluster_meta"
	collectionEvents       = "events"
	collectionDiscoverySet = "discovery_settings"
)

// MongoConfig configures the MongoDB-backed Store.
type MongoConfig struct {
	URI string
	DB  string
}

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and returns a Store backed by it,
// mirroring original_source/store/primary/src/backend/mongo/mod.rs.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, rcerror.Wrap(rcerror.Backend, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, rcerror.Wrap(rcerror.Backend, err, "ping mongodb")
	}
	return &mongoStore{client: client, db: client.Database(cfg.DB)}, nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return rcerror.Wrap(rcerror.Backend, err, "disconnect mongodb client")
	}
	return nil
}

func replaceOne(ctx context.Context, coll *mongo.Collection, filter bson.M, document any) error {
	_, err := coll.ReplaceOne(ctx, filter, document, options.Replace().SetUpsert(true))
	if err != nil {
		return rcerror.Wrap(rcerror.PrimaryStoreWrite, err, "upsert into %s", coll.Name())
	}
	return nil
}

// --- Cluster ---

type mongoClusterHandle struct {
	store     *mongoStore
	clusterID string
}

func (s *mongoStore) Cluster(_, clusterID string) ClusterHandle {
	return &mongoClusterHandle{store: s, clusterID: clusterID}
}

func (h *mongoClusterHandle) Discovery(ctx context.Context) (rcmodel.ClusterDiscovery, error) {
	var out rcmodel.ClusterDiscovery
	coll := h.store.db.Collection(collectionDiscoveries)
	err := coll.FindOne(ctx, bson.M{"cluster_id": h.clusterID}).Decode(&out)
	if err != nil {
		return rcmodel.ClusterDiscovery{}, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "find discovery for %s", h.clusterID)
	}
	return out, nil
}

func (h *mongoClusterHandle) Settings(ctx context.Context) (rcmodel.ClusterSettings, error) {
	var out rcmodel.ClusterSettings
	coll := h.store.db.Collection("cluster_settings")
	err := coll.FindOne(ctx, bson.M{"cluster_id": h.clusterID}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rcmodel.ClusterSettings{ClusterID: h.clusterID}, nil
	}
	if err != nil {
		return rcmodel.ClusterSettings{}, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "find settings for %s", h.clusterID)
	}
	return out, nil
}

// MarkStale flips stale on every agents_info/nodes/shards document of the
// cluster, matching the mark-stale-before-refresh step of
// original_source/store/primary/src/backend/mongo/data.rs.
func (h *mongoClusterHandle) MarkStale(ctx context.Context) error {
	filter := bson.M{"cluster_id": h.clusterID}
	update := bson.M{"$set": bson.M{"stale": true}}
	for _, name := range []string{collectionAgentsInfo, collectionNodes, collectionShards} {
		if _, err := h.store.db.Collection(name).UpdateMany(ctx, filter, update); err != nil {
			return rcerror.Wrap(rcerror.PrimaryStoreWrite, err, "mark %s stale for %s", name, h.clusterID)
		}
	}
	return nil
}

// --- Agent / Agents ---

type mongoAgentHandle struct {
	store                         *mongoStore
	clusterID, host string
}

func (s *mongoStore) Agent(clusterID, host string) AgentHandle {
	return &mongoAgentHandle{store: s, clusterID: clusterID, host: host}
}

func (h *mongoAgentHandle) Get(ctx context.Context) (rcmodel.Agent, error) {
	var out rcmodel.Agent
	coll := h.store.db.Collection(collectionAgents)
	err := coll.FindOne(ctx, bson.M{"cluster_id": h.clusterID, "host": h.host}).Decode(&out)
	if err != nil {
		return rcmodel.Agent{}, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "find agent %s/%s", h.clusterID, h.host)
	}
	return out, nil
}

func (h *mongoAgentHandle) Info(ctx context.Context) (rcmodel.AgentInfo, error) {
	var out rcmodel.AgentInfo
	coll := h.store.db.Collection(collectionAgentsInfo)
	err := coll.FindOne(ctx, bson.M{"cluster_id": h.clusterID, "host": h.host}).Decode(&out)
	if err != nil {
		return rcmodel.AgentInfo{}, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "find agent info %s/%s", h.clusterID, h.host)
	}
	return out, nil
}

type mongoAgentsHandle struct {
	store     *mongoStore
	clusterID string
}

func (s *mongoStore) Agents(clusterID string) AgentsHandle {
	return &mongoAgentsHandle{store: s, clusterID: clusterID}
}

func mongoIter[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		cur, err := coll.Find(ctx, filter)
		if err != nil {
			var zero T
			yield(zero, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "query %s", coll.Name()))
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var item T
			if err := cur.Decode(&item); err != nil {
				yield(item, rcerror.Wrap(rcerror.Deserialize, err, "decode %s document", coll.Name()))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			var zero T
			yield(zero, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "iterate %s", coll.Name()))
		}
	}
}

func (h *mongoAgentsHandle) Iter(ctx context.Context) iter.Seq2[rcmodel.Agent, error] {
	return mongoIter[rcmodel.Agent](ctx, h.store.db.Collection(collectionAgents), bson.M{"cluster_id": h.clusterID})
}

func (h *mongoAgentsHandle) IterInfo(ctx context.Context) iter.Seq2[rcmodel.AgentInfo, error] {
	return mongoIter[rcmodel.AgentInfo](ctx, h.store.db.Collection(collectionAgentsInfo), bson.M{"cluster_id": h.clusterID})
}

func (h *mongoAgentsHandle) Counts(ctx context.Context) (AgentCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"cluster_id": h.clusterID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status.kind", "count": bson.M{"$sum": 1}}}},
	}
	coll := h.store.db.Collection(collectionAgents)
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return AgentCounts{}, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "aggregate agent counts for %s", h.clusterID)
	}
	defer cur.Close(ctx)

	var counts AgentCounts
	for cur.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return AgentCounts{}, rcerror.Wrap(rcerror.Deserialize, err, "decode agent count row")
		}
		switch rcmodel.AgentStatusKind(row.ID) {
		case rcmodel.AgentStatusUp:
			counts.Up = row.Count
		case rcmodel.AgentStatusAgentDown:
			counts.AgentDown = row.Count
		case rcmodel.AgentStatusNodeDown:
			counts.NodeDown = row.Count
		}
	}
	return counts, cur.Err()
}

// --- Node / Nodes ---

type mongoNodeHandle struct {
	store                    *mongoStore
	clusterID, nodeID string
}

func (s *mongoStore) Node(clusterID, nodeID string) NodeHandle {
	return &mongoNodeHandle{store: s, clusterID: clusterID, nodeID: nodeID}
}

func (h *mongoNodeHandle) Get(ctx context.Context) (rcmodel.Node, error) {
	var out rcmodel.Node
	coll := h.store.db.Collection(collectionNodes)
	err := coll.FindOne(ctx, bson.M{"cluster_id": h.clusterID, "node_id": h.nodeID}).Decode(&out)
	if err != nil {
		return rcmodel.Node{}, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "find node %s/%s", h.clusterID, h.nodeID)
	}
	return out, nil
}

type mongoNodesHandle struct {
	store     *mongoStore
	clusterID string
}

func (s *mongoStore) Nodes(clusterID string) NodesHandle {
	return &mongoNodesHandle{store: s, clusterID: clusterID}
}

func (h *mongoNodesHandle) Iter(ctx context.Context) iter.Seq2[rcmodel.Node, error] {
	return mongoIter[rcmodel.Node](ctx, h.store.db.Collection(collectionNodes), bson.M{"cluster_id": h.clusterID})
}

func (h *mongoNodesHandle) Kinds(ctx context.Context) ([]string, error) {
	coll := h.store.db.Collection(collectionNodes)
	kinds, err := coll.Distinct(ctx, "kind", bson.M{"cluster_id": h.clusterID})
	if err != nil {
		return nil, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "distinct kinds for %s", h.clusterID)
	}
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if s, ok := k.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// --- Shard / Shards ---

type mongoShardHandle struct {
	store                              *mongoStore
	clusterID, nodeID, shardID string
}

func (s *mongoStore) Shard(clusterID, nodeID, shardID string) ShardHandle {
	return &mongoShardHandle{store: s, clusterID: clusterID, nodeID: nodeID, shardID: shardID}
}

func (h *mongoShardHandle) Get(ctx context.Context) (rcmodel.Shard, error) {
	var out rcmodel.Shard
	coll := h.store.db.Collection(collectionShards)
	filter := bson.M{"cluster_id": h.clusterID, "node_id": h.nodeID, "shard_id": h.shardID}
	err := coll.FindOne(ctx, filter).Decode(&out)
	if err != nil {
		return rcmodel.Shard{}, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "find shard %s/%s/%s", h.clusterID, h.nodeID, h.shardID)
	}
	return out, nil
}

type mongoShardsHandle struct {
	store     *mongoStore
	clusterID string
}

func (s *mongoStore) Shards(clusterID string) ShardsHandle {
	return &mongoShardsHandle{store: s, clusterID: clusterID}
}

func (h *mongoShardsHandle) Iter(ctx context.Context) iter.Seq2[rcmodel.Shard, error] {
	return mongoIter[rcmodel.Shard](ctx, h.store.db.Collection(collectionShards), bson.M{"cluster_id": h.clusterID})
}

// Counts reproduces the two-stage $group aggregation of
// original_source/store/primary/src/backend/mongo/shards.rs: first group
// by (cluster_id, shard_id) to dedup replicas of the same shard, then
// reduce to a single {shards, primaries} document.
func (h *mongoShardsHandle) Counts(ctx context.Context) (ShardCounts, error) {
	countPrimary := bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$role", string(rcmodel.ShardRolePrimary)}}, 1, 0}}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"cluster_id": h.clusterID, "stale": false}}},
		{{Key: "$group", Value: bson.M{
			"_id":       bson.M{"cluster_id": "$cluster_id", "shard_id": "$shard_id"},
			"primaries": countPrimary,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$_id.cluster_id",
			"shards":    bson.M{"$sum": 1},
			"primaries": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$gt": bson.A{"$primaries", 0}}, 1, 0}}},
		}}},
	}
	coll := h.store.db.Collection(collectionShards)
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return ShardCounts{}, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "aggregate shard counts for %s", h.clusterID)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		return ShardCounts{}, cur.Err()
	}
	var row struct {
		Shards    int `bson:"shards"`
		Primaries int `bson:"primaries"`
	}
	if err := cur.Decode(&row); err != nil {
		return ShardCounts{}, rcerror.Wrap(rcerror.Deserialize, err, "decode shard counts row")
	}
	return ShardCounts{Shards: row.Shards, Primaries: row.Primaries}, nil
}

// --- Persist ---

type mongoPersistHandle struct {
	store *mongoStore
}

func (s *mongoStore) Persist() PersistHandle {
	return &mongoPersistHandle{store: s}
}

func (h *mongoPersistHandle) Agent(ctx context.Context, agent rcmodel.Agent) error {
	filter := bson.M{"cluster_id": agent.ClusterID, "host": agent.Host}
	return replaceOne(ctx, h.store.db.Collection(collectionAgents), filter, agent)
}

func (h *mongoPersistHandle) AgentInfo(ctx context.Context, info rcmodel.AgentInfo) error {
	info.Stale = false
	filter := bson.M{"cluster_id": info.ClusterID, "host": info.Host}
	return replaceOne(ctx, h.store.db.Collection(collectionAgentsInfo), filter, info)
}

func (h *mongoPersistHandle) ClusterDiscovery(ctx context.Context, discovery rcmodel.ClusterDiscovery) error {
	filter := bson.M{"cluster_id": discovery.ClusterID}
	return replaceOne(ctx, h.store.db.Collection(collectionDiscoveries), filter, discovery)
}

func (h *mongoPersistHandle) Node(ctx context.Context, node rcmodel.Node) error {
	node.Stale = false
	filter := bson.M{"cluster_id": node.ClusterID, "node_id": node.NodeID}
	return replaceOne(ctx, h.store.db.Collection(collectionNodes), filter, node)
}

func (h *mongoPersistHandle) Shard(ctx context.Context, shard rcmodel.Shard) error {
	shard.Stale = false
	filter := bson.M{"cluster_id": shard.ClusterID, "node_id": shard.NodeID, "shard_id": shard.ShardID}
	return replaceOne(ctx, h.store.db.Collection(collectionShards), filter, shard)
}

func (h *mongoPersistHandle) Action(ctx context.Context, action rcmodel.ActionSyncState) error {
	filter := bson.M{"node_id": action.NodeID, "action_id": action.ActionID}
	return replaceOne(ctx, h.store.db.Collection(collectionActions), filter, action)
}

func (h *mongoPersistHandle) ClusterMeta(ctx context.Context, meta rcmodel.ClusterMeta) error {
	filter := bson.M{"cluster_id": meta.ClusterID}
	return replaceOne(ctx, h.store.db.Collection(collectionClusterMeta), filter, meta)
}

// --- Legacy ---

type mongoLegacyHandle struct {
	store *mongoStore
}

func (s *mongoStore) Legacy() LegacyHandle {
	return &mongoLegacyHandle{store: s}
}

func (h *mongoLegacyHandle) ClusterMetaFind(ctx context.Context, clusterID string) (rcmodel.ClusterMeta, error) {
	var out rcmodel.ClusterMeta
	coll := h.store.db.Collection(collectionClusterMeta)
	err := coll.FindOne(ctx, bson.M{"cluster_id": clusterID}).Decode(&out)
	if err != nil {
		return rcmodel.ClusterMeta{}, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "find cluster meta for %s", clusterID)
	}
	return out, nil
}

func (h *mongoLegacyHandle) ClusterMetaTop(ctx context.Context, limit int) ([]rcmodel.ClusterMeta, error) {
	coll := h.store.db.Collection(collectionClusterMeta)
	opts := options.Find().SetSort(bson.M{"nodes": -1})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "query top cluster meta")
	}
	defer cur.Close(ctx)

	var out []rcmodel.ClusterMeta
	if err := cur.All(ctx, &out); err != nil {
		return nil, rcerror.Wrap(rcerror.Deserialize, err, "decode top cluster meta")
	}
	return out, nil
}

func (h *mongoLegacyHandle) AppendEvent(ctx context.Context, event rcmodel.Event) error {
	coll := h.store.db.Collection(collectionEvents)
	if _, err := coll.InsertOne(ctx, event); err != nil {
		return rcerror.Wrap(rcerror.EventEmit, err, "insert event %s", event.EventID)
	}
	return nil
}

func (h *mongoLegacyHandle) ScanEvents(ctx context.Context, filter eventstream.Filter, opts eventstream.Options) iter.Seq2[rcmodel.Event, error] {
	return func(yield func(rcmodel.Event, error) bool) {
		findOpts := options.Find()
		if opts.Reverse {
			findOpts = findOpts.SetSort(bson.M{"timestamp": -1})
		} else {
			findOpts = findOpts.SetSort(bson.M{"timestamp": 1})
		}
		if opts.Limit > 0 {
			// Family/time filters apply client-side below, so over-fetch a
			// small multiple to keep the common unfiltered case a single
			// round trip while still honoring Limit after filtering.
			findOpts = findOpts.SetLimit(int64(opts.Limit) * 4)
		}

		coll := h.store.db.Collection(collectionEvents)
		cur, err := coll.Find(ctx, bson.M{}, findOpts)
		if err != nil {
			var zero rcmodel.Event
			yield(zero, rcerror.Wrap(rcerror.PrimaryStoreRead, err, "query events"))
			return
		}
		defer cur.Close(ctx)

		yielded := 0
		for cur.Next(ctx) {
			var e rcmodel.Event
			if err := cur.Decode(&e); err != nil {
				yield(e, rcerror.Wrap(rcerror.Deserialize, err, "decode event"))
				return
			}
			if !filter.Matches(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
			yielded++
			if opts.Limit > 0 && yielded >= opts.Limit {
				return
			}
		}
	}
}

// --- GlobalSearch ---

type mongoGlobalSearchHandle struct {
	store *mongoStore
}

func (s *mongoStore) GlobalSearch() GlobalSearchHandle {
	return &mongoGlobalSearchHandle{store: s}
}

func (h *mongoGlobalSearchHandle) DiscoveriesToRun(ctx context.Context, now time.Time) iter.Seq2[rcmodel.DiscoverySettings, error] {
	filter := bson.M{"next_run": bson.M{"$lte": now}}
	return mongoIter[rcmodel.DiscoverySettings](ctx, h.store.db.Collection(collectionDiscoverySet), filter)
}

// --- Actions ---

type mongoActionsHandle struct {
	store *mongoStore
}

func (s *mongoStore) Actions() ActionsHandle {
	return &mongoActionsHandle{store: s}
}

func (h *mongoActionsHandle) IterLost(ctx context.Context, nodeID string, refreshID int64, finishedBefore time.Time) iter.Seq2[rcmodel.ActionSyncState, error] {
	filter := bson.M{
		"node_id":    nodeID,
		"refresh_id": bson.M{"$ne": refreshID},
		"finished":   bson.M{"$lte": finishedBefore, "$ne": time.Time{}},
		"lost":       false,
	}
	return mongoIter[rcmodel.ActionSyncState](ctx, h.store.db.Collection(collectionActions), filter)
}

func (h *mongoActionsHandle) MarkLost(ctx context.Context, action rcmodel.ActionSyncState) error {
	filter := bson.M{"node_id": action.NodeID, "action_id": action.ActionID}
	update := bson.M{"$set": bson.M{"lost": true}}
	if _, err := h.store.db.Collection(collectionActions).UpdateOne(ctx, filter, update); err != nil {
		return rcerror.Wrap(rcerror.PrimaryStoreWrite, err, "mark action %s lost", action.ActionID)
	}
	return nil
}
