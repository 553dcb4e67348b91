package viewstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/replicante-io/replicore/internal/rcerror"
	"github.com/replicante-io/replicore/internal/rcmodel"
)

const (
	collectionEvents      = "view_events"
	collectionTransitions = "view_action_transitions"
)

// MongoConfig configures the MongoDB-backed ViewStore.
type MongoConfig struct {
	URI string
	DB  string
}

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and returns a ViewStore backed by it,
// mirroring original_source/store/view/src/store/persist.rs.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (ViewStore, error) {
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

func (s *mongoStore) Persist() Persist { return &mongoPersist{store: s} }

type mongoPersist struct {
	store *mongoStore
}

// Event upserts on event_id so a redelivered event is a no-op rather than
// a duplicate row.
func (p *mongoPersist) Event(ctx context.Context, event rcmodel.Event) error {
	coll := p.store.db.Collection(collectionEvents)
	filter := bson.M{"event_id": event.EventID}
	_, err := coll.ReplaceOne(ctx, filter, event, options.Replace().SetUpsert(true))
	if err != nil {
		return rcerror.Wrap(rcerror.ViewStoreWrite, err, "persist event %s", event.EventID)
	}
	return nil
}

func (p *mongoPersist) ActionTransition(ctx context.Context, transition ActionTransition) error {
	coll := p.store.db.Collection(collectionTransitions)
	filter := bson.M{"action_id": transition.ActionID, "transition_seq": transition.TransitionSeq}
	_, err := coll.ReplaceOne(ctx, filter, transition, options.Replace().SetUpsert(true))
	if err != nil {
		return rcerror.Wrap(rcerror.ViewStoreWrite, err, "persist action transition %s/%d", transition.ActionID, transition.TransitionSeq)
	}
	return nil
}
