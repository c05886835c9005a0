package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slds/internal/ids"
	"slds/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const rawMatchesCollection = "raw_matches"

// MongoRecordStore keeps raw records as one document per game, keyed by
// league and game identity. It follows the storage.RecordStore contract of
// the file store, names included.
type MongoRecordStore struct {
	client   *mongo.Client
	coll     *mongo.Collection
	league   string
	official bool
}

// rawMatch is the stored document
type rawMatch struct {
	ID         string    `bson:"_id"`
	League     string    `bson:"league"`
	Match      string    `bson:"game_id"`
	Tournament string    `bson:"tournament,omitempty"`
	Hash       string    `bson:"hash,omitempty"`
	Official   bool      `bson:"official"`
	Names      names     `bson:"names"`
	Payload    bson.M    `bson:"match,omitempty"`
	Timeline   bson.M    `bson:"timeline,omitempty"`
	StoredAt   time.Time `bson:"stored_at"`
}

type names struct {
	Match    string `bson:"match"`
	Timeline string `bson:"timeline"`
}

// ConnectMongo connects and pings the server
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// NewMongoRecordStore binds a store to one league inside database
func NewMongoRecordStore(client *mongo.Client, database, league string, official bool) *MongoRecordStore {
	return &MongoRecordStore{
		client:   client,
		coll:     client.Database(database).Collection(rawMatchesCollection),
		league:   league,
		official: official,
	}
}

func (s *MongoRecordStore) docID(key ids.Key) string {
	return s.league + "/" + key.String()
}

// Index lists the games with both payloads stored
func (s *MongoRecordStore) Index(ctx context.Context) (*storage.Index, error) {
	filter := bson.M{
		"league":   s.league,
		"match":    bson.M{"$exists": true},
		"timeline": bson.M{"$exists": true},
	}
	opts := options.Find().SetProjection(bson.M{"game_id": 1, "tournament": 1, "hash": 1, "official": 1})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw matches: %w", err)
	}
	defer cur.Close(ctx)

	var list []ids.GameID
	for cur.Next(ctx) {
		var doc rawMatch
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		list = append(list, doc.gameID())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return storage.NewIndex(list), nil
}

func (d rawMatch) gameID() ids.GameID {
	if d.Tournament != "" {
		return ids.NewComposite(d.Match, d.Tournament, d.Hash)
	}
	return ids.GameID{Kind: ids.Simple, Match: d.Match}
}

func (s *MongoRecordStore) find(ctx context.Context, key ids.Key) (*rawMatch, error) {
	var doc rawMatch
	err := s.coll.FindOne(ctx, bson.M{"_id": s.docID(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s in %s", storage.ErrNotFound, key, rawMatchesCollection)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Resolve returns the names of a stored game. A document missing one of
// its payloads is not found, like a half pair on disk.
func (s *MongoRecordStore) Resolve(ctx context.Context, key ids.Key) (storage.Names, error) {
	doc, err := s.find(ctx, key)
	if err != nil {
		return storage.Names{}, err
	}
	if doc.Payload == nil || doc.Timeline == nil {
		return storage.Names{}, fmt.Errorf("%w: %s is missing a payload", storage.ErrNotFound, key)
	}
	return storage.Names{Match: doc.Names.Match, Timeline: doc.Names.Timeline}, nil
}

// Put upserts both payloads of a game in a single document write
func (s *MongoRecordStore) Put(ctx context.Context, id ids.GameID, match, timeline any) (storage.Names, error) {
	matchDoc, err := storage.AsDocument(match)
	if err != nil {
		return storage.Names{}, fmt.Errorf("match %s: %w", id, err)
	}
	timelineDoc, err := storage.AsDocument(timeline)
	if err != nil {
		return storage.Names{}, fmt.Errorf("timeline %s: %w", id, err)
	}
	date, err := storage.CreationDate(matchDoc)
	if err != nil {
		return storage.Names{}, fmt.Errorf("match %s: %w", id, err)
	}
	n := storage.StemsFor(date, id)

	doc := rawMatch{
		ID:         s.docID(id.Key()),
		League:     s.league,
		Match:      id.Match,
		Tournament: id.Tournament,
		Hash:       id.Hash,
		Official:   s.official,
		Names:      names{Match: n.Match, Timeline: n.Timeline},
		Payload:    bson.M(matchDoc),
		Timeline:   bson.M(timelineDoc),
		StoredAt:   time.Now().UTC(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return storage.Names{}, fmt.Errorf("failed to store %s: %w", id, err)
	}
	return n, nil
}

// LoadRecord reads both payloads of a game as plain JSON-like documents
func (s *MongoRecordStore) LoadRecord(ctx context.Context, key ids.Key) (*storage.Record, error) {
	doc, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}
	if doc.Payload == nil || doc.Timeline == nil {
		return nil, fmt.Errorf("%w: %s is missing a payload", storage.ErrNotFound, key)
	}
	return &storage.Record{
		ID:       doc.gameID(),
		Names:    storage.Names{Match: doc.Names.Match, Timeline: doc.Names.Timeline},
		Match:    normalize(doc.Payload).(map[string]any),
		Timeline: normalize(doc.Timeline).(map[string]any),
	}, nil
}

// normalize converts decoded BSON into the shapes encoding/json produces:
// objects as map[string]any, arrays as []any, numbers as float64
func normalize(v any) any {
	switch x := v.(type) {
	case bson.M:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case primitive.Decimal128:
		return x.String()
	default:
		return v
	}
}

// Close disconnects the client
func (s *MongoRecordStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
