// Package mongo implements store.Checkpointer against MongoDB. Each
// checkpoint is one document in a collection indexed by (run_id, seq).
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/clearlane/deepresearch/store"
)

const (
	defaultCollection = "run_checkpoints"
	defaultOpTimeout  = 5 * time.Second
)

// Options configures the Mongo-backed checkpoint store.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store implements store.Checkpointer against MongoDB.
type Store struct {
	coll    *mongodriver.Collection
	timeout time.Duration
}

// New returns a Store backed by MongoDB, ensuring the indexes Save/Latest/List
// rely on exist.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongo: database name is required")
	}
	name := opts.Collection
	if name == "" {
		name = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(name)

	idxCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	index := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}, {Key: "seq", Value: -1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(idxCtx, index); err != nil {
		return nil, err
	}
	return &Store{coll: coll, timeout: timeout}, nil
}

// Save implements store.Checkpointer. The driver never calls Save
// concurrently for the same run, so reading the current max seq and then
// inserting the next one is safe without a transaction.
func (s *Store) Save(ctx context.Context, runID string, state []byte) (int64, error) {
	if runID == "" {
		return 0, errors.New("mongo: run id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var last checkpointDocument
	err := s.coll.FindOne(ctx, bson.M{"run_id": runID},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})).Decode(&last)
	switch {
	case errors.Is(err, mongodriver.ErrNoDocuments):
		last.Seq = 0
	case err != nil:
		return 0, err
	}

	seq := last.Seq + 1
	doc := checkpointDocument{
		RunID:     runID,
		Seq:       seq,
		State:     append([]byte(nil), state...),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return 0, err
	}
	return seq, nil
}

// Latest implements store.Checkpointer.
func (s *Store) Latest(ctx context.Context, runID string) (store.Checkpoint, error) {
	if runID == "" {
		return store.Checkpoint{}, errors.New("mongo: run id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc checkpointDocument
	err := s.coll.FindOne(ctx, bson.M{"run_id": runID},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return store.Checkpoint{}, store.ErrNotFound
	}
	if err != nil {
		return store.Checkpoint{}, err
	}
	return doc.toCheckpoint(), nil
}

// List implements store.Checkpointer.
func (s *Store) List(ctx context.Context, runID string) ([]int64, error) {
	if runID == "" {
		return nil, errors.New("mongo: run id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.M{"run_id": runID},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}).SetProjection(bson.M{"seq": 1}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []int64
	for cur.Next(ctx) {
		var doc struct {
			Seq int64 `bson:"seq"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.Seq)
	}
	return out, cur.Err()
}

// Delete implements store.Checkpointer.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if runID == "" {
		return errors.New("mongo: run id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.DeleteMany(ctx, bson.M{"run_id": runID})
	return err
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

type checkpointDocument struct {
	RunID     string    `bson:"run_id"`
	Seq       int64     `bson:"seq"`
	State     []byte    `bson:"state"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d checkpointDocument) toCheckpoint() store.Checkpoint {
	return store.Checkpoint{RunID: d.RunID, Seq: d.Seq, State: append([]byte(nil), d.State...)}
}
