// Package mongo implements runmeta.Store against MongoDB.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/clearlane/deepresearch/runmeta"
)

const (
	defaultCollection = "runs"
	defaultOpTimeout  = 5 * time.Second
)

// Options configures the Mongo-backed run metadata store.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store implements runmeta.Store against MongoDB.
type Store struct {
	coll    *mongodriver.Collection
	timeout time.Duration
}

// New returns a Store backed by MongoDB, ensuring the (user_id, status)
// index exists. The run id is the document _id, which MongoDB keeps unique.
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
	byUser := mongodriver.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}}
	if _, err := coll.Indexes().CreateOne(idxCtx, byUser); err != nil {
		return nil, err
	}
	return &Store{coll: coll, timeout: timeout}, nil
}

// Create implements runmeta.Store.
func (s *Store) Create(ctx context.Context, id, userID, title string, createdAt time.Time) (runmeta.Run, error) {
	if id == "" {
		return runmeta.Run{}, errors.New("mongo: run id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := runDocument{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Status:    runmeta.StatusActive,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: createdAt.UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return runmeta.Run{}, runmeta.ErrAlreadyExists
		}
		return runmeta.Run{}, err
	}
	return doc.toRun(), nil
}

// Load implements runmeta.Store.
func (s *Store) Load(ctx context.Context, id string) (runmeta.Run, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc runDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return runmeta.Run{}, runmeta.ErrNotFound
	}
	if err != nil {
		return runmeta.Run{}, err
	}
	return doc.toRun(), nil
}

// Patch implements runmeta.Store.
func (s *Store) Patch(ctx context.Context, id string, title *string, status *runmeta.Status) (runmeta.Run, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if title != nil {
		set["title"] = *title
	}
	if status != nil {
		set["status"] = *status
	}
	res := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	var doc runDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return runmeta.Run{}, runmeta.ErrNotFound
		}
		return runmeta.Run{}, err
	}
	return doc.toRun(), nil
}

// AddTokens implements runmeta.Store.
func (s *Store) AddTokens(ctx context.Context, id string, delta int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"total_tokens": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return runmeta.ErrNotFound
	}
	return nil
}

// ListByStatus implements runmeta.Store.
func (s *Store) ListByStatus(ctx context.Context, statuses ...runmeta.Status) ([]runmeta.Run, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []runmeta.Run
	for cur.Next(ctx) {
		var doc runDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toRun())
	}
	return out, cur.Err()
}

// Delete implements runmeta.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
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

type runDocument struct {
	ID          string         `bson:"_id"`
	UserID      string         `bson:"user_id"`
	Title       string         `bson:"title"`
	Status      runmeta.Status `bson:"status"`
	CreatedAt   time.Time      `bson:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at"`
	TotalTokens int64          `bson:"total_tokens"`
}

func (d runDocument) toRun() runmeta.Run {
	return runmeta.Run{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		TotalTokens: d.TotalTokens,
	}
}
