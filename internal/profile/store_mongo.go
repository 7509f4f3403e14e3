package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/park285/chess-coach/internal/domain"
)

const mongoCollection = "rating_profiles"

// mongoProfile adds the revision counter that guards replaces.
type mongoProfile struct {
	domain.RatingProfile `bson:",inline"`
	Revision             int64 `bson:"revision"`
}

// MongoStore keeps one document per profile keyed by id. Update is an
// optimistic replace conditioned on the revision it read.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if strings.TrimSpace(database) == "" {
		database = "chess_coach"
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{client: client, coll: client.Database(database).Collection(mongoCollection)}, nil
}

func (s *MongoStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) find(ctx context.Context, id string) (*mongoProfile, error) {
	var doc mongoProfile
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find profile: %w", err)
	}
	return &doc, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*domain.RatingProfile, error) {
	doc, err := s.find(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}
	return &doc.RatingProfile, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, fn UpdateFunc) (*domain.RatingProfile, error) {
	for i := 0; i < updateRetries; i++ {
		doc, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		var cur *domain.RatingProfile
		if doc != nil {
			cur = doc.RatingProfile.Clone()
		}
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, errNilProfile
		}
		next = next.Clone()
		next.ID = id

		if doc == nil {
			_, err := s.coll.InsertOne(ctx, mongoProfile{RatingProfile: *next, Revision: 1})
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("mongo insert profile: %w", err)
			}
			return next, nil
		}

		filter := bson.D{{Key: "_id", Value: id}, {Key: "revision", Value: doc.Revision}}
		res, err := s.coll.ReplaceOne(ctx, filter, mongoProfile{RatingProfile: *next, Revision: doc.Revision + 1})
		if err != nil {
			return nil, fmt.Errorf("mongo replace profile: %w", err)
		}
		if res.MatchedCount == 0 {
			continue
		}
		return next, nil
	}
	return nil, ErrConflict
}

func (s *MongoStore) List(ctx context.Context) ([]*domain.RatingProfile, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo list profiles: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]*domain.RatingProfile, 0)
	for cur.Next(ctx) {
		var doc mongoProfile
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo decode profile: %w", err)
		}
		p := doc.RatingProfile
		out = append(out, &p)
	}
	return out, cur.Err()
}
