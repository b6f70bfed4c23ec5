package store

import (
	"context"
	"time"

	"SupportChat/module/chat/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HistoryLimit caps every history query; callers cannot page past it.
const HistoryLimit = 100

type MessageRepo struct {
	DB *mongo.Database
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{DB: db}
}

func (r *MessageRepo) coll() *mongo.Collection {
	return r.DB.Collection(model.MessageCollection)
}

// Insert appends one message. Messages are never mutated afterwards.
func (r *MessageRepo) Insert(ctx context.Context, m *model.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if _, err := r.coll().InsertOne(ctx, m); err != nil {
		return errors.Wrap(err, "insert message")
	}
	return nil
}

// ListBySession returns up to limit messages for a session, oldest first.
// An unknown session yields an empty slice, not an error.
func (r *MessageRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]model.Message, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)
	cur, err := r.coll().Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	defer cur.Close(ctx)

	out := make([]model.Message, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	return out, nil
}

// CountBySession reports how many messages a session holds. The welcome
// policy only needs zero / non-zero.
func (r *MessageRepo) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	n, err := r.coll().CountDocuments(ctx, bson.M{"session_id": sessionID}, options.Count().SetLimit(1))
	if err != nil {
		return 0, errors.Wrap(err, "count messages")
	}
	return n, nil
}

// DeleteOlderThan purges messages created before cutoff and returns how many
// were removed.
func (r *MessageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll().DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, errors.Wrap(err, "delete old messages")
	}
	return res.DeletedCount, nil
}
