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

type SessionRepo struct {
	DB *mongo.Database
}

func NewSessionRepo(db *mongo.Database) *SessionRepo {
	return &SessionRepo{DB: db}
}

func (r *SessionRepo) coll() *mongo.Collection {
	return r.DB.Collection(model.SessionCollection)
}

// Upsert writes the full record keyed by session id. Used on connect;
// reconnects within the window simply refresh the timestamps.
func (r *SessionRepo) Upsert(ctx context.Context, s *model.ChatSession) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"session_id":       s.SessionID,
			"user_id":          s.UserID,
			"user_name":        s.UserName,
			"user_type":        s.UserType,
			"status":           s.Status,
			"last_activity":    s.LastActivity,
			"admin_visibility": s.AdminVisibility,
			"updated_at":       now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := r.coll().UpdateOne(ctx,
		bson.M{"session_id": s.SessionID},
		update,
		options.Update().SetUpsert(true),
	)
	return errors.Wrap(err, "upsert session")
}

// TouchActivity bumps last_activity and admin_visibility on message traffic.
// Partial update: the identity fields written at connect stay as they are.
func (r *SessionRepo) TouchActivity(ctx context.Context, sessionID string, lastActivity, adminVisibility time.Time) error {
	_, err := r.coll().UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"last_activity":    lastActivity,
			"admin_visibility": adminVisibility,
			"updated_at":       time.Now(),
		}},
	)
	return errors.Wrap(err, "touch session activity")
}

// ListAdminVisible returns non-admin sessions still inside their visibility
// window, most recently active first.
func (r *SessionRepo) ListAdminVisible(ctx context.Context, now time.Time) ([]model.ChatSession, error) {
	filter := bson.M{
		"admin_visibility": bson.M{"$gte": now},
		"user_type":        bson.M{"$ne": "admin"},
	}
	opts := options.Find().SetSort(bson.D{{Key: "last_activity", Value: -1}})
	cur, err := r.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find admin sessions")
	}
	defer cur.Close(ctx)

	var out []model.ChatSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode sessions")
	}
	if out == nil {
		out = []model.ChatSession{}
	}
	return out, nil
}

// DeleteExpired removes sessions whose visibility window has passed.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll().DeleteMany(ctx, bson.M{"admin_visibility": bson.M{"$lt": now}})
	if err != nil {
		return 0, errors.Wrap(err, "delete expired sessions")
	}
	return res.DeletedCount, nil
}
