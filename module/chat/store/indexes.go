package store

import (
	"context"

	"SupportChat/module/chat/model"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes declares the indexes both repos rely on. Safe to call on
// every startup; Mongo treats existing definitions as no-ops.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(model.MessageCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "user_type", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "message indexes")
	}

	_, err = db.Collection(model.SessionCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "admin_visibility", Value: 1}, {Key: "user_type", Value: 1}}},
		{Keys: bson.D{{Key: "last_activity", Value: 1}}},
	})
	return errors.Wrap(err, "session indexes")
}
