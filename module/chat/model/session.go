package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const SessionCollection = "chat_sessions"

const (
	SessionStatusActive   = "active"
	SessionStatusInactive = "inactive" // reserved; no code path writes it yet
)

// ChatSession is the durable record surfaced to admin tooling. It is
// upserted on every connect and message; the sweeper deletes it once
// AdminVisibility has passed.
// db.chat_sessions.createIndex({ session_id: 1 }, { unique: true })
// db.chat_sessions.createIndex({ admin_visibility: 1, user_type: 1 })
// db.chat_sessions.createIndex({ last_activity: 1 })
type ChatSession struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"    json:"_id,omitempty"`
	SessionID       string             `bson:"session_id"       json:"sessionId"`
	UserID          string             `bson:"user_id"          json:"userId"`
	UserName        string             `bson:"user_name"        json:"userName"`
	UserType        string             `bson:"user_type"        json:"userType"`
	Status          string             `bson:"status"           json:"status"`
	LastActivity    time.Time          `bson:"last_activity"    json:"lastActivity"`
	AdminVisibility time.Time          `bson:"admin_visibility" json:"adminVisibility"`
	CreatedAt       time.Time          `bson:"created_at"       json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at"       json:"updatedAt"`
}
