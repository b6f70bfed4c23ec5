package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MessageCollection = "messages"

// Message kinds. System messages are authored by the relay itself (welcome).
const (
	MessageTypeUser   = "user"
	MessageTypeAdmin  = "admin"
	MessageTypeSystem = "system"
)

// Message is one chat line, append-only once written.
// db.messages.createIndex({ session_id: 1 })
// db.messages.createIndex({ created_at: 1, user_type: 1 })
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"  json:"_id,omitempty"`
	Text      string             `bson:"text"           json:"text"`
	SessionID string             `bson:"session_id"     json:"sessionId"`
	UserID    string             `bson:"user_id"        json:"userId"`
	UserName  string             `bson:"user_name"      json:"userName"`
	UserType  string             `bson:"user_type"      json:"userType"`
	MsgType   string             `bson:"message_type"   json:"messageType"` // user|admin|system
	Time      string             `bson:"time"           json:"time"`        // display string, e.g. 15:04:05
	CreatedAt time.Time          `bson:"created_at"     json:"createdAt"`   // retention key
}
