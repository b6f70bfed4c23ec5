package chat

import (
	"context"
	"time"

	"SupportChat/module/chat/model"
)

// SessionStore is the narrow slice of the durable session table the
// lifecycle manager needs.
type SessionStore interface {
	Upsert(ctx context.Context, s *model.ChatSession) error
	TouchActivity(ctx context.Context, sessionID string, lastActivity, adminVisibility time.Time) error
}

// MessageStore is the slice of the message log the relay core touches.
type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) error
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

type SessionConf struct {
	ConnectWindow time.Duration // admin visibility granted by a silent connect
	MessageWindow time.Duration // admin visibility granted by any message
	Clock         func() time.Time
}

func (c *SessionConf) norm() {
	if c.ConnectWindow <= 0 {
		c.ConnectWindow = 24 * time.Hour
	}
	if c.MessageWindow <= 0 {
		c.MessageWindow = 48 * time.Hour
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// SessionManager owns the durable session lifecycle: absent -> active ->
// (window expires) -> absent. It only ever writes status=active; the
// inactive status exists in the schema but nothing transitions into it.
type SessionManager struct {
	conf     SessionConf
	sessions SessionStore
	messages MessageStore
}

func NewSessionManager(conf SessionConf, sessions SessionStore, messages MessageStore) *SessionManager {
	conf.norm()
	return &SessionManager{conf: conf, sessions: sessions, messages: messages}
}

// TouchOnConnect upserts the session record with a fresh 24h visibility
// window. Reconnecting inside the window just refreshes the timestamps.
func (m *SessionManager) TouchOnConnect(ctx context.Context, p *Peer) error {
	now := m.conf.Clock()
	return m.sessions.Upsert(ctx, &model.ChatSession{
		SessionID:       p.SessionID,
		UserID:          p.UserID,
		UserName:        p.UserName,
		UserType:        string(p.Role),
		Status:          model.SessionStatusActive,
		LastActivity:    now,
		AdminVisibility: now.Add(m.conf.ConnectWindow),
	})
}

// TouchOnMessage extends visibility to 48h from this message. Visibility is
// always the most recent write, so it never decreases for in-order events.
func (m *SessionManager) TouchOnMessage(ctx context.Context, sessionID string) error {
	now := m.conf.Clock()
	return m.sessions.TouchActivity(ctx, sessionID, now, now.Add(m.conf.MessageWindow))
}

// ShouldWelcome reports whether this connect warrants the one-time welcome:
// a non-admin peer whose session has no persisted messages yet.
func (m *SessionManager) ShouldWelcome(ctx context.Context, p *Peer) (bool, error) {
	if p.Role == RoleAdmin {
		return false, nil
	}
	n, err := m.messages.CountBySession(ctx, p.SessionID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (m *SessionManager) Now() time.Time {
	return m.conf.Clock()
}
