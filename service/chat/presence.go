package chat

import (
	"context"
	"sync"
	"time"

	"SupportChat/logger"
	"SupportChat/tools/safe"

	"github.com/redis/go-redis/v9"
)

const onlineKeyPrefix = "chat:online:"

// RegistryConf configures the presence registry.
type RegistryConf struct {
	Mirror    *redis.Client // optional; nil disables the online mirror
	OnlineTTL time.Duration // mirror key TTL
	Clock     func() time.Time
}

func (c *RegistryConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.OnlineTTL <= 0 {
		c.OnlineTTL = 30 * time.Minute
	}
}

// Registry is the process-wide source of truth for who is online now, keyed
// by session id. One non-admin peer per session; a new connection for the
// same session replaces the previous descriptor (last-connect-wins), the
// displaced socket is left alone.
//
// When a Redis mirror is configured, register/unregister additionally write
// chat:online:<sessionId> keys for external dashboards. The mirror is
// best-effort: failures are logged and never affect routing.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]*Peer

	conf RegistryConf
}

func NewRegistry(conf RegistryConf) *Registry {
	conf.norm()
	return &Registry{
		peers: make(map[string]*Peer),
		conf:  conf,
	}
}

// Register inserts or replaces the descriptor for the peer's session.
func (r *Registry) Register(p *Peer) {
	r.mu.Lock()
	r.peers[p.SessionID] = p
	r.mu.Unlock()

	r.mirrorOnline(p)
}

// UnregisterConn removes the session's descriptor only if it still belongs
// to the given connection. A stale disconnect after a replacement connection
// must not evict the live peer.
func (r *Registry) UnregisterConn(sessionID, connID string) bool {
	r.mu.Lock()
	p, ok := r.peers[sessionID]
	if !ok || p.ConnID != connID {
		r.mu.Unlock()
		return false
	}
	delete(r.peers, sessionID)
	r.mu.Unlock()

	r.mirrorOffline(sessionID)
	return true
}

func (r *Registry) Get(sessionID string) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[sessionID]
	return p, ok
}

// ListUserSessionIDs returns the session ids held by non-admin peers; this
// is the room list broadcast to admin UIs and the admin catch-up join set.
func (r *Registry) ListUserSessionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.peers))
	for sid, p := range r.peers {
		if p.Role != RoleAdmin {
			out = append(out, sid)
		}
	}
	return out
}

// Snapshot returns all current descriptors.
func (r *Registry) Snapshot() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Clients returns every connected client, for broadcast-to-all events.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.peers))
	for _, p := range r.peers {
		if p.Client != nil {
			out = append(out, p.Client)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *Registry) mirrorOnline(p *Peer) {
	if r.conf.Mirror == nil {
		return
	}
	key := onlineKeyPrefix + p.SessionID
	val := string(p.Role) + "|" + p.UserName
	ttl := r.conf.OnlineTTL
	safe.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.conf.Mirror.Set(ctx, key, val, ttl).Err(); err != nil {
			logger.Debug("presence mirror set failed: " + err.Error())
		}
	})
}

func (r *Registry) mirrorOffline(sessionID string) {
	if r.conf.Mirror == nil {
		return
	}
	key := onlineKeyPrefix + sessionID
	safe.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.conf.Mirror.Del(ctx, key).Err(); err != nil {
			logger.Debug("presence mirror del failed: " + err.Error())
		}
	})
}
