package chat

import (
	"sync"
)

// Rooms tracks which clients are subscribed to which session room. Room key
// is the session id. Membership is independent of the presence registry: an
// admin can join any room by id.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Client  // room -> connID -> client
	joined map[string]map[string]struct{} // connID -> set of rooms
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[string]*Client),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join subscribes the client to a room. Re-joining is a no-op.
func (r *Rooms) Join(room string, c *Client) {
	if room == "" || c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	if members == nil {
		members = make(map[string]*Client)
		r.rooms[room] = members
	}
	members[c.ConnID] = c

	set := r.joined[c.ConnID]
	if set == nil {
		set = make(map[string]struct{})
		r.joined[c.ConnID] = set
	}
	set[room] = struct{}{}
}

// LeaveAll drops the connection from every room it joined.
func (r *Rooms) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.joined[connID] {
		if members := r.rooms[room]; members != nil {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.joined, connID)
}

// Members returns the clients currently subscribed to the room.
func (r *Rooms) Members(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// MembersExcept returns room members excluding one connection.
func (r *Rooms) MembersExcept(room, connID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]*Client, 0, len(members))
	for id, c := range members {
		if id == connID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// InRoom reports whether the connection is subscribed to the room.
func (r *Rooms) InRoom(room, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.joined[connID][room]
	return ok
}
