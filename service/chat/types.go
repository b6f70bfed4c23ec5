package chat

import (
	sec "SupportChat/tools/security"
)

// Role is fixed at connection time from the verified credential and never
// changes for the life of the connection.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// RoleOf maps credential roles onto the relay's two-sided model:
// admin/superadmin act as admins, everyone else is a user.
func RoleOf(id *sec.Identity) Role {
	if id.IsAdmin() {
		return RoleAdmin
	}
	return RoleUser
}

// Peer describes one connected participant. Held only in memory by the
// registry; created on connect, dropped on disconnect.
type Peer struct {
	ConnID    string
	SessionID string // room key; equals the user's stable identity id
	UserID    string
	UserName  string
	Role      Role
	Client    *Client
}
