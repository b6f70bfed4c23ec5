package chat

import (
	"encoding/json"
	"fmt"

	"SupportChat/module/chat/model"
	"SupportChat/tools/decode"
)

// Wire protocol: JSON text frames {"event": "...", "data": {...}} in both
// directions, event names mirroring the legacy socket.io surface.
const (
	EvMessage        = "message"
	EvAdminJoinRoom  = "adminJoinRoom"
	EvAdminMessage   = "adminMessage"
	EvNewUserMessage = "newUserMessage"
	EvAdminJoined    = "adminJoined"
	EvRoomList       = "roomList"
	EvActiveSessions = "activeSessionsList"
)

// Frame is an inbound client frame; Data stays loosely typed until the
// handler decodes it into its payload struct.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame has no event")
	}
	return f, nil
}

// ---- inbound payloads ----

type MessagePayload struct {
	Text string `json:"text"`
}

type AdminJoinPayload struct {
	Room string `json:"room"`
}

type AdminMessagePayload struct {
	Room     string `json:"room"`
	Text     string `json:"text"`
	UserName string `json:"userName"`
}

func DecodePayload[T any](data map[string]any) (*T, error) {
	return decode.DecodeMap[T](data)
}

// ---- outbound events ----

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// MessageEvent is the full message record plus the legacy name/room aliases
// older clients still read.
type MessageEvent struct {
	model.Message
	Name string `json:"name"`
	Room string `json:"room"`
}

type NewUserMessageEvent struct {
	SessionID string `json:"sessionId"`
	UserName  string `json:"userName"`
	UserType  string `json:"userType"`
	Preview   string `json:"preview"`
}

type AdminJoinedEvent struct {
	AdminName string `json:"adminName"`
	Room      string `json:"room"`
}

type RoomListEvent struct {
	Rooms []string `json:"rooms"`
}

type ActiveSessionsEvent struct {
	Sessions []string `json:"sessions"`
}

// EncodeEvent marshals a server-to-client frame. Payloads are plain structs,
// so a marshal failure is a programming error; callers get nil and log it.
func EncodeEvent(event string, data any) []byte {
	b, err := json.Marshal(outFrame{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return b
}
