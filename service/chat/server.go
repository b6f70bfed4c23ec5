package chat

import (
	"context"
	"strings"
	"time"

	"SupportChat/logger"
	"SupportChat/module/chat/model"
	"SupportChat/tools/safe"
)

const previewRunes = 50

type ServerConf struct {
	WelcomeText    string
	WelcomeSender  string
	WelcomeDelay   time.Duration
	PersistTimeout time.Duration
	Clock          func() time.Time
}

func (c *ServerConf) norm() {
	if c.WelcomeDelay <= 0 {
		c.WelcomeDelay = 100 * time.Millisecond
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 5 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.WelcomeSender == "" {
		c.WelcomeSender = "Support"
	}
}

// Server is the room router: it decides, for every inbound event, which
// peers receive what. Delivery and persistence are issued concurrently;
// a failed write never claws back a broadcast.
type Server struct {
	conf      ServerConf
	registry  *Registry
	rooms     *Rooms
	fanout    *Fanout
	lifecycle *SessionManager
	messages  MessageStore

	dispatch map[string]func(*Peer, map[string]any)
}

func NewServer(conf ServerConf, registry *Registry, rooms *Rooms, fanout *Fanout, lifecycle *SessionManager, messages MessageStore) *Server {
	conf.norm()
	s := &Server{
		conf:      conf,
		registry:  registry,
		rooms:     rooms,
		fanout:    fanout,
		lifecycle: lifecycle,
		messages:  messages,
	}
	s.dispatch = map[string]func(*Peer, map[string]any){
		EvMessage:       s.handleMessage,
		EvAdminJoinRoom: s.handleAdminJoin,
		EvAdminMessage:  s.handleAdminMessage,
	}
	return s
}

func (s *Server) Registry() *Registry { return s.registry }
func (s *Server) Rooms() *Rooms       { return s.rooms }

// OnConnect completes onboarding for an authenticated peer: presence
// registration, room subscriptions, durable session refresh, the one-time
// welcome, and the presence broadcast.
func (s *Server) OnConnect(p *Peer) {
	s.registry.Register(p)
	s.rooms.Join(p.SessionID, p.Client)

	// catch-up join: admins observe every active conversation
	if p.Role == RoleAdmin {
		for _, sid := range s.registry.ListUserSessionIDs() {
			s.rooms.Join(sid, p.Client)
		}
	}

	safe.SafeGo(func() {
		ctx, cancel := s.persistCtx()
		defer cancel()
		if err := s.lifecycle.TouchOnConnect(ctx, p); err != nil {
			logger.Errorf("session upsert failed session=%s: %v", p.SessionID, err)
		}
	})

	s.scheduleWelcome(p)
	s.BroadcastRoomLists()
}

// OnDisconnect removes the peer; a stale socket that was already replaced
// by a newer connection for the same session leaves the registry untouched.
func (s *Server) OnDisconnect(p *Peer) {
	s.registry.UnregisterConn(p.SessionID, p.ConnID)
	s.rooms.LeaveAll(p.ConnID)
	s.BroadcastRoomLists()
}

// HandleFrame routes one inbound frame. Unknown events are ignored;
// per-event failures never terminate the connection.
func (s *Server) HandleFrame(p *Peer, f *Frame) {
	h, ok := s.dispatch[f.Event]
	if !ok {
		logger.Debug("no handler for event " + f.Event)
		return
	}
	h(p, f.Data)
}

// handleMessage: user (or admin on their own session) chat event. Fans the
// message out to the session room and notifies every connected peer that a
// new user message exists.
func (s *Server) handleMessage(p *Peer, data map[string]any) {
	payload, err := DecodePayload[MessagePayload](data)
	if err != nil {
		logger.Debug("drop message: " + err.Error())
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return
	}

	msgType := model.MessageTypeUser
	if p.Role == RoleAdmin {
		msgType = model.MessageTypeAdmin
	}
	now := s.conf.Clock()
	msg := model.Message{
		Text:      text,
		SessionID: p.SessionID,
		UserID:    p.UserID,
		UserName:  p.UserName,
		UserType:  string(p.Role),
		MsgType:   msgType,
		Time:      now.Format("15:04:05"),
		CreatedAt: now,
	}

	s.persistAsync(msg)

	s.fanout.Broadcast(s.rooms.Members(p.SessionID), EncodeEvent(EvMessage, MessageEvent{
		Message: msg,
		Name:    msg.UserName,
		Room:    p.SessionID,
	}))

	if msgType == model.MessageTypeUser {
		s.fanout.Broadcast(s.registry.Clients(), EncodeEvent(EvNewUserMessage, NewUserMessageEvent{
			SessionID: p.SessionID,
			UserName:  p.UserName,
			UserType:  string(p.Role),
			Preview:   preview(text),
		}))
	}
}

// handleAdminJoin subscribes the sender to the requested room and tells the
// existing members an admin arrived. The joiner gets no echo.
func (s *Server) handleAdminJoin(p *Peer, data map[string]any) {
	payload, err := DecodePayload[AdminJoinPayload](data)
	if err != nil || payload.Room == "" {
		return
	}
	s.rooms.Join(payload.Room, p.Client)

	name := p.UserName
	if name == "" {
		name = "Admin"
	}
	s.fanout.Broadcast(s.rooms.MembersExcept(payload.Room, p.ConnID),
		EncodeEvent(EvAdminJoined, AdminJoinedEvent{AdminName: name, Room: payload.Room}))
}

// handleAdminMessage delivers an admin-tagged message to any room by id,
// whether or not the sender joined it first.
func (s *Server) handleAdminMessage(p *Peer, data map[string]any) {
	payload, err := DecodePayload[AdminMessagePayload](data)
	if err != nil {
		return
	}
	text := strings.TrimSpace(payload.Text)
	if payload.Room == "" || text == "" {
		return
	}
	name := payload.UserName
	if name == "" {
		name = "Admin"
	}

	now := s.conf.Clock()
	msg := model.Message{
		Text:      text,
		SessionID: payload.Room,
		UserID:    "admin",
		UserName:  name,
		UserType:  string(RoleAdmin),
		MsgType:   model.MessageTypeAdmin,
		Time:      now.Format("15:04:05"),
		CreatedAt: now,
	}

	s.persistAsync(msg)

	s.fanout.Broadcast(s.rooms.Members(payload.Room), EncodeEvent(EvMessage, MessageEvent{
		Message: msg,
		Name:    msg.UserName,
		Room:    payload.Room,
	}))
}

// BroadcastRoomLists pushes the current non-admin session set to every
// connected peer, under both event names older and newer admin UIs expect.
func (s *Server) BroadcastRoomLists() {
	sessions := s.registry.ListUserSessionIDs()
	clients := s.registry.Clients()
	s.fanout.Broadcast(clients, EncodeEvent(EvRoomList, RoomListEvent{Rooms: sessions}))
	s.fanout.Broadcast(clients, EncodeEvent(EvActiveSessions, ActiveSessionsEvent{Sessions: sessions}))
}

// scheduleWelcome arms the delayed one-time welcome for fresh user sessions.
// If the client is gone when the timer fires, the send is a no-op.
func (s *Server) scheduleWelcome(p *Peer) {
	safe.SafeGo(func() {
		ctx, cancel := s.persistCtx()
		defer cancel()
		ok, err := s.lifecycle.ShouldWelcome(ctx, p)
		if err != nil {
			logger.Errorf("welcome check failed session=%s: %v", p.SessionID, err)
			return
		}
		if !ok {
			return
		}
		now := s.conf.Clock()
		welcome := model.Message{
			Text:      s.conf.WelcomeText,
			SessionID: p.SessionID,
			UserID:    "system",
			UserName:  s.conf.WelcomeSender,
			UserType:  string(RoleAdmin),
			MsgType:   model.MessageTypeSystem,
			Time:      now.Format("15:04:05"),
			CreatedAt: now,
		}
		payload := EncodeEvent(EvMessage, MessageEvent{
			Message: welcome,
			Name:    welcome.UserName,
			Room:    p.SessionID,
		})
		time.AfterFunc(s.conf.WelcomeDelay, func() {
			if p.Client.IsClosed() {
				return
			}
			p.Client.Enqueue(payload)
		})
	})
}

// persistAsync saves the message and extends the session window without
// blocking delivery. Failures are logged; the live chat carries on.
func (s *Server) persistAsync(msg model.Message) {
	safe.SafeGo(func() {
		ctx, cancel := s.persistCtx()
		defer cancel()
		if err := s.messages.Insert(ctx, &msg); err != nil {
			logger.Errorf("message save failed session=%s: %v", msg.SessionID, err)
			return
		}
		if err := s.lifecycle.TouchOnMessage(ctx, msg.SessionID); err != nil {
			logger.Errorf("session touch failed session=%s: %v", msg.SessionID, err)
		}
	})
}

func (s *Server) persistCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.conf.PersistTimeout)
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes])
}
