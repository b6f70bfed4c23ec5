package chat

import (
	"encoding/json"
	"testing"
	"time"
)

type recvFrame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func newTestServer(sessions *fakeSessionStore, messages *fakeMessageStore) *Server {
	registry := NewRegistry(RegistryConf{})
	rooms := NewRooms()
	fanout := NewFanout(1, 64)
	lifecycle := NewSessionManager(SessionConf{}, sessions, messages)
	return NewServer(ServerConf{
		WelcomeText:   "welcome!",
		WelcomeSender: "Support",
		WelcomeDelay:  time.Millisecond,
	}, registry, rooms, fanout, lifecycle, messages)
}

// attach registers and room-joins a peer without the durable side effects
// of OnConnect, keeping routing assertions free of welcome/upsert noise.
func attach(s *Server, p *Peer) {
	s.registry.Register(p)
	s.rooms.Join(p.SessionID, p.Client)
}

func expectEvent(t *testing.T, c *Client, event string) recvFrame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-c.Send:
			var f recvFrame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("bad frame: %v", err)
			}
			if f.Event == event {
				return f
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", event)
		}
	}
}

func expectNoEvent(t *testing.T, c *Client, event string) {
	t.Helper()
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case raw := <-c.Send:
			var f recvFrame
			_ = json.Unmarshal(raw, &f)
			if f.Event == event {
				t.Fatalf("unexpected %q frame: %s", event, raw)
			}
		case <-timeout:
			return
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestUserMessageRoutedToRoomAndNoticed(t *testing.T) {
	sessions := &fakeSessionStore{}
	messages := &fakeMessageStore{count: 1}
	s := newTestServer(sessions, messages)

	user := newTestPeer("s1", "c-user", RoleUser)
	admin := newTestPeer("a1", "c-admin", RoleAdmin)
	other := newTestPeer("s2", "c-other", RoleUser)
	attach(s, user)
	attach(s, admin)
	attach(s, other)
	s.rooms.Join("s1", admin.Client) // admin watching the conversation

	s.HandleFrame(user, &Frame{Event: EvMessage, Data: map[string]any{"text": " hello "}})

	for _, c := range []*Client{user.Client, admin.Client} {
		f := expectEvent(t, c, EvMessage)
		if f.Data["text"] != "hello" {
			t.Fatalf("text = %v, want trimmed hello", f.Data["text"])
		}
		if f.Data["sessionId"] != "s1" || f.Data["room"] != "s1" {
			t.Fatalf("wrong routing fields: %v", f.Data)
		}
		if f.Data["messageType"] != "user" {
			t.Fatalf("messageType = %v, want user", f.Data["messageType"])
		}
	}

	// the unrelated user only learns a conversation exists
	f := expectEvent(t, other.Client, EvNewUserMessage)
	if f.Data["sessionId"] != "s1" || f.Data["preview"] != "hello" {
		t.Fatalf("bad notice: %v", f.Data)
	}
	expectNoEvent(t, other.Client, EvMessage)

	// persisted once, session window extended
	waitFor(t, func() bool { return messages.insertedCount() == 1 })
	waitFor(t, func() bool {
		sessions.mu.Lock()
		defer sessions.mu.Unlock()
		return len(sessions.touches) == 1
	})
}

func TestEmptyMessageDropped(t *testing.T) {
	messages := &fakeMessageStore{count: 1}
	s := newTestServer(&fakeSessionStore{}, messages)

	user := newTestPeer("s1", "c1", RoleUser)
	attach(s, user)

	s.HandleFrame(user, &Frame{Event: EvMessage, Data: map[string]any{"text": "   "}})

	expectNoEvent(t, user.Client, EvMessage)
	if messages.insertedCount() != 0 {
		t.Fatal("blank message must not persist")
	}
}

func TestAdminMessagePreviewNotBroadcast(t *testing.T) {
	messages := &fakeMessageStore{count: 1}
	s := newTestServer(&fakeSessionStore{}, messages)

	admin := newTestPeer("a1", "c-admin", RoleAdmin)
	attach(s, admin)

	s.HandleFrame(admin, &Frame{Event: EvMessage, Data: map[string]any{"text": "internal note"}})

	f := expectEvent(t, admin.Client, EvMessage)
	if f.Data["messageType"] != "admin" {
		t.Fatalf("messageType = %v, want admin", f.Data["messageType"])
	}
	expectNoEvent(t, admin.Client, EvNewUserMessage)
}

func TestAdminJoinRoomNotifiesMembersOnly(t *testing.T) {
	s := newTestServer(&fakeSessionStore{}, &fakeMessageStore{count: 1})

	user := newTestPeer("s1", "c-user", RoleUser)
	admin := newTestPeer("a1", "c-admin", RoleAdmin)
	attach(s, user)
	attach(s, admin)

	s.HandleFrame(admin, &Frame{Event: EvAdminJoinRoom, Data: map[string]any{"room": "s1"}})

	f := expectEvent(t, user.Client, EvAdminJoined)
	if f.Data["room"] != "s1" || f.Data["adminName"] != "u-a1" {
		t.Fatalf("bad adminJoined payload: %v", f.Data)
	}
	// the joiner gets no echo
	expectNoEvent(t, admin.Client, EvAdminJoined)

	if !s.rooms.InRoom("s1", "c-admin") {
		t.Fatal("admin not subscribed to the room")
	}
}

func TestAdminMessageTargetsRoomWithoutJoin(t *testing.T) {
	sessions := &fakeSessionStore{}
	messages := &fakeMessageStore{count: 1}
	s := newTestServer(sessions, messages)

	user := newTestPeer("s1", "c-user", RoleUser)
	admin := newTestPeer("a1", "c-admin", RoleAdmin)
	attach(s, user)
	attach(s, admin)

	s.HandleFrame(admin, &Frame{Event: EvAdminMessage, Data: map[string]any{"room": "s1", "text": "hi"}})

	f := expectEvent(t, user.Client, EvMessage)
	if f.Data["messageType"] != "admin" || f.Data["userName"] != "Admin" {
		t.Fatalf("bad admin message: %v", f.Data)
	}
	if f.Data["userId"] != "admin" {
		t.Fatalf("userId = %v, want admin", f.Data["userId"])
	}

	waitFor(t, func() bool { return messages.insertedCount() == 1 })
	messages.mu.Lock()
	saved := messages.inserted[0]
	messages.mu.Unlock()
	if saved.SessionID != "s1" || saved.MsgType != "admin" {
		t.Fatalf("bad persisted record: %+v", saved)
	}
}

func TestAdminMessageRequiresRoomAndText(t *testing.T) {
	messages := &fakeMessageStore{count: 1}
	s := newTestServer(&fakeSessionStore{}, messages)

	user := newTestPeer("s1", "c-user", RoleUser)
	admin := newTestPeer("a1", "c-admin", RoleAdmin)
	attach(s, user)
	attach(s, admin)

	s.HandleFrame(admin, &Frame{Event: EvAdminMessage, Data: map[string]any{"room": "", "text": "hi"}})
	s.HandleFrame(admin, &Frame{Event: EvAdminMessage, Data: map[string]any{"room": "s1", "text": "  "}})

	expectNoEvent(t, user.Client, EvMessage)
	if messages.insertedCount() != 0 {
		t.Fatal("invalid admin messages must not persist")
	}
}

func TestAdminMessageNameOverride(t *testing.T) {
	s := newTestServer(&fakeSessionStore{}, &fakeMessageStore{count: 1})

	user := newTestPeer("s1", "c-user", RoleUser)
	admin := newTestPeer("a1", "c-admin", RoleAdmin)
	attach(s, user)
	attach(s, admin)

	s.HandleFrame(admin, &Frame{Event: EvAdminMessage, Data: map[string]any{
		"room": "s1", "text": "hi", "userName": "Sara",
	}})

	f := expectEvent(t, user.Client, EvMessage)
	if f.Data["userName"] != "Sara" || f.Data["name"] != "Sara" {
		t.Fatalf("name override not applied: %v", f.Data)
	}
}

func TestOnConnectWelcomeForFreshUserSession(t *testing.T) {
	sessions := &fakeSessionStore{}
	messages := &fakeMessageStore{count: 0}
	s := newTestServer(sessions, messages)

	user := newTestPeer("s1", "c1", RoleUser)
	s.OnConnect(user)

	f := expectEvent(t, user.Client, EvMessage)
	if f.Data["messageType"] != "system" {
		t.Fatalf("messageType = %v, want system", f.Data["messageType"])
	}
	if f.Data["text"] != "welcome!" || f.Data["userName"] != "Support" {
		t.Fatalf("bad welcome payload: %v", f.Data)
	}

	// the welcome is emitted, never persisted
	if messages.insertedCount() != 0 {
		t.Fatal("welcome must not be written to the store")
	}
	waitFor(t, func() bool { return sessions.upsertCount() == 1 })
}

func TestOnConnectNoWelcomeWithHistoryOrForAdmins(t *testing.T) {
	s := newTestServer(&fakeSessionStore{}, &fakeMessageStore{count: 2})
	user := newTestPeer("s1", "c1", RoleUser)
	s.OnConnect(user)
	expectNoEvent(t, user.Client, EvMessage)

	s2 := newTestServer(&fakeSessionStore{}, &fakeMessageStore{count: 0})
	admin := newTestPeer("a1", "c2", RoleAdmin)
	s2.OnConnect(admin)
	expectNoEvent(t, admin.Client, EvMessage)
}

func TestAdminCatchUpJoinOnConnect(t *testing.T) {
	s := newTestServer(&fakeSessionStore{}, &fakeMessageStore{count: 1})

	u1 := newTestPeer("s1", "c1", RoleUser)
	u2 := newTestPeer("s2", "c2", RoleUser)
	attach(s, u1)
	attach(s, u2)

	admin := newTestPeer("a1", "c3", RoleAdmin)
	s.OnConnect(admin)

	if !s.rooms.InRoom("s1", "c3") || !s.rooms.InRoom("s2", "c3") {
		t.Fatal("admin missed catch-up join")
	}
	if !s.rooms.InRoom("a1", "c3") {
		t.Fatal("admin not in its own room")
	}
}

func TestPresenceBroadcastOnConnectAndDisconnect(t *testing.T) {
	s := newTestServer(&fakeSessionStore{}, &fakeMessageStore{count: 1})

	admin := newTestPeer("a1", "c-admin", RoleAdmin)
	attach(s, admin)

	user := newTestPeer("s1", "c1", RoleUser)
	s.OnConnect(user)

	f := expectEvent(t, admin.Client, EvRoomList)
	rooms, _ := f.Data["rooms"].([]any)
	if len(rooms) != 1 || rooms[0] != "s1" {
		t.Fatalf("roomList = %v, want [s1]", f.Data["rooms"])
	}
	expectEvent(t, admin.Client, EvActiveSessions)

	s.OnDisconnect(user)
	f = expectEvent(t, admin.Client, EvRoomList)
	if rooms, _ := f.Data["rooms"].([]any); len(rooms) != 0 {
		t.Fatalf("roomList after disconnect = %v, want empty", f.Data["rooms"])
	}
}

func TestPreviewCapsAtFiftyRunes(t *testing.T) {
	long := make([]rune, 0, 80)
	for i := 0; i < 80; i++ {
		long = append(long, 'ش')
	}
	got := preview(string(long))
	if len([]rune(got)) != 50 {
		t.Fatalf("preview length = %d runes, want 50", len([]rune(got)))
	}
	if preview("hi") != "hi" {
		t.Fatal("short text must pass through")
	}
}
