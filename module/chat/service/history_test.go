package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	midsec "SupportChat/middleware/security"
	"SupportChat/module/chat/model"
	sec "SupportChat/tools/security"

	"github.com/gin-gonic/gin"
)

type fakeSessionReader struct {
	sessions []model.ChatSession
	gotNow   time.Time
}

func (f *fakeSessionReader) ListAdminVisible(_ context.Context, now time.Time) ([]model.ChatSession, error) {
	f.gotNow = now
	return f.sessions, nil
}

type fakeHistoryReader struct {
	bySession map[string][]model.Message
	gotLimit  int64
}

func (f *fakeHistoryReader) ListBySession(_ context.Context, sessionID string, limit int64) ([]model.Message, error) {
	f.gotLimit = limit
	return f.bySession[sessionID], nil
}

func newTestRouter(h *HistoryAPI, jwtOpts sec.Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/admin/sessions", h.AdminSessions)
	r.GET("/api/messages/current", midsec.Middleware(midsec.Options{JWT: jwtOpts}), h.CurrentMessages)
	r.GET("/api/messages/:sessionId", h.SessionMessages)
	return r
}

func TestAdminSessionsEndpoint(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	sessions := &fakeSessionReader{sessions: []model.ChatSession{
		{SessionID: "s2", UserName: "B"},
		{SessionID: "s1", UserName: "A"},
	}}
	h := NewHistoryAPI(sessions, &fakeHistoryReader{})
	h.Clock = func() time.Time { return now }

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/sessions", nil)
	newTestRouter(h, sec.DefaultOptions([]byte("s"))).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !sessions.gotNow.Equal(now) {
		t.Fatalf("query used %v, want %v", sessions.gotNow, now)
	}
	var got []model.ChatSession
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].SessionID != "s2" {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestSessionMessagesEndpoint(t *testing.T) {
	history := &fakeHistoryReader{bySession: map[string][]model.Message{
		"s1": {{Text: "hi", SessionID: "s1"}},
	}}
	h := NewHistoryAPI(&fakeSessionReader{}, history)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/messages/s1", nil)
	newTestRouter(h, sec.DefaultOptions([]byte("s"))).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got []model.Message
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "hi" {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestUnknownSessionReturnsEmptyList(t *testing.T) {
	h := NewHistoryAPI(&fakeSessionReader{}, &fakeHistoryReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/messages/ghost", nil)
	newTestRouter(h, sec.DefaultOptions([]byte("s"))).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with empty list", w.Code)
	}
	if body := w.Body.String(); body != "[]" {
		t.Fatalf("body = %q, want []", body)
	}
}

func TestCurrentMessagesRequiresCredential(t *testing.T) {
	jwtOpts := sec.DefaultOptions([]byte("secret"))
	history := &fakeHistoryReader{bySession: map[string][]model.Message{
		"u-7": {{Text: "mine", SessionID: "u-7"}},
	}}
	h := NewHistoryAPI(&fakeSessionReader{}, history)
	r := newTestRouter(h, jwtOpts)

	// no credential
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/messages/current", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}

	// session id comes from the verified credential, not the path
	token, _, err := sec.Generate(jwtOpts, "u-7", "Me", "user")
	if err != nil {
		t.Fatal(err)
	}
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/messages/current", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status with token = %d", w.Code)
	}
	var got []model.Message
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "mine" {
		t.Fatalf("unexpected body: %v", got)
	}
}
