package service

import (
	"context"
	"net/http"
	"time"

	"SupportChat/logger"
	midsec "SupportChat/middleware/security"
	"SupportChat/module/chat/model"
	"SupportChat/tools/errs"

	"github.com/gin-gonic/gin"
)

// SessionReader is the admin-facing view over session records.
type SessionReader interface {
	ListAdminVisible(ctx context.Context, now time.Time) ([]model.ChatSession, error)
}

// HistoryReader serves message history lookups.
type HistoryReader interface {
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]model.Message, error)
}

// HistoryAPI exposes the read-only HTTP surface for admin and history
// tooling. All writes flow through the websocket path.
type HistoryAPI struct {
	Sessions SessionReader
	Messages HistoryReader
	Clock    func() time.Time
}

func NewHistoryAPI(sessions SessionReader, messages HistoryReader) *HistoryAPI {
	return &HistoryAPI{Sessions: sessions, Messages: messages, Clock: time.Now}
}

// AdminSessions handles GET /api/admin/sessions: non-admin sessions still
// inside their visibility window, most recent activity first.
func (h *HistoryAPI) AdminSessions(c *gin.Context) {
	sessions, err := h.Sessions.ListAdminVisible(c.Request.Context(), h.Clock())
	if err != nil {
		logger.Errorf("admin sessions query failed: %v", err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// CurrentMessages handles GET /api/messages/current: the caller's own
// history, session id taken from the verified credential, never from input.
func (h *HistoryAPI) CurrentMessages(c *gin.Context) {
	id, ok := midsec.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrTokenMissing)
		return
	}
	h.listMessages(c, id.ID)
}

// SessionMessages handles GET /api/messages/:sessionId. There is no caller
// binding beyond network-level controls; the endpoint serves trusted admin
// tooling.
func (h *HistoryAPI) SessionMessages(c *gin.Context) {
	h.listMessages(c, c.Param("sessionId"))
}

func (h *HistoryAPI) listMessages(c *gin.Context, sessionID string) {
	msgs, err := h.Messages.ListBySession(c.Request.Context(), sessionID, 0)
	if err != nil {
		logger.Errorf("history query failed session=%s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}
