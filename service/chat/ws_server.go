package chat

import (
	"net"
	"net/http"
	"strings"

	"SupportChat/logger"
	"SupportChat/tools/ids"
	sec "SupportChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSGateway authenticates the handshake, upgrades, and runs the read loop.
// Auth happens once per connection; a rejected credential never reaches the
// router.
type WSGateway struct {
	server  *Server
	jwtOpts sec.Options
}

func NewWSGateway(server *Server, jwtOpts sec.Options) *WSGateway {
	return &WSGateway{server: server, jwtOpts: jwtOpts}
}

// HandleWS is the gin handler for GET /ws. The credential rides in the
// `token` query parameter or the Authorization header.
func (g *WSGateway) HandleWS(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
	}
	identity, err := sec.Resolve(g.jwtOpts, token)
	if err != nil {
		logger.Infof("[WS] handshake refused: %v", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[WS] upgrade failed: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), ws)
	peer := &Peer{
		ConnID:    client.ConnID,
		SessionID: identity.ID,
		UserID:    identity.ID,
		UserName:  identity.Name,
		Role:      RoleOf(identity),
		Client:    client,
	}

	client.Start()
	g.server.OnConnect(peer)
	logger.Infof("[WS] connected session=%s role=%s conn=%s", peer.SessionID, peer.Role, peer.ConnID)

	g.readLoop(peer)

	client.Close()
	g.server.OnDisconnect(peer)
	logger.Infof("[WS] disconnected session=%s conn=%s", peer.SessionID, peer.ConnID)
}

func (g *WSGateway) readLoop(p *Peer) {
	ws := p.Client.WS
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn=%s", p.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout conn=%s err=%v", p.ConnID, err)
			} else {
				logger.Infof("[WS] read err conn=%s err=%v", p.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Debug("bad frame conn=" + p.ConnID + " sample=" + string(sample))
			continue
		}

		g.server.HandleFrame(p, frame)
	}
}
