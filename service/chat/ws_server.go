package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/y4my4my4m/nexus-server-sub000/logger"
	"github.com/y4my4my4m/nexus-server-sub000/protocol"
	"github.com/y4my4my4m/nexus-server-sub000/tools/ids"
)

// WebSocket gateway: an alternative transport for the same protocol.
// Each binary WS message carries exactly one envelope payload; the WS
// frame replaces the length prefix. Peers from both transports share one
// registry, so fan-out crosses transports transparently.

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteDeadline = 5 * time.Second

// ServeWS runs the WebSocket gateway on addr. Blocking, like Serve.
func (s *Server) ServeWS(ctx context.Context, addr string) error {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", s.handleWS(ctx))
	logger.Info("ws gateway listening", zap.String("addr", addr))
	return r.Run(addr)
}

func (s *Server) handleWS(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		connID := ids.GenerateString()
		peer := s.reg.Register(connID, s.cfg.SendQueueSize)
		logger.Debug("ws connection accepted", zap.String("conn", connID))

		go s.wsWritePump(connID, ws, peer)
		s.wsReadPump(ctx, connID, ws)

		peer.Close()
		_ = ws.Close()
		lastUserID := s.reg.Remove(connID)
		s.svc.Disconnected(ctx, lastUserID)
	}
}

func (s *Server) wsReadPump(ctx context.Context, connID string, ws *websocket.Conn) {
	ws.SetReadLimit(protocol.MaxFrameSize)
	for {
		mt, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
			continue
		}
		msg, err := protocol.DecodeClient(payload)
		if err != nil {
			logger.Warn("undecodable ws message", zap.String("conn", connID), zap.Error(err))
			continue
		}
		s.router.Route(ctx, connID, msg)
	}
}

func (s *Server) wsWritePump(connID string, ws *websocket.Conn, peer *Peer) {
	for {
		select {
		case payload := <-peer.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := ws.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				logger.Debug("ws write failed", zap.String("conn", connID), zap.Error(err))
				peer.Close()
				_ = ws.Close()
				return
			}
		case <-peer.Closing():
			_ = ws.Close()
			return
		}
	}
}
