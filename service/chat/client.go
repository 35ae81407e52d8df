package chat

import (
	"context"
	"errors"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/y4my4my4m/nexus-server-sub000/logger"
	"github.com/y4my4my4m/nexus-server-sub000/protocol"
)

// Client is the connection actor: one per accepted socket. It owns both
// halves of the connection and is the only place the protocol state
// machine (unauthenticated / authenticated / terminated) lives. The read
// and write pumps run concurrently with no priority between inbound
// frames and outbound deliveries.
type Client struct {
	connID string
	conn   net.Conn
	peer   *Peer
	reg    *Registry
	router *Router
	svc    *Service
}

func newClient(connID string, conn net.Conn, peer *Peer, reg *Registry, router *Router, svc *Service) *Client {
	return &Client{connID: connID, conn: conn, peer: peer, reg: reg, router: router, svc: svc}
}

// run blocks until the connection terminates, then performs teardown:
// deregister, then announce presence departure for the last bound user.
func (c *Client) run(ctx context.Context) {
	go c.writePump()
	go func() {
		// Server shutdown must unblock the read pump.
		select {
		case <-ctx.Done():
			c.peer.Close()
		case <-c.peer.Closing():
		}
	}()
	c.readPump(ctx)

	c.peer.Close()
	_ = c.conn.Close()
	lastUserID := c.reg.Remove(c.connID)
	c.svc.Disconnected(ctx, lastUserID)
	logger.Debug("connection closed", zap.String("conn", c.connID), zap.String("user", lastUserID))
}

func (c *Client) readPump(ctx context.Context) {
	for {
		payload, err := protocol.ReadFrame(c.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("read failed", zap.String("conn", c.connID), zap.Error(err))
			}
			return
		}
		msg, err := protocol.DecodeClient(payload)
		if err != nil {
			// A well-framed but undecodable payload is non-fatal: log and
			// keep the connection.
			logger.Warn("undecodable frame", zap.String("conn", c.connID), zap.Error(err))
			continue
		}
		c.router.Route(ctx, c.connID, msg)
	}
}

// writePump is the single consumer of the peer's outbound queue; FIFO
// order per peer is preserved. A socket write error is fatal to this
// connection only.
func (c *Client) writePump() {
	for {
		select {
		case payload := <-c.peer.Outbound():
			if err := protocol.WriteFrame(c.conn, payload); err != nil {
				logger.Debug("write failed", zap.String("conn", c.connID), zap.Error(err))
				c.peer.Close()
				_ = c.conn.Close()
				return
			}
		case <-c.peer.Closing():
			_ = c.conn.Close()
			return
		}
	}
}
