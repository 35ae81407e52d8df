package chat

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/y4my4my4m/nexus-server-sub000/global"
	"github.com/y4my4my4m/nexus-server-sub000/logger"
	"github.com/y4my4my4m/nexus-server-sub000/service/moderation"
	"github.com/y4my4my4m/nexus-server-sub000/service/pagination"
	"github.com/y4my4my4m/nexus-server-sub000/service/storage"
	"github.com/y4my4my4m/nexus-server-sub000/tools/ids"
	"github.com/y4my4my4m/nexus-server-sub000/tools/security"
)

// Server owns the TCP listener and the shared core: registry, fan-out,
// router, domain service. One connection actor is spawned per accepted
// socket.
type Server struct {
	cfg    global.Config
	reg    *Registry
	fan    *Fanout
	svc    *Service
	router *Router

	ln        net.Listener
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewServer(cfg global.Config, gw storage.PersistenceGateway, mod moderation.Gateway) *Server {
	reg := NewRegistry()
	fan := NewFanout(reg)
	limits := pagination.Limits{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize}
	svc := NewService(gw, mod, reg, fan, security.DefaultOptions([]byte(cfg.JWTSecret)), limits)
	router := NewRouter(reg, fan, svc)
	return &Server{cfg: cfg, reg: reg, fan: fan, svc: svc, router: router}
}

func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) Fanout() *Fanout     { return s.fan }

// Listen binds the configured address. A bind failure is the only fatal
// listener error; everything after this is per-connection.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return err
	}
	s.ln = ln
	logger.Info("listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr reports the bound address (useful with a ":0" bind in tests).
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until the listener closes or ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			logger.Warn("accept failed", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	connID := ids.GenerateString()
	peer := s.reg.Register(connID, s.cfg.SendQueueSize)
	logger.Debug("connection accepted",
		zap.String("conn", connID),
		zap.String("remote", conn.RemoteAddr().String()))
	newClient(connID, conn, peer, s.reg, s.router, s.svc).run(ctx)
}

func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.ln != nil {
			_ = s.ln.Close()
		}
	})
}
