package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/y4my4my4m/nexus-server-sub000/logger"
	"github.com/y4my4my4m/nexus-server-sub000/protocol"
	"github.com/y4my4my4m/nexus-server-sub000/tools/errs"
)

// Router maps decoded requests onto domain calls. Per request it checks
// the auth precondition, invokes exactly one service call, and replies to
// the requester only. Failures become error notifications; they are never
// fatal to the connection.
type Router struct {
	reg *Registry
	fan *Fanout
	svc *Service
}

func NewRouter(reg *Registry, fan *Fanout, svc *Service) *Router {
	return &Router{reg: reg, fan: fan, svc: svc}
}

func (r *Router) Route(ctx context.Context, connID string, msg protocol.ClientMessage) {
	peer := r.reg.Get(connID)
	if peer == nil {
		return
	}
	userID := peer.UserID()

	switch m := msg.(type) {
	case *protocol.Register:
		resp, err := r.svc.Register(ctx, connID, m.Username, m.Password)
		if err != nil {
			r.fan.SendToPeer(peer, &protocol.AuthFailure{Reason: errs.Message(err)})
			return
		}
		r.fan.SendToPeer(peer, resp)

	case *protocol.Login:
		resp, err := r.svc.Login(ctx, connID, m.Username, m.Password)
		if err != nil {
			r.fan.SendToPeer(peer, &protocol.AuthFailure{Reason: errs.Message(err)})
			return
		}
		r.fan.SendToPeer(peer, resp)

	case *protocol.Logout:
		if !r.requireAuth(peer, userID) {
			return
		}
		r.svc.Logout(ctx, connID)
		r.fan.SendToPeer(peer, &protocol.Notification{Text: "logged out"})

	case *protocol.SendChannelMessage:
		if !r.requireAuth(peer, userID) {
			return
		}
		// Fire and forget: the effect arrives via the channel broadcast.
		if err := r.svc.SendChannelMessage(ctx, userID, m.ChannelID, m.Content); err != nil {
			r.replyError(peer, err)
		}

	case *protocol.SendDirectMessage:
		if !r.requireAuth(peer, userID) {
			return
		}
		event, err := r.svc.SendDirectMessage(ctx, userID, m.To, m.Content)
		if err != nil {
			r.replyError(peer, err)
			return
		}
		r.fan.SendToPeer(peer, event)

	case *protocol.GetChannelMessages:
		if !r.requireAuth(peer, userID) {
			return
		}
		page, err := r.svc.ChannelMessages(ctx, userID, m)
		if err != nil {
			r.replyError(peer, err)
			return
		}
		r.fan.SendToPeer(peer, page)

	case *protocol.GetDirectMessages:
		if !r.requireAuth(peer, userID) {
			return
		}
		page, err := r.svc.DirectMessages(ctx, userID, m)
		if err != nil {
			r.replyError(peer, err)
			return
		}
		r.fan.SendToPeer(peer, page)

	case *protocol.GetNotifications:
		if !r.requireAuth(peer, userID) {
			return
		}
		page, err := r.svc.Notifications(ctx, userID, m.Before, m.Limit)
		if err != nil {
			r.replyError(peer, err)
			return
		}
		r.fan.SendToPeer(peer, page)

	case *protocol.MarkNotificationRead:
		if !r.requireAuth(peer, userID) {
			return
		}
		if err := r.svc.MarkNotificationRead(ctx, userID, m.NotificationID); err != nil {
			r.replyError(peer, err)
		}

	case *protocol.UpdateProfile:
		if !r.requireAuth(peer, userID) {
			return
		}
		event, err := r.svc.UpdateProfile(ctx, userID, m.DisplayName)
		if err != nil {
			r.replyError(peer, err)
			return
		}
		r.fan.SendToPeer(peer, event)

	default:
		logger.Warn("unroutable message", zap.String("conn", connID))
		r.fan.SendToPeer(peer, &protocol.Notification{Text: "unsupported request", IsError: true})
	}
}

func (r *Router) requireAuth(peer *Peer, userID string) bool {
	if userID != "" {
		return true
	}
	r.fan.SendToPeer(peer, &protocol.Notification{Text: "not authenticated", IsError: true})
	return false
}

func (r *Router) replyError(peer *Peer, err error) {
	logger.Debug("request failed", zap.String("conn", peer.ConnID()), zap.Error(err))
	r.fan.SendToPeer(peer, &protocol.Notification{Text: errs.Message(err), IsError: true})
}
