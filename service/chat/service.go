package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/y4my4my4m/nexus-server-sub000/logger"
	"github.com/y4my4my4m/nexus-server-sub000/model"
	"github.com/y4my4my4m/nexus-server-sub000/protocol"
	"github.com/y4my4my4m/nexus-server-sub000/service/moderation"
	"github.com/y4my4my4m/nexus-server-sub000/service/pagination"
	"github.com/y4my4my4m/nexus-server-sub000/service/storage"
	"github.com/y4my4my4m/nexus-server-sub000/tools/errs"
	"github.com/y4my4my4m/nexus-server-sub000/tools/ids"
	"github.com/y4my4my4m/nexus-server-sub000/tools/security"
)

// Service implements the domain operations the router dispatches to.
// Persistence and moderation stay behind their gateways; this layer owns
// the ordering between "store" and "fan out" (sequential, not
// transactional: a stored message whose broadcast never went out is still
// reachable through pagination).
type Service struct {
	gw     storage.PersistenceGateway
	mod    moderation.Gateway
	reg    *Registry
	fan    *Fanout
	tokens security.Options
	limits pagination.Limits
}

func NewService(gw storage.PersistenceGateway, mod moderation.Gateway, reg *Registry, fan *Fanout, tokens security.Options, limits pagination.Limits) *Service {
	if mod == nil {
		mod = moderation.Permissive{}
	}
	return &Service{gw: gw, mod: mod, reg: reg, fan: fan, tokens: tokens, limits: limits}
}

// ---- auth ----

func (s *Service) Register(ctx context.Context, connID, username, password string) (*protocol.AuthSuccess, error) {
	u, err := s.gw.RegisterUser(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.establishSession(ctx, connID, u)
}

func (s *Service) Login(ctx context.Context, connID, username, password string) (*protocol.AuthSuccess, error) {
	u, err := s.gw.LoginUser(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.establishSession(ctx, connID, u)
}

func (s *Service) establishSession(ctx context.Context, connID string, u model.User) (*protocol.AuthSuccess, error) {
	token, expireAt, err := security.Generate(s.tokens, u.ID)
	if err != nil {
		return nil, errs.ErrInternal.Wrap(err)
	}
	wasOnline := s.reg.IsOnline(u.ID)
	s.reg.SetUser(connID, u.ID)

	// Presence join is scoped to users sharing a channel or DM history,
	// and only fires for the first session of a user.
	if !wasOnline {
		if related, err := s.gw.RelatedUserIDs(ctx, u.ID); err != nil {
			logger.Warn("presence audience lookup failed", zap.String("user", u.ID), zap.Error(err))
		} else {
			s.fan.BroadcastUsers(related, &protocol.UserJoined{UserID: u.ID, Username: u.Username})
		}
	}
	return &protocol.AuthSuccess{User: u, Token: token, ExpiresAt: expireAt.UnixMilli()}, nil
}

// Logout clears the session; the connection stays open.
func (s *Service) Logout(ctx context.Context, connID string) {
	p := s.reg.Get(connID)
	if p == nil {
		return
	}
	userID := p.UserID()
	s.reg.ClearUser(connID)
	if userID != "" && !s.reg.IsOnline(userID) {
		s.announceDeparture(ctx, userID)
	}
}

// Disconnected runs the teardown half of the actor lifecycle: the
// registry entry is already gone; announce departure for the last bound
// user if that was their only session.
func (s *Service) Disconnected(ctx context.Context, lastUserID string) {
	if lastUserID == "" || s.reg.IsOnline(lastUserID) {
		return
	}
	s.announceDeparture(ctx, lastUserID)
}

func (s *Service) announceDeparture(ctx context.Context, userID string) {
	related, err := s.gw.RelatedUserIDs(ctx, userID)
	if err != nil {
		logger.Warn("presence audience lookup failed", zap.String("user", userID), zap.Error(err))
		return
	}
	s.fan.BroadcastUsers(related, &protocol.UserLeft{UserID: userID})
}

// ---- messaging ----

func (s *Service) moderate(ctx context.Context, userID, content string) error {
	if content == "" {
		return errs.ErrValidation.WithDetail("empty message")
	}
	ok, err := s.mod.CheckMessageRate(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrForbidden.WithDetail("rate limit exceeded")
	}
	res, err := s.mod.FilterContent(ctx, content)
	if err != nil {
		return err
	}
	switch res.Verdict {
	case moderation.VerdictBlocked:
		return errs.ErrForbidden.WithDetail(res.Reason)
	case moderation.VerdictFlagged:
		logger.Warn("message flagged", zap.String("user", userID), zap.String("reason", res.Reason))
	}
	return nil
}

// SendChannelMessage stores and fans out; the sender observes the effect
// through the broadcast like every other member.
func (s *Service) SendChannelMessage(ctx context.Context, userID, channelID, content string) error {
	members, err := s.gw.ChannelMemberIDs(ctx, channelID)
	if err != nil {
		return err
	}
	if !contains(members, userID) {
		return errs.ErrForbidden.WithDetail("not a channel member")
	}
	if err := s.moderate(ctx, userID, content); err != nil {
		return err
	}
	msg := model.ChannelMessage{
		ID:        ids.GenerateString(),
		ChannelID: channelID,
		SenderID:  userID,
		Content:   content,
		Ts:        time.Now().UnixMilli(),
	}
	if err := s.gw.StoreChannelMessage(ctx, msg); err != nil {
		return err
	}
	s.fan.BroadcastChannel(members, &protocol.NewChannelMessage{Message: msg})
	return nil
}

// SendDirectMessage stores, pushes to the recipient's live sessions, and
// falls back to a persisted notification when none are connected. The
// returned event is echoed to the requester.
func (s *Service) SendDirectMessage(ctx context.Context, fromID, toID, content string) (*protocol.DirectMessageEvent, error) {
	if toID == "" || toID == fromID {
		return nil, errs.ErrValidation.WithDetail("invalid recipient")
	}
	if _, err := s.gw.GetUser(ctx, toID); err != nil {
		return nil, err
	}
	if err := s.moderate(ctx, fromID, content); err != nil {
		return nil, err
	}
	msg := model.DirectMessage{
		ID:          ids.GenerateString(),
		SenderID:    fromID,
		RecipientID: toID,
		Content:     content,
		Ts:          time.Now().UnixMilli(),
	}
	if err := s.gw.StoreDirectMessage(ctx, msg); err != nil {
		return nil, err
	}
	event := &protocol.DirectMessageEvent{Message: msg}
	if !s.fan.SendToUser(toID, event) {
		sender, err := s.gw.GetUser(ctx, fromID)
		text := "new direct message"
		if err == nil {
			text = fmt.Sprintf("new direct message from %s", sender.Username)
		}
		n := model.Notification{
			ID:     ids.GenerateString(),
			UserID: toID,
			Kind:   model.NotifyDirect,
			Text:   text,
			FromID: fromID,
			Ts:     msg.Ts,
		}
		if err := s.gw.InsertNotification(ctx, n); err != nil {
			logger.Error("persist offline notification", zap.String("user", toID), zap.Error(err))
		}
	}
	return event, nil
}

// ---- history ----

func (s *Service) ChannelMessages(ctx context.Context, userID string, req *protocol.GetChannelMessages) (*protocol.ChannelMessagesPage, error) {
	members, err := s.gw.ChannelMemberIDs(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if !contains(members, userID) {
		return nil, errs.ErrForbidden.WithDetail("not a channel member")
	}
	page, err := pagination.Paginate(ctx, s.pageRequest(req.Cursor, req.Limit, req.Direction), s.limits,
		func(ctx context.Context, q pagination.Query) ([]model.ChannelMessage, error) {
			return s.gw.FetchChannelMessages(ctx, req.ChannelID, q)
		})
	if err != nil {
		return nil, err
	}
	if total, err := s.gw.CountChannelMessages(ctx, req.ChannelID); err == nil {
		page.TotalCount = &total
	}
	return &protocol.ChannelMessagesPage{ChannelID: req.ChannelID, Page: page}, nil
}

func (s *Service) DirectMessages(ctx context.Context, userID string, req *protocol.GetDirectMessages) (*protocol.DirectMessagesPage, error) {
	page, err := pagination.Paginate(ctx, s.pageRequest(req.Cursor, req.Limit, req.Direction), s.limits,
		func(ctx context.Context, q pagination.Query) ([]model.DirectMessage, error) {
			return s.gw.FetchDirectMessages(ctx, userID, req.UserID, q)
		})
	if err != nil {
		return nil, err
	}
	if total, err := s.gw.CountDirectMessages(ctx, userID, req.UserID); err == nil {
		page.TotalCount = &total
	}
	return &protocol.DirectMessagesPage{UserID: req.UserID, Page: page}, nil
}

// Notifications pages backward from `before` (most recent first in terms
// of traversal; the returned slice is chronological like every page).
func (s *Service) Notifications(ctx context.Context, userID string, before *int64, limit int) (*protocol.NotificationsPage, error) {
	cursor := pagination.Start()
	if before != nil {
		cursor = pagination.Timestamp(*before)
	}
	page, err := pagination.Paginate(ctx, s.pageRequest(cursor, limit, pagination.Backward), s.limits,
		func(ctx context.Context, q pagination.Query) ([]model.Notification, error) {
			return s.gw.FetchNotifications(ctx, userID, q)
		})
	if err != nil {
		return nil, err
	}
	if total, err := s.gw.CountNotifications(ctx, userID); err == nil {
		page.TotalCount = &total
	}
	return &protocol.NotificationsPage{Page: page}, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	return s.gw.MarkNotificationRead(ctx, userID, notificationID)
}

// ---- profile ----

func (s *Service) UpdateProfile(ctx context.Context, userID, displayName string) (*protocol.UserUpdated, error) {
	u, err := s.gw.UpdateUser(ctx, userID, displayName)
	if err != nil {
		return nil, err
	}
	event := &protocol.UserUpdated{User: u}
	if related, err := s.gw.RelatedUserIDs(ctx, userID); err != nil {
		logger.Warn("presence audience lookup failed", zap.String("user", userID), zap.Error(err))
	} else {
		s.fan.BroadcastUsers(related, event)
	}
	return event, nil
}

func (s *Service) pageRequest(cursor pagination.Cursor, limit int, dir pagination.Direction) pagination.Request {
	if limit <= 0 {
		limit = s.limits.Default
	}
	if dir == "" {
		dir = pagination.Backward
	}
	return pagination.Request{Cursor: cursor, Limit: limit, Direction: dir}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
