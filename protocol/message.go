package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/y4my4my4m/nexus-server-sub000/model"
	"github.com/y4my4my4m/nexus-server-sub000/service/pagination"
)

// Envelopes are closed sets: a type tag plus a typed payload. There are no
// correlation ids; responses correlate through payload fields (channel id,
// sender, timestamps) only.

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ---- client -> server ----

const (
	TypeRegister             = "register"
	TypeLogin                = "login"
	TypeLogout               = "logout"
	TypeSendChannelMessage   = "send_channel_message"
	TypeSendDirectMessage    = "send_direct_message"
	TypeGetChannelMessages   = "get_channel_messages"
	TypeGetDirectMessages    = "get_direct_messages"
	TypeGetNotifications     = "get_notifications"
	TypeMarkNotificationRead = "mark_notification_read"
	TypeUpdateProfile        = "update_profile"
)

type ClientMessage interface{ clientTag() string }

type Register struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Logout struct{}

type SendChannelMessage struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

type SendDirectMessage struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

type GetChannelMessages struct {
	ChannelID string               `json:"channel_id"`
	Cursor    pagination.Cursor    `json:"cursor"`
	Limit     int                  `json:"limit,omitempty"`
	Direction pagination.Direction `json:"direction,omitempty"`
}

type GetDirectMessages struct {
	UserID    string               `json:"user_id"`
	Cursor    pagination.Cursor    `json:"cursor"`
	Limit     int                  `json:"limit,omitempty"`
	Direction pagination.Direction `json:"direction,omitempty"`
}

type GetNotifications struct {
	Before *int64 `json:"before,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type MarkNotificationRead struct {
	NotificationID string `json:"notification_id"`
}

type UpdateProfile struct {
	DisplayName string `json:"display_name"`
}

func (*Register) clientTag() string             { return TypeRegister }
func (*Login) clientTag() string                { return TypeLogin }
func (*Logout) clientTag() string               { return TypeLogout }
func (*SendChannelMessage) clientTag() string   { return TypeSendChannelMessage }
func (*SendDirectMessage) clientTag() string    { return TypeSendDirectMessage }
func (*GetChannelMessages) clientTag() string   { return TypeGetChannelMessages }
func (*GetDirectMessages) clientTag() string    { return TypeGetDirectMessages }
func (*GetNotifications) clientTag() string     { return TypeGetNotifications }
func (*MarkNotificationRead) clientTag() string { return TypeMarkNotificationRead }
func (*UpdateProfile) clientTag() string        { return TypeUpdateProfile }

// EncodeClient serializes a request envelope (used by clients and tests).
func EncodeClient(m ClientMessage) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal client payload")
	}
	return json.Marshal(envelope{Type: m.clientTag(), Data: data})
}

// DecodeClient parses one inbound payload. An unknown tag or a payload
// that does not fit its tag is an error; the caller logs it and keeps the
// connection open.
func DecodeClient(payload []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope")
	}
	var m ClientMessage
	switch env.Type {
	case TypeRegister:
		m = &Register{}
	case TypeLogin:
		m = &Login{}
	case TypeLogout:
		m = &Logout{}
	case TypeSendChannelMessage:
		m = &SendChannelMessage{}
	case TypeSendDirectMessage:
		m = &SendDirectMessage{}
	case TypeGetChannelMessages:
		m = &GetChannelMessages{}
	case TypeGetDirectMessages:
		m = &GetDirectMessages{}
	case TypeGetNotifications:
		m = &GetNotifications{}
	case TypeMarkNotificationRead:
		m = &MarkNotificationRead{}
	case TypeUpdateProfile:
		m = &UpdateProfile{}
	default:
		return nil, errors.Errorf("unknown client message type %q", env.Type)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, m); err != nil {
			return nil, errors.Wrapf(err, "unmarshal %s payload", env.Type)
		}
	}
	return m, nil
}

// ---- server -> client ----

const (
	TypeAuthSuccess       = "auth_success"
	TypeAuthFailure       = "auth_failure"
	TypeNewChannelMessage = "new_channel_message"
	TypeDirectMessage     = "direct_message"
	TypeChannelMessages   = "channel_messages"
	TypeDirectMessages    = "direct_messages"
	TypeNotifications     = "notifications"
	TypeUserJoined        = "user_joined"
	TypeUserLeft          = "user_left"
	TypeUserUpdated       = "user_updated"
	TypeNotification      = "notification"
)

type ServerMessage interface{ serverTag() string }

type AuthSuccess struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt int64      `json:"expires_at"`
}

type AuthFailure struct {
	Reason string `json:"reason"`
}

type NewChannelMessage struct {
	Message model.ChannelMessage `json:"message"`
}

type DirectMessageEvent struct {
	Message model.DirectMessage `json:"message"`
}

type ChannelMessagesPage struct {
	ChannelID string `json:"channel_id"`
	pagination.Page[model.ChannelMessage]
}

type DirectMessagesPage struct {
	UserID string `json:"user_id"`
	pagination.Page[model.DirectMessage]
}

type NotificationsPage struct {
	pagination.Page[model.Notification]
}

type UserJoined struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type UserLeft struct {
	UserID string `json:"user_id"`
}

type UserUpdated struct {
	User model.User `json:"user"`
}

type Notification struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

func (*AuthSuccess) serverTag() string         { return TypeAuthSuccess }
func (*AuthFailure) serverTag() string         { return TypeAuthFailure }
func (*NewChannelMessage) serverTag() string   { return TypeNewChannelMessage }
func (*DirectMessageEvent) serverTag() string  { return TypeDirectMessage }
func (*ChannelMessagesPage) serverTag() string { return TypeChannelMessages }
func (*DirectMessagesPage) serverTag() string  { return TypeDirectMessages }
func (*NotificationsPage) serverTag() string   { return TypeNotifications }
func (*UserJoined) serverTag() string          { return TypeUserJoined }
func (*UserLeft) serverTag() string            { return TypeUserLeft }
func (*UserUpdated) serverTag() string         { return TypeUserUpdated }
func (*Notification) serverTag() string        { return TypeNotification }

// EncodeServer serializes a response envelope.
func EncodeServer(m ServerMessage) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal server payload")
	}
	return json.Marshal(envelope{Type: m.serverTag(), Data: data})
}

// DecodeServer parses one outbound payload (client side and tests).
func DecodeServer(payload []byte) (ServerMessage, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope")
	}
	var m ServerMessage
	switch env.Type {
	case TypeAuthSuccess:
		m = &AuthSuccess{}
	case TypeAuthFailure:
		m = &AuthFailure{}
	case TypeNewChannelMessage:
		m = &NewChannelMessage{}
	case TypeDirectMessage:
		m = &DirectMessageEvent{}
	case TypeChannelMessages:
		m = &ChannelMessagesPage{}
	case TypeDirectMessages:
		m = &DirectMessagesPage{}
	case TypeNotifications:
		m = &NotificationsPage{}
	case TypeUserJoined:
		m = &UserJoined{}
	case TypeUserLeft:
		m = &UserLeft{}
	case TypeUserUpdated:
		m = &UserUpdated{}
	case TypeNotification:
		m = &Notification{}
	default:
		return nil, errors.Errorf("unknown server message type %q", env.Type)
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, m); err != nil {
			return nil, errors.Wrapf(err, "unmarshal %s payload", env.Type)
		}
	}
	return m, nil
}
