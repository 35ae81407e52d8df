// Package model defines the persistent records shared by the gateway
// implementations and the chat service. Timestamps are unix milliseconds.
package model

type User struct {
	ID           string `bson:"_id" json:"id"`
	Username     string `bson:"username" json:"username"`
	DisplayName  string `bson:"display_name" json:"display_name"`
	PasswordHash string `bson:"password_hash" json:"-"`
	CreatedAt    int64  `bson:"created_at" json:"created_at"`
}

type ChannelMessage struct {
	ID        string `bson:"_id" json:"id"`
	ChannelID string `bson:"channel_id" json:"channel_id"`
	SenderID  string `bson:"sender_id" json:"sender_id"`
	Content   string `bson:"content" json:"content"`
	Ts        int64  `bson:"ts" json:"timestamp"`
}

func (m ChannelMessage) Timestamp() int64 { return m.Ts }

type DirectMessage struct {
	ID          string `bson:"_id" json:"id"`
	SenderID    string `bson:"sender_id" json:"sender_id"`
	RecipientID string `bson:"recipient_id" json:"recipient_id"`
	Content     string `bson:"content" json:"content"`
	Ts          int64  `bson:"ts" json:"timestamp"`
}

func (m DirectMessage) Timestamp() int64 { return m.Ts }

// Notification kinds.
const (
	NotifyMention = "mention"
	NotifyInvite  = "invite"
	NotifyReply   = "reply"
	NotifyDirect  = "direct_message"
)

type Notification struct {
	ID     string `bson:"_id" json:"id"`
	UserID string `bson:"user_id" json:"user_id"`
	Kind   string `bson:"kind" json:"kind"`
	Text   string `bson:"text" json:"text"`
	FromID string `bson:"from_id,omitempty" json:"from_id,omitempty"`
	Read   bool   `bson:"read" json:"read"`
	Ts     int64  `bson:"ts" json:"timestamp"`
}

func (n Notification) Timestamp() int64 { return n.Ts }
