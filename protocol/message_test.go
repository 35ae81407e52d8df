package protocol

import (
	"reflect"
	"testing"

	"github.com/y4my4my4m/nexus-server-sub000/model"
	"github.com/y4my4my4m/nexus-server-sub000/service/pagination"
)

func TestClientEnvelopeRoundTrip(t *testing.T) {
	cases := []ClientMessage{
		&Register{Username: "alice", Password: "s3cret"},
		&Login{Username: "bob", Password: "pw"},
		&Logout{},
		&SendChannelMessage{ChannelID: "general", Content: "hello"},
		&SendDirectMessage{To: "u2", Content: "hi"},
		&GetChannelMessages{
			ChannelID: "general",
			Cursor:    pagination.Timestamp(42),
			Limit:     10,
			Direction: pagination.Backward,
		},
		&GetNotifications{Limit: 5},
		&MarkNotificationRead{NotificationID: "n1"},
		&UpdateProfile{DisplayName: "Alice"},
	}
	for _, msg := range cases {
		wire, err := EncodeClient(msg)
		if err != nil {
			t.Fatalf("EncodeClient(%T): %v", msg, err)
		}
		got, err := DecodeClient(wire)
		if err != nil {
			t.Fatalf("DecodeClient(%T): %v", msg, err)
		}
		if !reflect.DeepEqual(got, msg) {
			t.Fatalf("round trip %T: got %+v want %+v", msg, got, msg)
		}
	}
}

func TestServerEnvelopeRoundTrip(t *testing.T) {
	total := int64(7)
	next := pagination.Timestamp(3)
	cases := []ServerMessage{
		&AuthSuccess{User: model.User{ID: "u1", Username: "alice"}, Token: "tok", ExpiresAt: 99},
		&AuthFailure{Reason: "wrong password"},
		&NewChannelMessage{Message: model.ChannelMessage{ID: "m1", ChannelID: "general", SenderID: "u1", Content: "hey", Ts: 5}},
		&DirectMessageEvent{Message: model.DirectMessage{ID: "d1", SenderID: "u1", RecipientID: "u2", Content: "yo", Ts: 6}},
		&ChannelMessagesPage{
			ChannelID: "general",
			Page: pagination.Page[model.ChannelMessage]{
				Items:      []model.ChannelMessage{{ID: "m1", Ts: 1}, {ID: "m2", Ts: 2}},
				HasMore:    true,
				NextCursor: &next,
				TotalCount: &total,
			},
		},
		&UserJoined{UserID: "u1", Username: "alice"},
		&UserLeft{UserID: "u1"},
		&UserUpdated{User: model.User{ID: "u1", DisplayName: "Alice"}},
		&Notification{Text: "boom", IsError: true},
	}
	for _, msg := range cases {
		wire, err := EncodeServer(msg)
		if err != nil {
			t.Fatalf("EncodeServer(%T): %v", msg, err)
		}
		got, err := DecodeServer(wire)
		if err != nil {
			t.Fatalf("DecodeServer(%T): %v", msg, err)
		}
		if !reflect.DeepEqual(got, msg) {
			t.Fatalf("round trip %T: got %+v want %+v", msg, got, msg)
		}
	}
}

func TestDecodeClientUnknownType(t *testing.T) {
	if _, err := DecodeClient([]byte(`{"type":"warp_drive"}`)); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestDecodeClientMalformedPayload(t *testing.T) {
	if _, err := DecodeClient([]byte(`{"type":"login","data":[1,2,3]}`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
