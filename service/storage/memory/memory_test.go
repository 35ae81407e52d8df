package memory

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/y4my4my4m/nexus-server-sub000/model"
	"github.com/y4my4my4m/nexus-server-sub000/service/pagination"
	"github.com/y4my4my4m/nexus-server-sub000/tools/errs"
)

func TestUserLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	u, err := s.RegisterUser(ctx, "alice", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if u.PasswordHash == "secret" || u.PasswordHash == "" {
		t.Fatal("password stored in the clear")
	}

	if _, err := s.RegisterUser(ctx, "alice", "other"); errs.CodeOf(err) != errs.ErrValidation.Code {
		t.Fatalf("duplicate register error = %v", err)
	}

	if _, err := s.LoginUser(ctx, "alice", "wrong"); errs.CodeOf(err) != errs.ErrAuthentication.Code {
		t.Fatalf("wrong password error = %v", err)
	}
	got, err := s.LoginUser(ctx, "alice", "secret")
	if err != nil || got.ID != u.ID {
		t.Fatalf("login = %+v, %v", got, err)
	}

	upd, err := s.UpdateUser(ctx, u.ID, "Alice of Wonderland")
	if err != nil || upd.DisplayName != "Alice of Wonderland" {
		t.Fatalf("update = %+v, %v", upd, err)
	}
	if _, err := s.UpdateUser(ctx, "missing", "x"); errs.CodeOf(err) != errs.ErrNotFound.Code {
		t.Fatalf("update missing user error = %v", err)
	}
}

func TestDirectMessagePairIsSymmetric(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.StoreDirectMessage(ctx, model.DirectMessage{ID: "d1", SenderID: "a", RecipientID: "b", Ts: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.StoreDirectMessage(ctx, model.DirectMessage{ID: "d2", SenderID: "b", RecipientID: "a", Ts: 2}); err != nil {
		t.Fatal(err)
	}

	// Both orderings of the pair see the same conversation.
	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}} {
		msgs, err := s.FetchDirectMessages(ctx, pair[0], pair[1], pagination.Query{Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) != 2 || msgs[0].ID != "d1" || msgs[1].ID != "d2" {
			t.Fatalf("pair %v sees %+v", pair, msgs)
		}
		n, _ := s.CountDirectMessages(ctx, pair[0], pair[1])
		if n != 2 {
			t.Fatalf("pair %v count = %d", pair, n)
		}
	}
}

func TestRelatedUserIDs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.CreateChannel("general", "a", "b", "c")
	s.CreateChannel("private", "d", "e")
	_ = s.StoreDirectMessage(ctx, model.DirectMessage{ID: "d1", SenderID: "a", RecipientID: "z", Ts: 1})

	got, err := s.RelatedUserIDs(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	// Channel co-members plus DM partners, never the user itself.
	want := []string{"b", "c", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("related = %v, want %v", got, want)
	}

	got, err = s.RelatedUserIDs(ctx, "nobody")
	if err != nil || len(got) != 0 {
		t.Fatalf("unrelated user: %v, %v", got, err)
	}
}

func TestSelectPageBounds(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.CreateChannel("c", "a")
	for i := 1; i <= 5; i++ {
		err := s.StoreChannelMessage(ctx, model.ChannelMessage{
			ID: fmt.Sprintf("m%d", i), ChannelID: "c", SenderID: "a", Ts: int64(i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	tsOf := func(msgs []model.ChannelMessage) []int64 {
		if len(msgs) == 0 {
			return nil
		}
		out := make([]int64, len(msgs))
		for i, m := range msgs {
			out[i] = m.Ts
		}
		return out
	}
	before, after := int64(4), int64(1)

	cases := []struct {
		name string
		q    pagination.Query
		want []int64
	}{
		{"before is exclusive", pagination.Query{Before: &before, Limit: 10}, []int64{1, 2, 3}},
		{"after is exclusive", pagination.Query{After: &after, Limit: 10}, []int64{2, 3, 4, 5}},
		{"reverse takes newest first", pagination.Query{Reverse: true, Limit: 2}, []int64{5, 4}},
		{"both bounds", pagination.Query{Before: &before, After: &after, Limit: 10}, []int64{2, 3}},
		{"offset window", pagination.Query{ByOffset: true, Offset: 1, Limit: 2}, []int64{2, 3}},
		{"offset past end", pagination.Query{ByOffset: true, Offset: 9, Limit: 2}, nil},
	}
	for _, tc := range cases {
		msgs, err := s.FetchChannelMessages(ctx, "c", tc.q)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !reflect.DeepEqual(tsOf(msgs), tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, tsOf(msgs), tc.want)
		}
	}
}

func TestNotifications(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := s.InsertNotification(ctx, model.Notification{
			ID: fmt.Sprintf("n%d", i), UserID: "u1", Kind: model.NotifyDirect, Ts: int64(i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := s.InsertNotification(ctx, model.Notification{ID: "bad"}); errs.CodeOf(err) != errs.ErrValidation.Code {
		t.Fatalf("insert without user error = %v", err)
	}

	if err := s.MarkNotificationRead(ctx, "u1", "n2"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkNotificationRead(ctx, "u1", "missing"); errs.CodeOf(err) != errs.ErrNotFound.Code {
		t.Fatalf("mark missing error = %v", err)
	}

	list, err := s.FetchNotifications(ctx, "u1", pagination.Query{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || !list[1].Read || list[0].Read {
		t.Fatalf("notifications = %+v", list)
	}
}
