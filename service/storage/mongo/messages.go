package mongo

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/y4my4my4m/nexus-server-sub000/model"
	"github.com/y4my4my4m/nexus-server-sub000/service/pagination"
	"github.com/y4my4my4m/nexus-server-sub000/tools/errs"
)

// tsFilter translates pagination.Query bounds onto the base filter and
// returns the matching find options (sort/limit/skip).
func tsFilter(base bson.M, q pagination.Query) (bson.M, *options.FindOptions) {
	filter := bson.M{}
	for k, v := range base {
		filter[k] = v
	}
	if q.Before != nil {
		filter["ts"] = bson.M{"$lt": *q.Before}
	}
	if q.After != nil {
		filter["ts"] = bson.M{"$gt": *q.After}
	}
	order := 1
	if q.Reverse {
		order = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: order}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.ByOffset {
		opts.SetSkip(int64(q.Offset))
	}
	return filter, opts
}

func (s *Store) StoreChannelMessage(ctx context.Context, msg model.ChannelMessage) error {
	if _, err := s.db.Collection(collChannelMsgs).InsertOne(ctx, msg); err != nil {
		return errs.ErrDatabase.Wrap(err)
	}
	return nil
}

func (s *Store) FetchChannelMessages(ctx context.Context, channelID string, q pagination.Query) ([]model.ChannelMessage, error) {
	filter, opts := tsFilter(bson.M{"channel_id": channelID}, q)
	cur, err := s.db.Collection(collChannelMsgs).Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.ErrDatabase.Wrap(err)
	}
	defer cur.Close(ctx)
	var out []model.ChannelMessage
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrDatabase.Wrap(err)
	}
	return out, nil
}

func (s *Store) CountChannelMessages(ctx context.Context, channelID string) (int64, error) {
	n, err := s.db.Collection(collChannelMsgs).CountDocuments(ctx, bson.M{"channel_id": channelID})
	if err != nil {
		return 0, errs.ErrDatabase.Wrap(err)
	}
	return n, nil
}

func (s *Store) ChannelMemberIDs(ctx context.Context, channelID string) ([]string, error) {
	vals, err := s.db.Collection(collChannelMembers).Distinct(ctx, "user_id", bson.M{"channel_id": channelID})
	if err != nil {
		return nil, errs.ErrDatabase.Wrap(err)
	}
	if len(vals) == 0 {
		return nil, errs.ErrNotFound.WithDetail("channel")
	}
	return toStrings(vals), nil
}

// AddChannelMember is the membership write used by the forum subsystem
// and by seeding tools; the chat core only reads membership.
func (s *Store) AddChannelMember(ctx context.Context, channelID, userID string) error {
	_, err := s.db.Collection(collChannelMembers).UpdateOne(ctx,
		bson.M{"channel_id": channelID, "user_id": userID},
		bson.M{"$setOnInsert": bson.M{"channel_id": channelID, "user_id": userID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errs.ErrDatabase.Wrap(err)
	}
	return nil
}

type dmDoc struct {
	model.DirectMessage `bson:",inline"`
	Pair                string `bson:"pair"`
}

func dmPair(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func (s *Store) StoreDirectMessage(ctx context.Context, msg model.DirectMessage) error {
	doc := dmDoc{DirectMessage: msg, Pair: dmPair(msg.SenderID, msg.RecipientID)}
	if _, err := s.db.Collection(collDirectMsgs).InsertOne(ctx, doc); err != nil {
		return errs.ErrDatabase.Wrap(err)
	}
	return nil
}

func (s *Store) FetchDirectMessages(ctx context.Context, userA, userB string, q pagination.Query) ([]model.DirectMessage, error) {
	filter, opts := tsFilter(bson.M{"pair": dmPair(userA, userB)}, q)
	cur, err := s.db.Collection(collDirectMsgs).Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.ErrDatabase.Wrap(err)
	}
	defer cur.Close(ctx)
	var docs []dmDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errs.ErrDatabase.Wrap(err)
	}
	out := make([]model.DirectMessage, len(docs))
	for i, d := range docs {
		out[i] = d.DirectMessage
	}
	return out, nil
}

func (s *Store) CountDirectMessages(ctx context.Context, userA, userB string) (int64, error) {
	n, err := s.db.Collection(collDirectMsgs).CountDocuments(ctx, bson.M{"pair": dmPair(userA, userB)})
	if err != nil {
		return 0, errs.ErrDatabase.Wrap(err)
	}
	return n, nil
}

func (s *Store) DMPartnerIDs(ctx context.Context, userID string) ([]string, error) {
	set := make(map[string]struct{})
	for _, field := range []string{"sender_id", "recipient_id"} {
		other := "recipient_id"
		if field == "recipient_id" {
			other = "sender_id"
		}
		vals, err := s.db.Collection(collDirectMsgs).Distinct(ctx, other, bson.M{field: userID})
		if err != nil {
			return nil, errs.ErrDatabase.Wrap(err)
		}
		for _, v := range toStrings(vals) {
			set[v] = struct{}{}
		}
	}
	delete(set, userID)
	return sorted(set), nil
}

func (s *Store) RelatedUserIDs(ctx context.Context, userID string) ([]string, error) {
	channels, err := s.db.Collection(collChannelMembers).Distinct(ctx, "channel_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, errs.ErrDatabase.Wrap(err)
	}
	set := make(map[string]struct{})
	if len(channels) > 0 {
		members, err := s.db.Collection(collChannelMembers).Distinct(ctx, "user_id", bson.M{"channel_id": bson.M{"$in": channels}})
		if err != nil {
			return nil, errs.ErrDatabase.Wrap(err)
		}
		for _, v := range toStrings(members) {
			set[v] = struct{}{}
		}
	}
	partners, err := s.DMPartnerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range partners {
		set[p] = struct{}{}
	}
	delete(set, userID)
	return sorted(set), nil
}

func toStrings(vals []interface{}) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
