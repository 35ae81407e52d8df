package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/y4my4my4m/nexus-server-sub000/model"
	"github.com/y4my4my4m/nexus-server-sub000/service/pagination"
	"github.com/y4my4my4m/nexus-server-sub000/tools/errs"
)

func (s *Store) InsertNotification(ctx context.Context, n model.Notification) error {
	if n.UserID == "" {
		return errs.ErrValidation.WithDetail("notification user required")
	}
	if _, err := s.db.Collection(collNotifications).InsertOne(ctx, n); err != nil {
		return errs.ErrDatabase.Wrap(err)
	}
	return nil
}

func (s *Store) FetchNotifications(ctx context.Context, userID string, q pagination.Query) ([]model.Notification, error) {
	filter, opts := tsFilter(bson.M{"user_id": userID}, q)
	cur, err := s.db.Collection(collNotifications).Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.ErrDatabase.Wrap(err)
	}
	defer cur.Close(ctx)
	var out []model.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrDatabase.Wrap(err)
	}
	return out, nil
}

func (s *Store) CountNotifications(ctx context.Context, userID string) (int64, error) {
	n, err := s.db.Collection(collNotifications).CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, errs.ErrDatabase.Wrap(err)
	}
	return n, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	res, err := s.db.Collection(collNotifications).UpdateOne(ctx,
		bson.M{"_id": notificationID, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return errs.ErrDatabase.Wrap(err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WithDetail("notification")
	}
	return nil
}
