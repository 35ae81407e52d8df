package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/y4my4my4m/nexus-server-sub000/model"
	"github.com/y4my4my4m/nexus-server-sub000/tools/errs"
	"github.com/y4my4my4m/nexus-server-sub000/tools/ids"
)

func (s *Store) RegisterUser(ctx context.Context, username, password string) (model.User, error) {
	if username == "" || password == "" {
		return model.User{}, errs.ErrValidation.WithDetail("username and password required")
	}
	u := model.User{
		ID:           ids.GenerateString(),
		Username:     username,
		DisplayName:  username,
		PasswordHash: hashPassword(username, password),
		CreatedAt:    time.Now().UnixMilli(),
	}
	_, err := s.db.Collection(collUsers).InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return model.User{}, errs.ErrValidation.WithDetail("username already taken")
	}
	if err != nil {
		return model.User{}, errs.ErrDatabase.Wrap(err)
	}
	return u, nil
}

func (s *Store) LoginUser(ctx context.Context, username, password string) (model.User, error) {
	var u model.User
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return model.User{}, errs.ErrAuthentication.WithDetail("unknown user")
	}
	if err != nil {
		return model.User{}, errs.ErrDatabase.Wrap(err)
	}
	if u.PasswordHash != hashPassword(username, password) {
		return model.User{}, errs.ErrAuthentication.WithDetail("wrong password")
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, userID, displayName string) (model.User, error) {
	if displayName == "" {
		return model.User{}, errs.ErrValidation.WithDetail("display name required")
	}
	var u model.User
	err := s.db.Collection(collUsers).FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"display_name": displayName}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return model.User{}, errs.ErrNotFound.WithDetail("user")
	}
	if err != nil {
		return model.User{}, errs.ErrDatabase.Wrap(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return model.User{}, errs.ErrNotFound.WithDetail("user")
	}
	if err != nil {
		return model.User{}, errs.ErrDatabase.Wrap(err)
	}
	return u, nil
}
