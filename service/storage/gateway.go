// Package storage defines the persistence gateway contract the chat core
// depends on. The core never deletes history and never caches membership;
// every fan-out re-reads it through this interface.
package storage

import (
	"context"

	"github.com/y4my4my4m/nexus-server-sub000/model"
	"github.com/y4my4my4m/nexus-server-sub000/service/pagination"
)

type PersistenceGateway interface {
	// User profiles. Login and Register return the canonical record.
	RegisterUser(ctx context.Context, username, password string) (model.User, error)
	LoginUser(ctx context.Context, username, password string) (model.User, error)
	UpdateUser(ctx context.Context, userID, displayName string) (model.User, error)
	GetUser(ctx context.Context, userID string) (model.User, error)

	// Channel history. Fetch honors pagination.Query bounds: exclusive
	// timestamp bounds, newest-first when Reverse, at most Limit items.
	StoreChannelMessage(ctx context.Context, msg model.ChannelMessage) error
	FetchChannelMessages(ctx context.Context, channelID string, q pagination.Query) ([]model.ChannelMessage, error)
	CountChannelMessages(ctx context.Context, channelID string) (int64, error)
	ChannelMemberIDs(ctx context.Context, channelID string) ([]string, error)

	// Direct-message history between two users, same Query contract.
	StoreDirectMessage(ctx context.Context, msg model.DirectMessage) error
	FetchDirectMessages(ctx context.Context, userA, userB string, q pagination.Query) ([]model.DirectMessage, error)
	CountDirectMessages(ctx context.Context, userA, userB string) (int64, error)
	DMPartnerIDs(ctx context.Context, userID string) ([]string, error)

	// RelatedUserIDs is the presence audience: every user sharing at
	// least one channel with userID, plus DM partners. Excludes userID.
	RelatedUserIDs(ctx context.Context, userID string) ([]string, error)

	// Notifications.
	InsertNotification(ctx context.Context, n model.Notification) error
	FetchNotifications(ctx context.Context, userID string, q pagination.Query) ([]model.Notification, error)
	CountNotifications(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}
