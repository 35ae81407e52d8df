// Package memory is the in-process persistence gateway. It backs tests
// and standalone runs where no Mongo endpoint is configured.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/y4my4my4m/nexus-server-sub000/model"
	"github.com/y4my4my4m/nexus-server-sub000/service/pagination"
	"github.com/y4my4my4m/nexus-server-sub000/tools/errs"
	"github.com/y4my4my4m/nexus-server-sub000/tools/ids"
)

type Store struct {
	mu sync.RWMutex

	usersByID   map[string]model.User
	usersByName map[string]string // username -> id

	channels    map[string]map[string]struct{} // channel -> member set
	channelMsgs map[string][]model.ChannelMessage

	directMsgs map[string][]model.DirectMessage // key: sorted pair

	notifications map[string][]model.Notification // user -> notifications
}

func NewStore() *Store {
	return &Store{
		usersByID:     make(map[string]model.User),
		usersByName:   make(map[string]string),
		channels:      make(map[string]map[string]struct{}),
		channelMsgs:   make(map[string][]model.ChannelMessage),
		directMsgs:    make(map[string][]model.DirectMessage),
		notifications: make(map[string][]model.Notification),
	}
}

// ---- users ----

func hashPassword(username, password string) string {
	sum := sha256.Sum256([]byte(username + ":" + password))
	return hex.EncodeToString(sum[:])
}

func (s *Store) RegisterUser(_ context.Context, username, password string) (model.User, error) {
	if username == "" || password == "" {
		return model.User{}, errs.ErrValidation.WithDetail("username and password required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByName[username]; exists {
		return model.User{}, errs.ErrValidation.WithDetail("username already taken")
	}
	u := model.User{
		ID:           ids.GenerateString(),
		Username:     username,
		DisplayName:  username,
		PasswordHash: hashPassword(username, password),
		CreatedAt:    time.Now().UnixMilli(),
	}
	s.usersByID[u.ID] = u
	s.usersByName[username] = u.ID
	return u, nil
}

func (s *Store) LoginUser(_ context.Context, username, password string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByName[username]
	if !ok {
		return model.User{}, errs.ErrAuthentication.WithDetail("unknown user")
	}
	u := s.usersByID[id]
	if u.PasswordHash != hashPassword(username, password) {
		return model.User{}, errs.ErrAuthentication.WithDetail("wrong password")
	}
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, userID, displayName string) (model.User, error) {
	if displayName == "" {
		return model.User{}, errs.ErrValidation.WithDetail("display name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByID[userID]
	if !ok {
		return model.User{}, errs.ErrNotFound.WithDetail("user")
	}
	u.DisplayName = displayName
	s.usersByID[userID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByID[userID]
	if !ok {
		return model.User{}, errs.ErrNotFound.WithDetail("user")
	}
	return u, nil
}

// ---- channels ----

// CreateChannel seeds a channel with members. Channel CRUD proper lives
// outside the core; tests and standalone runs use this directly.
func (s *Store) CreateChannel(channelID string, memberIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		set[id] = struct{}{}
	}
	s.channels[channelID] = set
}

func (s *Store) AddChannelMember(channelID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.channels[channelID]
	if set == nil {
		set = make(map[string]struct{})
		s.channels[channelID] = set
	}
	set[userID] = struct{}{}
}

func (s *Store) ChannelMemberIDs(_ context.Context, channelID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.channels[channelID]
	if !ok {
		return nil, errs.ErrNotFound.WithDetail("channel")
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) StoreChannelMessage(_ context.Context, msg model.ChannelMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[msg.ChannelID]; !ok {
		return errs.ErrNotFound.WithDetail("channel")
	}
	s.channelMsgs[msg.ChannelID] = insertByTs(s.channelMsgs[msg.ChannelID], msg)
	return nil
}

func (s *Store) FetchChannelMessages(_ context.Context, channelID string, q pagination.Query) ([]model.ChannelMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectPage(s.channelMsgs[channelID], q), nil
}

func (s *Store) CountChannelMessages(_ context.Context, channelID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.channelMsgs[channelID])), nil
}

// ---- direct messages ----

func dmKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func (s *Store) StoreDirectMessage(_ context.Context, msg model.DirectMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dmKey(msg.SenderID, msg.RecipientID)
	s.directMsgs[key] = insertByTs(s.directMsgs[key], msg)
	return nil
}

func (s *Store) FetchDirectMessages(_ context.Context, userA, userB string, q pagination.Query) ([]model.DirectMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectPage(s.directMsgs[dmKey(userA, userB)], q), nil
}

func (s *Store) CountDirectMessages(_ context.Context, userA, userB string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.directMsgs[dmKey(userA, userB)])), nil
}

func (s *Store) DMPartnerIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for key := range s.directMsgs {
		a, b, _ := strings.Cut(key, "|")
		switch userID {
		case a:
			out = append(out, b)
		case b:
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) RelatedUserIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, members := range s.channels {
		if _, in := members[userID]; !in {
			continue
		}
		for id := range members {
			set[id] = struct{}{}
		}
	}
	for key := range s.directMsgs {
		a, b, _ := strings.Cut(key, "|")
		switch userID {
		case a:
			set[b] = struct{}{}
		case b:
			set[a] = struct{}{}
		}
	}
	delete(set, userID)
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// ---- notifications ----

func (s *Store) InsertNotification(_ context.Context, n model.Notification) error {
	if n.UserID == "" {
		return errs.ErrValidation.WithDetail("notification user required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.UserID] = insertByTs(s.notifications[n.UserID], n)
	return nil
}

func (s *Store) FetchNotifications(_ context.Context, userID string, q pagination.Query) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectPage(s.notifications[userID], q), nil
}

func (s *Store) CountNotifications(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.notifications[userID])), nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[userID]
	for i := range list {
		if list[i].ID == notificationID {
			list[i].Read = true
			return nil
		}
	}
	return errs.ErrNotFound.WithDetail("notification")
}

// ---- paging helpers ----

// insertByTs keeps slices in chronological order. Appends are the common
// case; out-of-order inserts only happen in tests seeding history.
func insertByTs[T pagination.Timestamped](list []T, item T) []T {
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Timestamp() > item.Timestamp()
	})
	list = append(list, item)
	copy(list[i+1:], list[i:])
	list[i] = item
	return list
}

// selectPage applies pagination.Query semantics to a chronological slice.
func selectPage[T pagination.Timestamped](list []T, q pagination.Query) []T {
	if q.ByOffset {
		view := list
		if q.Reverse {
			view = reversed(list)
		}
		if q.Offset >= len(view) {
			return nil
		}
		end := q.Offset + q.Limit
		if end > len(view) {
			end = len(view)
		}
		return append([]T(nil), view[q.Offset:end]...)
	}

	var filtered []T
	for _, item := range list {
		ts := item.Timestamp()
		if q.Before != nil && ts >= *q.Before {
			continue
		}
		if q.After != nil && ts <= *q.After {
			continue
		}
		filtered = append(filtered, item)
	}
	if q.Reverse {
		filtered = reversed(filtered)
	}
	if q.Limit > 0 && len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}
	return filtered
}

func reversed[T any](s []T) []T {
	out := make([]T, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
