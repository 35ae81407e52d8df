// Package pagination implements cursor paging over any timestamp-ordered
// history stream. It is written once and reused for channel messages,
// direct messages, and notifications.
package pagination

import "context"

type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Cursor tags. Start means "no position yet"; Timestamp resumes strictly
// before/after a point; Offset is the legacy positional fallback and
// yields no next/prev cursors.
const (
	CursorStart     = "start"
	CursorTimestamp = "timestamp"
	CursorOffset    = "offset"
)

type Cursor struct {
	Type  string `json:"type"`
	Value int64  `json:"value,omitempty"`
}

func Start() Cursor              { return Cursor{Type: CursorStart} }
func Timestamp(t int64) Cursor   { return Cursor{Type: CursorTimestamp, Value: t} }
func Offset(n int64) Cursor      { return Cursor{Type: CursorOffset, Value: n} }

type Request struct {
	Cursor    Cursor    `json:"cursor"`
	Limit     int       `json:"limit"`
	Direction Direction `json:"direction"`
}

// Page items are always chronological (oldest first), whatever the
// requested direction was.
type Page[T any] struct {
	Items      []T     `json:"items"`
	HasMore    bool    `json:"has_more"`
	NextCursor *Cursor `json:"next_cursor,omitempty"`
	PrevCursor *Cursor `json:"prev_cursor,omitempty"`
	TotalCount *int64  `json:"total_count,omitempty"`
}

type Timestamped interface {
	Timestamp() int64
}

// Query is what the engine asks a fetcher to run. Exactly one of the
// bound fields is set for timestamp cursors; ByOffset selects positional
// paging. Bounds are exclusive. When Reverse is set the fetcher must
// return newest-first; otherwise oldest-first. At most Limit items.
type Query struct {
	Before   *int64
	After    *int64
	Offset   int
	ByOffset bool
	Limit    int
	Reverse  bool
}

type Fetcher[T Timestamped] func(ctx context.Context, q Query) ([]T, error)

type Limits struct {
	Default int
	Max     int
}

// Clamp forces limit into [1, Max].
func (l Limits) Clamp(limit int) int {
	if limit < 1 {
		limit = 1
	}
	if l.Max > 0 && limit > l.Max {
		limit = l.Max
	}
	return limit
}

// Paginate resolves req against fetch. It overfetches by one item to
// detect has_more, restores chronological order, and derives cursors from
// the first and last timestamps of the final slice.
func Paginate[T Timestamped](ctx context.Context, req Request, lim Limits, fetch Fetcher[T]) (Page[T], error) {
	limit := lim.Clamp(req.Limit)
	reverse := req.Direction == Backward

	q := Query{Limit: limit + 1, Reverse: reverse}
	switch req.Cursor.Type {
	case CursorOffset:
		q.ByOffset = true
		q.Offset = int(req.Cursor.Value)
	case CursorTimestamp:
		t := req.Cursor.Value
		if reverse {
			q.Before = &t
		} else {
			q.After = &t
		}
	default:
		// Start: no bound.
	}

	items, err := fetch(ctx, q)
	if err != nil {
		return Page[T]{}, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	if reverse {
		reverseSlice(items)
	}

	page := Page[T]{Items: items, HasMore: hasMore}
	if req.Cursor.Type == CursorOffset {
		// Legacy positional paging carries no cursors.
		return page, nil
	}
	if len(items) == 0 {
		return page, nil
	}

	first := items[0].Timestamp()
	last := items[len(items)-1].Timestamp()
	if reverse {
		// Travel is toward older items: next continues below the oldest
		// returned, prev points back toward the newest.
		if hasMore {
			c := Timestamp(first)
			page.NextCursor = &c
		}
		p := Timestamp(last)
		page.PrevCursor = &p
	} else {
		if hasMore {
			c := Timestamp(last)
			page.NextCursor = &c
		}
		p := Timestamp(first)
		page.PrevCursor = &p
	}
	return page, nil
}

func reverseSlice[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
