package pagination

import (
	"context"
	"testing"
)

type item struct{ ts int64 }

func (i item) Timestamp() int64 { return i.ts }

// fixedFetcher serves a chronological history per the Query contract.
func fixedFetcher(history []item) Fetcher[item] {
	return func(_ context.Context, q Query) ([]item, error) {
		if q.ByOffset {
			view := history
			if q.Reverse {
				view = reversedCopy(history)
			}
			if q.Offset >= len(view) {
				return nil, nil
			}
			end := q.Offset + q.Limit
			if end > len(view) {
				end = len(view)
			}
			return view[q.Offset:end], nil
		}
		var out []item
		for _, it := range history {
			if q.Before != nil && it.ts >= *q.Before {
				continue
			}
			if q.After != nil && it.ts <= *q.After {
				continue
			}
			out = append(out, it)
		}
		if q.Reverse {
			out = reversedCopy(out)
		}
		if len(out) > q.Limit {
			out = out[:q.Limit]
		}
		return out, nil
	}
}

func reversedCopy(s []item) []item {
	out := make([]item, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func history(n int) []item {
	out := make([]item, n)
	for i := range out {
		out[i] = item{ts: int64(i + 1)}
	}
	return out
}

func timestamps(items []item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ts
	}
	return out
}

func equalTs(a []int64, b ...int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var testLimits = Limits{Default: 50, Max: 100}

func TestBackwardTraversal(t *testing.T) {
	ctx := context.Background()
	fetch := fixedFetcher(history(5))

	page, err := Paginate(ctx, Request{Cursor: Start(), Limit: 2, Direction: Backward}, testLimits, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if !equalTs(timestamps(page.Items), 4, 5) {
		t.Fatalf("page 1 items = %v, want [4 5]", timestamps(page.Items))
	}
	if !page.HasMore {
		t.Fatal("page 1 should have more")
	}
	if page.NextCursor == nil || page.NextCursor.Value != 4 {
		t.Fatalf("page 1 next cursor = %+v, want Timestamp(4)", page.NextCursor)
	}
	if page.PrevCursor == nil || page.PrevCursor.Value != 5 {
		t.Fatalf("page 1 prev cursor = %+v, want Timestamp(5)", page.PrevCursor)
	}

	page, err = Paginate(ctx, Request{Cursor: *page.NextCursor, Limit: 2, Direction: Backward}, testLimits, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if !equalTs(timestamps(page.Items), 2, 3) {
		t.Fatalf("page 2 items = %v, want [2 3]", timestamps(page.Items))
	}
	if !page.HasMore || page.NextCursor == nil || page.NextCursor.Value != 2 {
		t.Fatalf("page 2 continuation wrong: hasMore=%v next=%+v", page.HasMore, page.NextCursor)
	}

	page, err = Paginate(ctx, Request{Cursor: *page.NextCursor, Limit: 2, Direction: Backward}, testLimits, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if !equalTs(timestamps(page.Items), 1) {
		t.Fatalf("page 3 items = %v, want [1]", timestamps(page.Items))
	}
	if page.HasMore {
		t.Fatal("page 3 should be the last")
	}
	if page.NextCursor != nil {
		t.Fatalf("page 3 next cursor = %+v, want nil", page.NextCursor)
	}
}

// Following next_cursor visits every item exactly once, in both directions.
func TestTraversalVisitsEachItemOnce(t *testing.T) {
	ctx := context.Background()
	const n = 10
	fetch := fixedFetcher(history(n))

	for _, dir := range []Direction{Forward, Backward} {
		seen := make(map[int64]int)
		req := Request{Cursor: Start(), Limit: 3, Direction: dir}
		for steps := 0; ; steps++ {
			if steps > n {
				t.Fatalf("%s traversal did not terminate", dir)
			}
			page, err := Paginate(ctx, req, testLimits, fetch)
			if err != nil {
				t.Fatal(err)
			}
			for _, ts := range timestamps(page.Items) {
				seen[ts]++
			}
			if !page.HasMore {
				if page.NextCursor != nil {
					t.Fatalf("%s: next cursor set on final page", dir)
				}
				break
			}
			req.Cursor = *page.NextCursor
		}
		if len(seen) != n {
			t.Fatalf("%s: visited %d distinct items, want %d", dir, len(seen), n)
		}
		for ts, count := range seen {
			if count != 1 {
				t.Fatalf("%s: item %d visited %d times", dir, ts, count)
			}
		}
	}
}

func TestChronologicalPostcondition(t *testing.T) {
	ctx := context.Background()
	fetch := fixedFetcher(history(7))
	for _, dir := range []Direction{Forward, Backward} {
		page, err := Paginate(ctx, Request{Cursor: Start(), Limit: 5, Direction: dir}, testLimits, fetch)
		if err != nil {
			t.Fatal(err)
		}
		ts := timestamps(page.Items)
		for i := 1; i < len(ts); i++ {
			if ts[i-1] >= ts[i] {
				t.Fatalf("%s: items not chronological: %v", dir, ts)
			}
		}
	}
}

func TestLimitClamping(t *testing.T) {
	ctx := context.Background()
	fetch := fixedFetcher(history(20))
	lim := Limits{Default: 5, Max: 8}

	// limit 0 clamps to 1
	page, err := Paginate(ctx, Request{Cursor: Start(), Limit: 0, Direction: Forward}, lim, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("limit 0: got %d items, want 1", len(page.Items))
	}

	// limit above max clamps to max
	page, err = Paginate(ctx, Request{Cursor: Start(), Limit: 50, Direction: Forward}, lim, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 8 {
		t.Fatalf("limit 50: got %d items, want 8", len(page.Items))
	}
}

func TestOffsetCursor(t *testing.T) {
	ctx := context.Background()
	fetch := fixedFetcher(history(5))

	page, err := Paginate(ctx, Request{Cursor: Offset(1), Limit: 2, Direction: Forward}, testLimits, fetch)
	if err != nil {
		t.Fatal(err)
	}
	if !equalTs(timestamps(page.Items), 2, 3) {
		t.Fatalf("offset items = %v, want [2 3]", timestamps(page.Items))
	}
	if !page.HasMore {
		t.Fatal("offset paging should report more")
	}
	if page.NextCursor != nil || page.PrevCursor != nil {
		t.Fatal("offset paging must not derive cursors")
	}
}

func TestEmptyHistory(t *testing.T) {
	ctx := context.Background()
	page, err := Paginate(ctx, Request{Cursor: Start(), Limit: 5, Direction: Backward}, testLimits, fixedFetcher(nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 0 || page.HasMore || page.NextCursor != nil || page.PrevCursor != nil {
		t.Fatalf("empty history page = %+v", page)
	}
}
