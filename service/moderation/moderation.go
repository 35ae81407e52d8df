// Package moderation is the rate-limit / content-filter collaborator
// consulted before persistence writes.
package moderation

import "context"

type Verdict int

const (
	VerdictAllowed Verdict = iota
	VerdictBlocked
	VerdictFlagged
)

type FilterResult struct {
	Verdict Verdict
	Reason  string
}

type Gateway interface {
	// CheckMessageRate reports whether userID may send another message
	// right now.
	CheckMessageRate(ctx context.Context, userID string) (bool, error)
	// FilterContent inspects outbound text. Blocked rejects the write;
	// Flagged lets it through for later review.
	FilterContent(ctx context.Context, text string) (FilterResult, error)
}

// Permissive allows everything. Selected when no Redis endpoint is
// configured, and used as the test default.
type Permissive struct{}

func (Permissive) CheckMessageRate(context.Context, string) (bool, error) {
	return true, nil
}

func (Permissive) FilterContent(context.Context, string) (FilterResult, error) {
	return FilterResult{Verdict: VerdictAllowed}, nil
}
