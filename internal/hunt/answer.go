package hunt

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Normalize returns the canonical form of free text under the given policy.
// Unknown policies fall back to PolicyAlnum.
func Normalize(policy, text string) string {
	lowered := strings.ToLower(text)
	if policy == PolicyCollapse {
		return strings.Join(strings.Fields(lowered), " ")
	}

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsMatch compares canonical forms. Empty submissions never match.
func IsMatch(policy, submitted, expected string) bool {
	got := Normalize(policy, submitted)
	if got == "" {
		return false
	}
	return got == Normalize(policy, expected)
}

// AnswerKey grades answers server-side against a pool. Question references are
// the per-team sequence numbers the client submits, resolved against the
// team's persisted order when one is stored.
type AnswerKey struct {
	pool    Pool
	store   ProgressStore
	version string
}

// NewAnswerKey builds a key over pool. store may be nil, in which case every
// team is graded against its freshly derived order.
func NewAnswerKey(pool Pool, store ProgressStore, version string) *AnswerKey {
	return &AnswerKey{pool: pool.withDefaults(), store: store, version: version}
}

// Verify reports whether answer matches the step at sequenceNo for the team.
// known is false when sequenceNo is outside the team's sequence.
func (k *AnswerKey) Verify(ctx context.Context, teamID string, sequenceNo int, answer string) (correct, known bool, err error) {
	seq, err := k.sequence(ctx, teamID)
	if err != nil {
		return false, false, err
	}
	if sequenceNo < 1 || sequenceNo > len(seq) {
		return false, false, nil
	}
	return IsMatch(k.pool.Policy, answer, seq[sequenceNo-1].Answer), true, nil
}

// sequence reads the stored order without discarding stale entries; those
// are left for the session API to clear.
func (k *AnswerKey) sequence(ctx context.Context, teamID string) (Sequence, error) {
	s := NewSession(teamID, "", k.pool, k.store, SessionOptions{Version: k.version, Logger: zerolog.Nop()})
	if k.store == nil {
		return s.seq, nil
	}
	raw, ok, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.seq, nil
	}
	if seq, _, err := s.decode(raw); err == nil {
		return seq, nil
	}
	return s.seq, nil
}
