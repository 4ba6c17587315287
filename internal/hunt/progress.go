package hunt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultProgressVersion tags progress written by this build. Entries with any
// other tag are discarded on restore and by Sweep.
const DefaultProgressVersion = "2026-02-20-v2"

// MaxProgressEntryBytes bounds a single persisted entry; larger ones are swept.
const MaxProgressEntryBytes = 5000

// State is the lifecycle position of a team's run.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

var (
	// ErrCompleted is returned when advancing past the final step.
	ErrCompleted = errors.New("hunt already completed")
	// ErrStaleProgress marks persisted progress that no longer fits the running pool.
	// Restore swallows it; it never reaches a caller.
	ErrStaleProgress = errors.New("stale progress")
)

// ProgressState is the serialized form of a team's progress.
type ProgressState struct {
	Version              string `json:"version"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
	OrderIDs             []int  `json:"orderIds"`
}

// SessionOptions tunes a Session.
type SessionOptions struct {
	Version string
	Logger  zerolog.Logger
}

// Session is the per-team context for sequencing and progress. It holds no
// shared state; build one per team per request.
type Session struct {
	teamID   string
	teamName string
	pool     Pool
	store    ProgressStore
	version  string
	logger   zerolog.Logger

	seq   Sequence
	index int
}

// NewSession derives the team's sequence and starts at NotStarted.
func NewSession(teamID, teamName string, pool Pool, store ProgressStore, opts SessionOptions) *Session {
	version := opts.Version
	if version == "" {
		version = DefaultProgressVersion
	}
	return &Session{
		teamID:   teamID,
		teamName: teamName,
		pool:     pool.withDefaults(),
		store:    store,
		version:  version,
		logger:   opts.Logger.With().Str("component", "hunt_session").Str("team_id", teamID).Logger(),
		seq:      Shuffle(teamID, pool),
	}
}

func (s *Session) TeamID() string     { return s.teamID }
func (s *Session) TeamName() string   { return s.teamName }
func (s *Session) Policy() string     { return s.pool.Policy }
func (s *Session) Index() int         { return s.index }
func (s *Session) Sequence() Sequence { return append(Sequence(nil), s.seq...) }

// State reports the lifecycle state implied by the cursor alone. A restored
// entry at index 0 is still NotStarted.
func (s *Session) State() State {
	switch {
	case s.index >= len(s.seq):
		return StateCompleted
	case s.index == 0:
		return StateNotStarted
	default:
		return StateInProgress
	}
}

// Current returns the step under the cursor, or false once completed.
func (s *Session) Current() (Step, bool) {
	if s.index < 0 || s.index >= len(s.seq) {
		return Step{}, false
	}
	return s.seq[s.index], true
}

// StepAt returns the step with the given 1-based sequence number.
func (s *Session) StepAt(sequenceNo int) (Step, bool) {
	if sequenceNo < 1 || sequenceNo > len(s.seq) {
		return Step{}, false
	}
	return s.seq[sequenceNo-1], true
}

// Check validates a candidate answer against the current step.
func (s *Session) Check(answer string) bool {
	step, ok := s.Current()
	if !ok {
		return false
	}
	return IsMatch(s.pool.Policy, answer, step.Answer)
}

// Advance moves the cursor one step forward and persists. Callers invoke it
// only after the ledger acknowledged a correct submission.
func (s *Session) Advance(ctx context.Context) error {
	if s.index >= len(s.seq) {
		return ErrCompleted
	}
	s.index++
	return s.Save(ctx)
}

// Reset discards persisted progress in every scope and re-derives the order.
func (s *Session) Reset(ctx context.Context) error {
	s.index = 0
	s.seq = Shuffle(s.teamID, s.pool)
	return s.clear(ctx)
}

// Save writes the durable copy and drops any session-scope copy.
func (s *Session) Save(ctx context.Context) error {
	data, err := json.Marshal(ProgressState{
		Version:              s.version,
		CurrentQuestionIndex: s.index,
		OrderIDs:             s.seq.IDs(),
	})
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	key := ProgressKey(s.teamID)
	if err := s.store.Set(ctx, ScopeLocal, key, string(data)); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, ScopeSession, key); err != nil {
		return err
	}
	return nil
}

// Restore loads persisted progress. Stale or malformed entries are discarded
// and the session stays at NotStarted; only storage failures are returned.
func (s *Session) Restore(ctx context.Context) error {
	raw, ok, err := s.stored(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	seq, index, err := s.decode(raw)
	if err != nil {
		s.logger.Debug().Err(err).Msg("discarding persisted progress")
		s.index = 0
		s.seq = Shuffle(s.teamID, s.pool)
		return s.clear(ctx)
	}
	s.seq = seq
	s.index = index
	return nil
}

// stored returns the durable entry, falling back to the session copy.
func (s *Session) stored(ctx context.Context) (string, bool, error) {
	key := ProgressKey(s.teamID)
	raw, ok, err := s.store.Get(ctx, ScopeLocal, key)
	if err != nil || ok {
		return raw, ok, err
	}
	return s.store.Get(ctx, ScopeSession, key)
}

func (s *Session) decode(raw string) (Sequence, int, error) {
	var st ProgressState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStaleProgress, err)
	}
	if st.Version != s.version {
		return nil, 0, fmt.Errorf("%w: version %q", ErrStaleProgress, st.Version)
	}
	fresh := Shuffle(s.teamID, s.pool)
	if len(st.OrderIDs) != len(fresh) {
		return nil, 0, fmt.Errorf("%w: %d ids for %d steps", ErrStaleProgress, len(st.OrderIDs), len(fresh))
	}

	items := make([]Question, 0, len(st.OrderIDs))
	seen := make(map[int]bool, len(st.OrderIDs))
	for _, id := range st.OrderIDs {
		q, ok := s.pool.Lookup(id)
		if !ok {
			return nil, 0, fmt.Errorf("%w: unknown question %d", ErrStaleProgress, id)
		}
		if seen[id] {
			return nil, 0, fmt.Errorf("%w: question %d repeated", ErrStaleProgress, id)
		}
		seen[id] = true
		items = append(items, q)
	}

	index := st.CurrentQuestionIndex
	if index < 0 {
		index = 0
	}
	if index > len(items) {
		index = len(items)
	}
	return number(items), index, nil
}

func (s *Session) clear(ctx context.Context) error {
	key := ProgressKey(s.teamID)
	for _, scope := range Scopes {
		if err := s.store.Delete(ctx, scope, key); err != nil {
			return err
		}
	}
	return nil
}

// Sweep drops persisted entries that are oversized, unparsable or carry a
// stale version, in every scope. It returns how many entries were removed;
// keys that vanish between listing and reading are skipped and not counted.
func Sweep(ctx context.Context, store ProgressStore, version string) (int, error) {
	if version == "" {
		version = DefaultProgressVersion
	}
	removed := 0
	for _, scope := range Scopes {
		keys, err := store.Keys(ctx, scope)
		if err != nil {
			return removed, err
		}
		for _, key := range keys {
			raw, ok, err := store.Get(ctx, scope, key)
			if err != nil {
				return removed, err
			}
			if !ok || !sweepable(raw, version) {
				continue
			}
			if err := store.Delete(ctx, scope, key); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func sweepable(raw, version string) bool {
	if raw == "" || len(raw) > MaxProgressEntryBytes {
		return true
	}
	var st ProgressState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return true
	}
	return st.Version != version
}
