package submission

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const maxIDAttempts = 3

// AnswerVerifier grades a submitted answer against the authoritative key.
// known is false when the question reference means nothing for the team.
type AnswerVerifier interface {
	Verify(ctx context.Context, teamID string, sequenceNo int, answer string) (correct, known bool, err error)
}

// LedgerOptions wires optional collaborators.
type LedgerOptions struct {
	BackendName string
	// Verifier, when set, overrides the client's isCorrect claim.
	Verifier AnswerVerifier
	Metrics  *Metrics
	Now      func() time.Time
}

// Ledger commits submissions through one writer goroutine, so id assignment,
// photo persistence and append never interleave between requests.
type Ledger struct {
	backend     Backend
	backendName string
	photos      PhotoStore
	verifier    AnswerVerifier
	metrics     *Metrics
	now         func() time.Time
	logger      zerolog.Logger

	jobs    chan job
	stopped chan struct{}
}

type job struct {
	ctx    context.Context
	run    func(ctx context.Context) (Record, error)
	result chan jobResult
}

type jobResult struct {
	rec Record
	err error
}

func NewLedger(backend Backend, photos PhotoStore, opts LedgerOptions, logger zerolog.Logger) *Ledger {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		backend:     backend,
		backendName: opts.BackendName,
		photos:      photos,
		verifier:    opts.Verifier,
		metrics:     opts.Metrics,
		now:         now,
		logger:      logger.With().Str("component", "submission_ledger").Logger(),
		jobs:        make(chan job),
		stopped:     make(chan struct{}),
	}
}

// Run drains queued writes in FIFO order until ctx is cancelled. Call it once.
func (l *Ledger) Run(ctx context.Context) error {
	defer close(l.stopped)
	l.logger.Info().Str("backend", l.backendName).Msg("ledger writer started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("ledger writer stopped")
			return ctx.Err()
		case j := <-l.jobs:
			if err := j.ctx.Err(); err != nil {
				j.result <- jobResult{err: err}
				continue
			}
			// a started write runs to completion even if the caller gives up
			rec, err := j.run(context.WithoutCancel(j.ctx))
			j.result <- jobResult{rec: rec, err: err}
		}
	}
}

func (l *Ledger) enqueue(ctx context.Context, run func(ctx context.Context) (Record, error)) (Record, error) {
	j := job{ctx: ctx, run: run, result: make(chan jobResult, 1)}
	select {
	case l.jobs <- j:
	case <-l.stopped:
		return Record{}, ErrLedgerClosed
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
	select {
	case r := <-j.result:
		return r.rec, r.err
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
}

// Submit stores the photo, assigns the next id and appends the record. If
// the append fails the stored photo is removed again.
func (l *Ledger) Submit(ctx context.Context, in Input) (Record, error) {
	if l.verifier != nil {
		correct, known, err := l.verifier.Verify(ctx, in.TeamID, in.QuestionID, in.Answer)
		if err != nil {
			err = storageErr("verify answer", err)
			l.metrics.rejected(rejectReason(err))
			return Record{}, err
		}
		if known {
			in.IsCorrect = correct
		}
	}

	rec, err := l.enqueue(ctx, func(ctx context.Context) (Record, error) {
		return l.commit(ctx, in)
	})
	if err != nil {
		l.metrics.rejected(rejectReason(err))
		return Record{}, err
	}
	l.metrics.accepted(l.backendName, rec.IsCorrect)
	return rec, nil
}

func (l *Ledger) commit(ctx context.Context, in Input) (Record, error) {
	start := l.now()
	defer l.metrics.observeWrite(start)

	ref, err := l.photos.Store(ctx, in.Photo, in.TeamID, strconv.Itoa(in.QuestionID), start)
	if err != nil {
		return Record{}, storageErr("store photo", err)
	}

	rec := Record{
		TeamID:            in.TeamID,
		TeamName:          in.TeamName,
		QuestionID:        in.QuestionID,
		Question:          in.Question,
		Answer:            in.Answer,
		IsCorrect:         in.IsCorrect,
		SubmittedAt:       in.SubmittedAt,
		CreatedAt:         start.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		OriginalPhotoName: in.PhotoName,
		PhotoMimeType:     ref.MimeType,
		PhotoPath:         ref.Path,
		PhotoDataURL:      ref.DataURL,
	}

	for attempt := 1; ; attempt++ {
		rec.ID, err = l.backend.NextID(ctx)
		if err == nil {
			err = l.backend.Append(ctx, rec)
		}
		if err == nil {
			break
		}
		// another process took the id between NextID and Append
		if errors.Is(err, ErrDuplicateID) && attempt < maxIDAttempts {
			continue
		}
		if rmErr := l.photos.Remove(ctx, ref); rmErr != nil {
			l.logger.Warn().Err(rmErr).Str("photo", ref.Path).Msg("failed to roll back photo")
		}
		return Record{}, storageErr("append record", err)
	}

	l.logger.Info().
		Int64("id", rec.ID).
		Str("team_id", rec.TeamID).
		Int("question_id", rec.QuestionID).
		Bool("is_correct", rec.IsCorrect).
		Msg("submission recorded")
	return rec, nil
}

// Query reads records straight from the backend, ordered by id.
func (l *Ledger) Query(ctx context.Context, teamID string) ([]Record, error) {
	records, err := l.backend.Query(ctx, teamID)
	if err != nil {
		return nil, storageErr("query records", err)
	}
	return records, nil
}

// ResetAll clears every record and every stored photo. It queues behind
// pending submissions.
func (l *Ledger) ResetAll(ctx context.Context) error {
	_, err := l.enqueue(ctx, func(ctx context.Context) (Record, error) {
		if err := l.backend.ResetAll(ctx); err != nil {
			return Record{}, storageErr("reset records", err)
		}
		if err := l.photos.RemoveAll(ctx); err != nil {
			return Record{}, storageErr("remove photos", err)
		}
		return Record{}, nil
	})
	if err != nil {
		return err
	}
	l.metrics.reset()
	l.logger.Warn().Msg("ledger reset")
	return nil
}

// Acknowledged reports whether the team has a correct submission recorded for
// the given sequence number.
func (l *Ledger) Acknowledged(ctx context.Context, teamID string, sequenceNo int) (bool, error) {
	records, err := l.Query(ctx, teamID)
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.QuestionID == sequenceNo && r.IsCorrect {
			return true, nil
		}
	}
	return false, nil
}
