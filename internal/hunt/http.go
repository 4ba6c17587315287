package hunt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/photo-hunt/pkg/http/errors"
)

// Acknowledger confirms that the ledger holds a correct submission for a step.
type Acknowledger interface {
	Acknowledged(ctx context.Context, teamID string, sequenceNo int) (bool, error)
}

// HTTPHandlers exposes per-team sequencing and progress.
type HTTPHandlers struct {
	pool    Pool
	store   ProgressStore
	version string
	ack     Acknowledger
	logger  zerolog.Logger
}

// NewHTTPHandlers wires the hunt endpoints. ack gates advancing; it must not be nil.
func NewHTTPHandlers(pool Pool, store ProgressStore, version string, ack Acknowledger, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		pool:    pool,
		store:   store,
		version: version,
		ack:     ack,
		logger:  logger.With().Str("component", "hunt_http").Logger(),
	}
}

// Mount registers the handlers under /api/hunt.
func (h *HTTPHandlers) Mount(r chi.Router) {
	r.Route("/api/hunt/{teamId}", func(r chi.Router) {
		r.Get("/sequence", h.GetSequence)
		r.Get("/progress", h.GetProgress)
		r.Put("/progress", h.PutProgress)
		r.Delete("/progress", h.DeleteProgress)
		r.Post("/check", h.Check)
	})
}

type progressResponse struct {
	TeamID               string `json:"teamId"`
	State                State  `json:"state"`
	Version              string `json:"version"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
	Total                int    `json:"total"`
	OrderIDs             []int  `json:"orderIds"`
	Current              *Step  `json:"current"`
}

type progressRequest struct {
	Action string `json:"action"`
}

type checkRequest struct {
	Answer string `json:"answer"`
}

func (h *HTTPHandlers) session(r *http.Request) (*Session, bool) {
	teamID := strings.TrimSpace(chi.URLParam(r, "teamId"))
	if teamID == "" {
		return nil, false
	}
	return NewSession(teamID, r.URL.Query().Get("teamName"), h.pool, h.store, SessionOptions{
		Version: h.version,
		Logger:  h.logger,
	}), true
}

// GetSequence handles GET /api/hunt/{teamId}/sequence
func (h *HTTPHandlers) GetSequence(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "teamId is required", "teamId")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"teamId": s.TeamID(),
		"policy": s.Policy(),
		"steps":  s.Sequence(),
	})
}

// GetProgress handles GET /api/hunt/{teamId}/progress
func (h *HTTPHandlers) GetProgress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.restored(w, r)
	if !ok {
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, h.progressBody(s))
}

// PutProgress handles PUT /api/hunt/{teamId}/progress. The only action is
// "advance", accepted once the ledger holds a correct submission for the
// current step.
func (h *HTTPHandlers) PutProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Action != "advance" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeUnknownProgressOp, "action must be \"advance\"")
		return
	}

	s, ok := h.restored(w, r)
	if !ok {
		return
	}
	step, ok := s.Current()
	if !ok {
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeHuntCompleted, "Hunt already completed")
		return
	}

	acked, err := h.ack.Acknowledged(r.Context(), s.TeamID(), step.SequenceNo)
	if err != nil {
		h.logger.Error().Err(err).Str("team_id", s.TeamID()).Msg("acknowledgement lookup failed")
		httperrors.RespondInternalError(w, "Failed to check submissions")
		return
	}
	if !acked {
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeNotAcknowledged,
			"No correct submission recorded for the current step")
		return
	}

	if err := s.Advance(r.Context()); err != nil {
		if errors.Is(err, ErrCompleted) {
			httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeHuntCompleted, "Hunt already completed")
			return
		}
		h.logger.Error().Err(err).Str("team_id", s.TeamID()).Msg("failed to persist progress")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeProgressFailed, "Failed to save progress")
		return
	}
	h.logger.Info().Str("team_id", s.TeamID()).Int("index", s.Index()).Msg("team advanced")
	httperrors.RespondJSON(w, http.StatusOK, h.progressBody(s))
}

// DeleteProgress handles DELETE /api/hunt/{teamId}/progress
func (h *HTTPHandlers) DeleteProgress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "teamId is required", "teamId")
		return
	}
	if err := s.Reset(r.Context()); err != nil {
		h.logger.Error().Err(err).Str("team_id", s.TeamID()).Msg("failed to reset progress")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeProgressFailed, "Failed to reset progress")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, h.progressBody(s))
}

// Check handles POST /api/hunt/{teamId}/check. It grades without advancing.
func (h *HTTPHandlers) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "answer is required", "answer")
		return
	}

	s, ok := h.restored(w, r)
	if !ok {
		return
	}
	step, ok := s.Current()
	if !ok {
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeHuntCompleted, "Hunt already completed")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"correct":    s.Check(req.Answer),
		"sequenceNo": step.SequenceNo,
	})
}

func (h *HTTPHandlers) restored(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, ok := h.session(r)
	if !ok {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "teamId is required", "teamId")
		return nil, false
	}
	if err := s.Restore(r.Context()); err != nil {
		h.logger.Error().Err(err).Str("team_id", s.TeamID()).Msg("failed to restore progress")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeProgressFailed, "Failed to load progress")
		return nil, false
	}
	return s, true
}

func (h *HTTPHandlers) progressBody(s *Session) progressResponse {
	seq := s.Sequence()
	resp := progressResponse{
		TeamID:               s.TeamID(),
		State:                s.State(),
		Version:              s.version,
		CurrentQuestionIndex: s.Index(),
		Total:                len(seq),
		OrderIDs:             seq.IDs(),
	}
	if step, ok := s.Current(); ok {
		resp.Current = &step
	}
	return resp
}
