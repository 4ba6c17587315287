package submission

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/photo-hunt/pkg/http/errors"
)

const maxResetBodyBytes = 64 << 10

// HTTPHandlers exposes the ledger over HTTP.
type HTTPHandlers struct {
	decoder    Decoder
	ledger     *Ledger
	files      *FilePhotoStore
	adminToken string
	bodyLimit  int64
	logger     zerolog.Logger
}

// HandlerOptions configures HTTPHandlers. Files may be nil when photos are
// stored inline; /uploads/ then always answers 404.
type HandlerOptions struct {
	Files      *FilePhotoStore
	AdminToken string
	BodyLimit  int64
}

func NewHTTPHandlers(decoder Decoder, ledger *Ledger, opts HandlerOptions, logger zerolog.Logger) *HTTPHandlers {
	limit := opts.BodyLimit
	if limit <= 0 {
		limit = DefaultLimits().Body
	}
	return &HTTPHandlers{
		decoder:    decoder,
		ledger:     ledger,
		files:      opts.Files,
		adminToken: opts.AdminToken,
		bodyLimit:  limit,
		logger:     logger.With().Str("component", "submission_http").Logger(),
	}
}

// Mount registers the submission, reset and upload routes.
func (h *HTTPHandlers) Mount(r chi.Router) {
	r.Post("/api/submissions", h.Submit)
	r.Get("/api/submissions", h.List)
	r.Post("/api/admin/reset-submissions", h.Reset)
	r.Get("/uploads/*", h.ServeUpload)
}

// Submit handles POST /api/submissions
func (h *HTTPHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.bodyLimit)

	payload, err := h.decoder.Decode(r)
	if err != nil {
		h.ledger.metrics.rejected(rejectReason(err))
		h.respondSubmitError(w, err)
		return
	}
	in, err := BuildInput(payload, h.ledger.now())
	if err != nil {
		h.ledger.metrics.rejected(rejectReason(err))
		h.respondSubmitError(w, err)
		return
	}

	rec, err := h.ledger.Submit(r.Context(), in)
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"record":  rec,
	})
}

func (h *HTTPHandlers) respondSubmitError(w http.ResponseWriter, err error) {
	var (
		validation *ValidationError
		decode     *DecodeError
		tooLarge   *PayloadTooLargeError
	)
	switch {
	case errors.As(err, &validation):
		code := httperrors.ErrCodeValidationFailed
		if strings.HasPrefix(validation.Message, "Missing field") {
			code = httperrors.ErrCodeMissingField
		}
		httperrors.RespondValidationError(w, code, validation.Message, validation.Field)
	case errors.As(err, &tooLarge):
		httperrors.RespondPayloadTooLarge(w, "Payload too large")
	case errors.As(err, &decode):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidPayload, decode.Message)
	default:
		h.logger.Error().Err(err).Msg("failed to save submission")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSubmitFailed, "Failed to save submission")
	}
}

// List handles GET /api/submissions?teamId=
func (h *HTTPHandlers) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.Query(r.Context(), strings.TrimSpace(r.URL.Query().Get("teamId")))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read submissions")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeListFailed, "Failed to read submissions")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, records)
}

// Reset handles POST /api/admin/reset-submissions. The token may come in a
// JSON body, a form body or the query string.
func (h *HTTPHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	if h.adminToken != "" {
		token := resetToken(r)
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			h.logger.Warn().Str("remote", r.RemoteAddr).Msg("reset rejected: bad token")
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Invalid admin token")
			return
		}
	}

	if err := h.ledger.ResetAll(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to reset submissions")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeResetFailed, "Failed to reset submissions")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "All submissions and photos have been cleared",
	})
}

func resetToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxResetBodyBytes))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return ""
		}
		return values.Get("token")
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	return req.Token
}

// ServeUpload handles GET /uploads/{file}
func (h *HTTPHandlers) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Forbidden")
		return
	}
	if h.files == nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodePhotoNotFound, "Not Found")
		return
	}

	f, info, err := h.files.Open(name)
	switch {
	case errors.Is(err, ErrForbiddenPath):
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Forbidden")
		return
	case err != nil:
		httperrors.RespondNotFound(w, httperrors.ErrCodePhotoNotFound, "Not Found")
		return
	}
	defer f.Close()

	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(info.Name()))); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
