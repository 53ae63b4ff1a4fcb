package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"replypilot/internal/app"
	"replypilot/internal/domain"
	"replypilot/internal/prompt"
)

// ReplyController is the lifecycle surface the handlers drive.
type ReplyController interface {
	Get(ctx context.Context, id string) (domain.Review, error)
	Generate(ctx context.Context, id string) (domain.Review, error)
	Edit(ctx context.Context, id, text string) (domain.Review, error)
	Reject(ctx context.Context, id string) (domain.Review, error)
	Post(ctx context.Context, id, override, actor string) (domain.Review, error)
}

type Handlers struct {
	Replies    ReplyController
	Businesses app.BusinessSource
	Locks      domain.Locker
	LockTTL    time.Duration
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

const maxBody = 64 << 10

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Route("/v1/reviews/{id}", func(r chi.Router) {
		r.Get("/", h.getReview)
		r.Post("/generate", h.generate)
		r.Put("/reply", h.editReply)
		r.Post("/reject", h.reject)
		r.Post("/post", h.post)
	})
	s.mux.Post("/v1/businesses/{id}/template-preview", h.templatePreview)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string, kind domain.ErrorKind) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Kind: string(kind)}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(k domain.ErrorKind) int {
	switch k {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindInvalidTransition, domain.KindConflict:
		return http.StatusConflict
	case domain.KindResolutionGap, domain.KindGenerationRejected, domain.KindPublicationPrecondition:
		return http.StatusUnprocessableEntity
	case domain.KindGenerationTransient, domain.KindGenerationExhausted:
		return http.StatusServiceUnavailable
	case domain.KindPublicationFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	k := domain.KindOf(err)
	status := statusFor(k)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		detail = "internal error"
	}
	writeProblem(w, status, http.StatusText(status), detail, k)
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decodeBody reads an optional JSON body into dst. An empty body is allowed.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Replies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	etag, body := calcETagAndBody(rv)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getReview body")
	}
}

func (h *Handlers) generate(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Replies.Generate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

type textBody struct {
	Text string `json:"text"`
}

func (h *Handlers) editReply(w http.ResponseWriter, r *http.Request) {
	var in textBody
	if err := decodeBody(r, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error(), domain.KindInvalidInput)
		return
	}
	rv, err := h.Replies.Edit(r.Context(), chi.URLParam(r, "id"), in.Text)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) reject(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Replies.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) post(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := strings.TrimSpace(r.Header.Get(ActorHeader))
	if actor == "" {
		writeProblem(w, http.StatusBadRequest, "Missing actor", "X-User-ID header is required", domain.KindInvalidInput)
		return
	}
	var in textBody
	if err := decodeBody(r, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error(), domain.KindInvalidInput)
		return
	}

	release, err := h.Locks.Acquire(r.Context(), app.PostLockKey(id), h.LockTTL)
	if err != nil {
		writeErr(w, err)
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(r.Context())); err != nil {
			log.Warn().Err(err).Str("review_id", id).Msg("release post lock")
		}
	}()

	rv, err := h.Replies.Post(r.Context(), id, in.Text, actor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

type previewBody struct {
	Template string `json:"template"`
}

type previewResponse struct {
	Segments []prompt.Segment `json:"segments"`
	Rendered string           `json:"rendered"`
}

func (h *Handlers) templatePreview(w http.ResponseWriter, r *http.Request) {
	var in previewBody
	if err := decodeBody(r, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error(), domain.KindInvalidInput)
		return
	}
	biz, err := h.Businesses.GetBusiness(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	segs := prompt.Preview(in.Template, biz)
	if segs == nil {
		segs = []prompt.Segment{}
	}
	writeJSON(w, http.StatusOK, previewResponse{Segments: segs, Rendered: prompt.Render(segs)})
}
