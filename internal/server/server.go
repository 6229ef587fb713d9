// Package server exposes the message store over HTTP for the chat client.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tOgg1/reperage/internal/logging"
	"github.com/tOgg1/reperage/internal/models"
	"github.com/tOgg1/reperage/internal/store"
)

// MessageStore is the persistence the handlers need.
type MessageStore interface {
	CreateReport(ctx context.Context, title, fixerName string) (models.Report, error)
	GetReport(ctx context.Context, id int64) (models.Report, error)
	ListMessages(ctx context.Context, reportID int64) ([]models.Message, error)
	CreateMessage(ctx context.Context, reportID int64, in models.NewMessage) (models.Message, error)
	MarkRead(ctx context.Context, messageID int64) (models.Message, error)
	UnreadCount(ctx context.Context, reportID int64, perspective models.Perspective) (int, error)
}

// Server holds the HTTP handlers.
type Server struct {
	store  MessageStore
	logger zerolog.Logger
}

// New creates a Server over the given store.
func New(s MessageStore) *Server {
	return &Server{
		store:  s,
		logger: logging.Component("server"),
	}
}

// Router builds the chi router with every route mounted under /api.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger, 500*time.Millisecond))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/reperages", s.createReport)
		r.Route("/reperages/{reportID}", func(r chi.Router) {
			r.Get("/", s.getReport)
			r.Get("/messages", s.listMessages)
			r.Post("/messages", s.createMessage)
			r.Get("/messages/unread-count", s.unreadCount)
		})
		r.Put("/messages/{messageID}/read", s.markRead)
	})
	return r
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title     string `json:"titre"`
		FixerName string `json:"fixer_nom"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := s.store.CreateReport(r.Context(), req.Title, req.FixerName)
	if err != nil {
		s.fail(w, r, "create report", err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "reportID")
	if !ok {
		return
	}
	report, err := s.store.GetReport(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "reportID")
	if !ok {
		return
	}
	msgs, err := s.store.ListMessages(r.Context(), id)
	if err != nil {
		s.fail(w, r, "list messages", err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "reportID")
	if !ok {
		return
	}
	var req models.NewMessage
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, err := s.store.CreateMessage(r.Context(), id, req)
	if err != nil {
		s.fail(w, r, "create message", err)
		return
	}
	logger := logging.FromContext(r.Context())
	logger.Debug().
		Int64("report_id", id).
		Str("author_type", string(msg.AuthorType)).
		Int64("message_id", msg.ID).
		Msg("message stored")
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "messageID")
	if !ok {
		return
	}
	msg, err := s.store.MarkRead(r.Context(), id)
	if err != nil {
		s.fail(w, r, "mark read", err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "reportID")
	if !ok {
		return
	}
	perspective := models.AuthorFixer
	if raw := strings.TrimSpace(r.URL.Query().Get("for")); raw != "" {
		parsed, err := models.ParseAuthorType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "for must be fixer or production")
			return
		}
		perspective = parsed
	}
	count, err := s.store.UnreadCount(r.Context(), id, perspective)
	if err != nil {
		s.fail(w, r, "unread count", err)
		return
	}
	writeJSON(w, http.StatusOK, models.UnreadCount{Count: count})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, store.ErrReportNotFound):
		writeError(w, http.StatusNotFound, "Repérage non trouvé")
	case errors.Is(err, store.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "Message non trouvé")
	case errors.Is(err, store.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger := logging.FromContext(r.Context())
		logger.Error().
			Err(err).
			Str("op", op).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
