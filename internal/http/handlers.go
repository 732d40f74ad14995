package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"healthmate/internal/core"
	"healthmate/pkg"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Sessions        *core.Registry
	DefaultLanguage pkg.Language
	MaxUploadBytes  int64
	Logger          zerolog.Logger

	router chi.Router
}

// NewServer constructs a Server and its routes.
func NewServer(sessions *core.Registry, lang pkg.Language, maxUpload int64, logger zerolog.Logger) *Server {
	s := &Server{
		Sessions:        sessions,
		DefaultLanguage: lang,
		MaxUploadBytes:  maxUpload,
		Logger:          logger.With().Str("component", "http").Logger(),
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/messages", s.handlePostMessage)
			r.Post("/hospitals", s.handleFindHospitals)
			r.Put("/language", s.handleSetLanguage)
		})
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSessionError maps core errors to status codes.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return sess, true
}

// dispatchContext detaches a request context from client cancellation.
// Once a model call is issued it runs to completion so the transcript never
// ends up with a user turn and no reply.
func dispatchContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

type languageRequest struct {
	Language string `json:"language"`
}

// decodeLanguage reads an optional {"language": "..."} body.
func (s *Server) decodeLanguage(r *http.Request, fallback pkg.Language) (pkg.Language, error) {
	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", errors.New("invalid JSON body")
	}
	if req.Language == "" {
		return fallback, nil
	}
	lang, ok := pkg.ParseLanguage(req.Language)
	if !ok {
		return "", errors.New("unsupported language")
	}
	return lang, nil
}

// handleCreateSession creates a new session and returns it with its
// welcome turn.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	lang, err := s.decodeLanguage(r, s.DefaultLanguage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := s.Sessions.Create(lang)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// handleGetSession returns the transcript and the loading flag.  Clients
// disable their send and find-hospitals controls while loading is true.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type turnsResponse struct {
	Turns []pkg.Turn `json:"turns"`
}

// handlePostMessage processes a user message from a multipart or url
// encoded form: content, optional file, optional lat and lon.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(s.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	att, err := readAttachment(r, s.MaxUploadBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turns, err := sess.Send(dispatchContext(r), r.FormValue("content"), att, formLocator(r))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnsResponse{Turns: turns})
}

type hospitalsRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// handleFindHospitals runs an explicit hospital lookup.  Omitting the
// coordinates means the device location is unavailable.
func (s *Server) handleFindHospitals(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req hospitalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var loc core.Locator
	if req.Latitude != nil && req.Longitude != nil {
		loc = core.NewFixedLocator(*req.Latitude, *req.Longitude)
	}
	turn, err := sess.FindHospitals(dispatchContext(r), loc)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnsResponse{Turns: []pkg.Turn{turn}})
}

// handleSetLanguage switches language and resets the transcript.
func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	lang, err := s.decodeLanguage(r, "")
	if err != nil || lang == "" {
		writeError(w, http.StatusBadRequest, "language is required")
		return
	}
	if err := sess.SetLanguage(lang); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// formLocator builds a locator from lat and lon form values.  Missing or
// malformed values mean no location.
func formLocator(r *http.Request) core.Locator {
	lat, err1 := strconv.ParseFloat(r.FormValue("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.FormValue("lon"), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return core.NewFixedLocator(lat, lon)
}
