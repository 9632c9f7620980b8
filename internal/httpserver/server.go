package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/growthspect/contact-intake/internal/config"
	"github.com/growthspect/contact-intake/internal/core"
	"github.com/growthspect/contact-intake/internal/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/message"
)

// Server exposes the contact intake endpoint over HTTP
type Server struct {
	service *core.IntakeService
	loc     *i18n.Localizer
	logger  *zap.Logger
	srvCfg  config.ServerConfig
	cors    config.CORSConfig
	httpSrv *http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	service *core.IntakeService,
	loc *i18n.Localizer,
	logger *zap.Logger,
	srvCfg config.ServerConfig,
	cors config.CORSConfig,
) *Server {
	s := &Server{
		service: service,
		loc:     loc,
		logger:  logger,
		srvCfg:  srvCfg,
		cors:    cors,
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Route("/contact", func(r chi.Router) {
		r.Use(s.corsMiddleware)
		// All methods land here; anything but POST and the preflight
		// answered by the middleware gets a 405.
		r.HandleFunc("/", s.handleContact)
	})

	s.httpSrv = &http.Server{
		Addr:         srvCfg.ListenAddress,
		Handler:      r,
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
	}
	return s
}

// Handler returns the server's root handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start starts listening in the background
func (s *Server) Start() error {
	s.logger.Info("Contact intake server starting", zap.String("address", s.srvCfg.ListenAddress))
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.srvCfg.ShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

// successResponse is the JSON envelope for accepted submissions.
// InternalNotified is only present when the team notice did not go out
// after the acknowledgment already had.
type successResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	InternalNotified *bool  `json:"internalNotified,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	p := s.loc.Printer(r.Header.Get("Accept-Language"))

	r.Body = http.MaxBytesReader(w, r.Body, int64(s.srvCfg.MaxBodyBytes))
	var req core.SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: p.Sprintf(i18n.InvalidBody)})
		return
	}

	clientID := s.clientIdentity(r)
	result, err := s.service.Process(r.Context(), clientID, &req)
	if err != nil {
		s.writeError(w, p, clientID, err)
		return
	}

	resp := successResponse{Success: true, Message: p.Sprintf(i18n.Confirmation)}
	if !result.Dropped && !result.InternalNotified {
		notified := false
		resp.InternalNotified = &notified
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeError maps the intake error taxonomy onto HTTP responses. Only
// the rejection kind reaches the caller; dispatch detail stays in the
// server log.
func (s *Server) writeError(w http.ResponseWriter, p *message.Printer, clientID string, err error) {
	var validationErr *core.ValidationError
	var rateErr *core.RateLimitError
	var dispatchErr *core.DispatchError

	switch {
	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", strconv.Itoa(int(rateErr.RetryAfter/time.Second)+1))
		s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: p.Sprintf(i18n.RateLimited)})
	case errors.As(err, &validationErr):
		msg := p.Sprintf(i18n.MissingField, validationErr.Field)
		if validationErr.Reason == core.ReasonInvalidEmailFormat {
			msg = p.Sprintf(i18n.InvalidEmail)
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
	case errors.As(err, &dispatchErr):
		s.logger.Error("Mail dispatch failed",
			zap.String("client_id", clientID),
			zap.String("stage", dispatchErr.Stage),
			zap.Error(dispatchErr.Err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: p.Sprintf(i18n.InternalError)})
	default:
		s.logger.Error("Unexpected intake error",
			zap.String("client_id", clientID),
			zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: p.Sprintf(i18n.InternalError)})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
