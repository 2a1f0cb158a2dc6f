package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/infra/logging"
	"fermi-notifier/internal/infra/metrics"
	"fermi-notifier/internal/usecase"
)

// Server exposes the pipeline trigger and the operational endpoints.
type Server struct {
	pipeline  usecase.PipelineUseCase
	submitter usecase.Submitter
	log       *zerolog.Logger
}

// NewServer wires the handlers. submitter may be nil, which disables ?async=true.
func NewServer(pipeline usecase.PipelineUseCase, submitter usecase.Submitter, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "API").Logger()
	return &Server{pipeline: pipeline, submitter: submitter, log: &compLog}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Post("/", s.handleTrigger)
	r.Post("/trigger", s.handleTrigger)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

type acceptedResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	// A started run finishes under its own deadline even if the caller hangs up.
	ctx := context.WithoutCancel(r.Context())

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		if s.submitter == nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "async triggers are not enabled", Reason: "BadRequest"})
			return
		}
		runID, err := s.pipeline.RunAsync(ctx, s.submitter)
		switch {
		case errors.Is(err, domain.ErrBusy):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Reason: domain.Reason(err)})
		case err != nil:
			log.Error().Err(err).Msg("could not queue run")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Reason: "Unavailable"})
		default:
			writeJSON(w, http.StatusAccepted, acceptedResponse{RunID: runID, Status: "accepted"})
		}
		return
	}

	res, err := s.pipeline.Run(ctx)
	if errors.Is(err, domain.ErrBusy) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Reason: domain.Reason(err)})
		return
	}
	if res == nil {
		writeJSON(w, StatusFor(err), errorResponse{Error: errString(err), Reason: domain.Reason(err)})
		return
	}
	writeJSON(w, StatusFor(err), res)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Status())
}

// StatusFor maps a run outcome to the HTTP status returned to the trigger caller.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrGenerationInvalid),
		errors.Is(err, domain.ErrGenerationRejected),
		errors.Is(err, domain.ErrGenerationTransient),
		errors.Is(err, domain.ErrNotificationRejected),
		errors.Is(err, domain.ErrNotificationTransient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
