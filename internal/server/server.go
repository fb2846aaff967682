package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CatalogSync/internal/config"
	"CatalogSync/internal/logger"
	"CatalogSync/internal/metrics"
	"CatalogSync/internal/model"
	"CatalogSync/internal/notifier"
	"CatalogSync/internal/pipeline"
	"CatalogSync/internal/scheduler"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Trigger runs syncs on demand and reports scheduling state.
type Trigger interface {
	RunNow(ctx context.Context) (*model.RunResult, error)
	Status() scheduler.Status
}

// Server is the inbound HTTP API.
type Server struct {
	trigger         Trigger
	notifier        notifier.Notifier
	integrationName string
	log             *logger.Logger
	http            *http.Server
}

func New(addr, integrationName string, t Trigger, n notifier.Notifier, log *logger.Logger) *Server {
	s := &Server{
		trigger:         t,
		notifier:        n,
		integrationName: integrationName,
		log:             log.With("http"),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.health)
	r.Get("/status", s.status)
	r.Post("/run-now", s.runNow)
	r.Post("/test-email", s.testEmail)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// ListenAndServe blocks until the server stops. It returns nil after a
// graceful Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordRequest(r.Method, route, status)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.trigger.Status())
}

type runFailure struct {
	Error   string           `json:"error"`
	Stage   model.Stage      `json:"stage,omitempty"`
	Message string           `json:"message"`
	Result  *model.RunResult `json:"result,omitempty"`
}

func (s *Server) runNow(w http.ResponseWriter, r *http.Request) {
	// The run outlives a disconnected client.
	res, err := s.trigger.RunNow(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, runFailure{Error: "Run already in progress", Message: err.Error()})
	case err != nil:
		stage, _ := pipeline.AbortedStage(err)
		s.log.Error().Err(err).Str("stage", string(stage)).Msg("manual run failed")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, runFailure{Error: "Job execution failed", Stage: stage, Message: err.Error(), Result: res})
	default:
		render.JSON(w, r, res)
	}
}

type testEmailResponse struct {
	OK      bool              `json:"ok"`
	Summary *notifier.Summary `json:"summary,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func (s *Server) testEmail(w http.ResponseWriter, r *http.Request) {
	raw, err := rawQueryValues(r.URL.RawQuery, "to")
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, testEmailResponse{OK: false, Error: err.Error()})
		return
	}
	to := config.SplitList(strings.Join(raw, ","))
	summary, err := s.notifier.Send(r.Context(), notifier.TestMessage(s.integrationName, to))
	if err != nil {
		s.log.Warn().Err(err).Msg("test email failed")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, testEmailResponse{OK: false, Error: err.Error()})
		return
	}
	render.JSON(w, r, testEmailResponse{OK: true, Summary: &summary})
}

// rawQueryValues returns every value of key in query. Unlike url.ParseQuery
// it only splits on '&', so semicolon separated lists survive.
func rawQueryValues(query, key string) ([]string, error) {
	var out []string
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid query parameter %q: %w", pair, err)
		}
		if k != key {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		out = append(out, val)
	}
	return out, nil
}
