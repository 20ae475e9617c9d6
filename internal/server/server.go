// Package server is the HTTP presentation adapter over sessions and the
// conversion pipeline.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/config"
	"github.com/amrsdek/MedMate-App/internal/feedback"
	"github.com/amrsdek/MedMate-App/internal/instructions"
	"github.com/amrsdek/MedMate-App/internal/metrics"
	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/internal/pipeline"
	"github.com/amrsdek/MedMate-App/internal/session"
)

// Runner executes conversions.
type Runner interface {
	Run(ctx context.Context, batch model.Batch, instr model.Instructions, mode model.Mode, opts ...pipeline.RunOption) (*model.AccumulatedDocument, error)
	RemoteEnabled() bool
}

// FeedbackSubmitter accepts user comments.
type FeedbackSubmitter interface {
	Submit(ctx context.Context, c *model.Comment) (*feedback.Result, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Sessions *session.Manager
	Runner   Runner
	Catalog  *instructions.Catalog
	Feedback FeedbackSubmitter
	Metrics  *metrics.Metrics
}

// Server serves the conversion API.
type Server struct {
	cfg      config.ServerConfig
	sessions *session.Manager
	runner   Runner
	catalog  *instructions.Catalog
	feedback FeedbackSubmitter
	metrics  *metrics.Metrics
	limiter  *ipLimiter

	// runCtx outlives requests; cancelled by Close.
	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a Server.
func New(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Sessions == nil {
		deps.Sessions = session.NewManager()
	}
	if deps.Catalog == nil {
		deps.Catalog = instructions.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		sessions:  deps.Sessions,
		runner:    deps.Runner,
		catalog:   deps.Catalog,
		feedback:  deps.Feedback,
		metrics:   deps.Metrics,
		limiter:   newIPLimiter(cfg.UploadsPerMinute),
		runCtx:    ctx,
		cancelRun: cancel,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"remote_enabled": s.runner != nil && s.runner.RemoteEnabled(),
		})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Post("/feedback", s.handleFeedback)
		r.Post("/sessions", s.handleCreateSession)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Get("/", s.handleGetSession)
			r.With(s.rateLimit).Post("/convert", s.handleConvert)
			r.With(s.rateLimit).Post("/retry-local", s.handleRetryLocal)
			r.Put("/text", s.handleSetText)
			r.Get("/status/ws", s.handleStatusWS)
			r.Get("/document.docx", s.handleDocx)
			r.Get("/tables.xlsx", s.handleXlsx)
			r.Get("/preview", s.handlePreview)
		})
	})
	return r
}

// Close cancels in-flight runs and waits for them to record their outcome.
func (s *Server) Close(timeout time.Duration) {
	s.cancelRun()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		zap.L().Warn("server: runs still in progress at shutdown")
	}
}

// Wait blocks until every background run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// start runs the conversion in the background.
func (s *Server) start(sess *session.Session, batch model.Batch, instr model.Instructions, title string, mode model.Mode) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var (
			doc *model.AccumulatedDocument
			err error
		)
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("server: run panicked", zap.String("session", sess.ID), zap.Any("panic", rec))
				err = errRunPanicked
			}
			if doc == nil {
				doc = model.NewDocument(title)
			}
			sess.Finish(doc, err)
		}()
		doc, err = s.runner.Run(s.runCtx, batch, instr, mode,
			pipeline.WithSession(sess.ID),
			pipeline.WithTitle(title),
			pipeline.WithStatus(func(st model.Status) {
				// Finish publishes the terminal status once the outcome is stored.
				if !st.Terminal() {
					sess.Publish(st)
				}
			}),
		)
	}()
}

type sessionKey struct{}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionKey{}).(*session.Session)
	return sess
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
