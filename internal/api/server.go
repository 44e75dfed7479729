// ABOUTME: HTTP server struct, constructor, and handler wiring for the project manager.
// ABOUTME: Holds auth dependencies (store, config, mailer, argon2 semaphore) used by handlers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/pantharshit007/pms/internal/auth"
	"github.com/pantharshit007/pms/internal/config"
	"github.com/pantharshit007/pms/internal/notify"
	"github.com/pantharshit007/pms/internal/storage"
	"github.com/pantharshit007/pms/internal/store"
)

// Server holds the dependencies for the HTTP layer.
type Server struct {
	store       *store.Store
	cfg         *config.Config
	mailer      *notify.Mailer
	objects     storage.ObjectStorage // nil when S3 is not configured
	sealKey     []byte
	argon2Sem   chan struct{}
	rateLimiter *ipRateLimiter
}

// NewServer creates a Server. Returns an error if the signup seal key is
// malformed or the S3 client cannot be built. If cfg.S3Bucket is empty,
// attachment uploads are disabled.
func NewServer(ctx context.Context, s *store.Store, cfg *config.Config) (*Server, error) {
	sealKey, err := auth.DecodeSealKey(cfg.SignupSealKey)
	if err != nil {
		return nil, fmt.Errorf("signup seal key: %w", err)
	}

	sem := make(chan struct{}, cfg.Argon2MaxConcurrent)
	evictTTL := cfg.RateLimitEvictTTL
	if evictTTL == 0 {
		evictTTL = 15 * time.Minute
	}
	// 10 requests per minute, burst of 10.
	rl := newIPRateLimiter(rate.Limit(10.0/60), 10, evictTTL)

	srv := &Server{
		store: s,
		cfg:   cfg,
		mailer: notify.NewMailer(s, notify.SmtpConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			TLS:      cfg.SMTPTLS,
		}),
		sealKey:     sealKey,
		argon2Sem:   sem,
		rateLimiter: rl,
	}

	if cfg.S3Bucket != "" {
		objects, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			Endpoint:       cfg.S3Endpoint,
			AccessKeyID:    cfg.S3AccessKeyID,
			SecretKey:      cfg.S3SecretKey,
			BaseURL:        cfg.S3BaseURL,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		srv.objects = objects
	}

	return srv, nil
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	var db *pgxpool.Pool
	if srv.store != nil {
		db = srv.store.Pool()
	}
	r := chi.NewRouter()

	// ── Security headers ──────────────────────────────────────────────────────
	// Must be first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// ── Standard chi middleware ───────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// 10 MB global body limit — attachments upload as multipart through this
	// router; everything else is small JSON.
	r.Use(middleware.RequestSize(10 << 20))
	r.Use(middleware.Recoverer)
	r.Use(csrfProtect)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", healthzHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// ── API v1 sub-router with huma (OpenAPI 3.1) for the auth surface ────────
	apiRouter := chi.NewRouter()
	humaConfig := huma.DefaultConfig("Project Manager API", "0.1.0")
	humaConfig.Info.Description = "Project, task, and team management API"
	api := humachi.New(apiRouter, humaConfig)
	api.UseMiddleware(srv.authRateLimit(api))
	registerAuthRoutes(api, srv)

	// ── Project routes (chi, not huma, for per-group membership middleware) ──
	apiRouter.Route("/projects", func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		r.Post("/", srv.createProjectHandler)
		r.Get("/", srv.listMyProjectsHandler)
		r.Get("/all", srv.listAllProjectsHandler)

		r.Route("/{project_id}", func(r chi.Router) {
			r.Use(srv.RequireProjectMember())
			r.Get("/", srv.getProjectHandler)
			r.Patch("/", srv.updateProjectHandler)
			r.Delete("/", srv.deleteProjectHandler)

			// Member management
			r.Route("/members", func(r chi.Router) {
				r.Get("/", srv.listMembersHandler)
				r.Post("/", srv.addMemberHandler)
				r.Patch("/{user_id}", srv.updateMemberRoleHandler)
				r.Delete("/{user_id}", srv.removeMemberHandler)
			})

			// Tasks and their subtasks
			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", srv.createTaskHandler)
				r.Get("/", srv.listTasksHandler)
				r.Route("/{task_id}", func(r chi.Router) {
					r.Get("/", srv.getTaskHandler)
					r.Patch("/", srv.updateTaskHandler)
					r.Delete("/", srv.deleteTaskHandler)
					r.Patch("/status", srv.updateTaskStatusHandler)
					r.Post("/attachments", srv.uploadAttachmentsHandler)

					r.Route("/subtasks", func(r chi.Router) {
						r.Post("/", srv.createSubTaskHandler)
						r.Get("/", srv.listSubTasksHandler)
						r.Route("/{subtask_id}", func(r chi.Router) {
							r.Get("/", srv.getSubTaskHandler)
							r.Patch("/", srv.updateSubTaskHandler)
							r.Delete("/", srv.deleteSubTaskHandler)
							r.Post("/complete", srv.completeSubTaskHandler)
						})
					})
				})
			})

			// Notes
			r.Route("/notes", func(r chi.Router) {
				r.Post("/", srv.createNoteHandler)
				r.Get("/", srv.listNotesHandler)
				r.Route("/{note_id}", func(r chi.Router) {
					r.Get("/", srv.getNoteHandler)
					r.Patch("/", srv.updateNoteHandler)
					r.Delete("/", srv.deleteNoteHandler)
				})
			})
		})
	})

	// ── Cross-project "mine" listings ─────────────────────────────────────────
	apiRouter.Group(func(r chi.Router) {
		r.Use(srv.RequireAuthenticated())
		r.Get("/me/tasks", srv.listMyTasksHandler)
		r.Get("/me/subtasks", srv.listMySubTasksHandler)
		r.Get("/me/notes", srv.listMyNotesHandler)
	})

	r.Mount("/api/v1", apiRouter)

	return r
}

// acquireArgon2 tries to acquire the argon2 semaphore. Returns false if all
// slots are in use — the caller should return 503 immediately (do NOT block).
func (srv *Server) acquireArgon2() bool {
	select {
	case srv.argon2Sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (srv *Server) releaseArgon2() { <-srv.argon2Sem }

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// healthzHandler returns 200 {"status":"ok"} when the DB is reachable,
// or 503 {"status":"degraded","db":"unavailable"} when it is not.
func healthzHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		statusCode := http.StatusOK

		if db == nil {
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		} else if err := db.Ping(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "healthz: db ping failed", "error", err)
			resp.Status = "degraded"
			resp.DB = "unavailable"
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.ErrorContext(r.Context(), "healthz: failed to encode response", "error", err)
		}
	}
}
