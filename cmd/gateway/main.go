package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/api/http"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/audit"
	auth "github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/auth/middleware"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/config"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/db"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/rbac"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/storage"
	syncx "github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub003/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := audit.NewSQLStore(dbh, cfg.DBDriver)
	events := syncx.NewEventRepo(dbh)

	// Live timers for in-progress sessions; torn down on shutdown so no
	// ticker outlives its session.
	timers := audit.NewTimerRegistry(rootCtx)
	defer timers.StopAll()

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)
	users := map[string]auth.User{
		cfg.AdminUser: {PassHash: cfg.AdminPassHash, Role: "admin"},
	}

	// --- Evidence blobs ---
	var bs storage.BlobStore
	switch cfg.BlobDriver {
	case "minio":
		bs, err = storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioRegion, cfg.MinioBucket,
			cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	default:
		bs, err = storage.NewFSStore(cfg.BlobBasePath)
	}
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, users))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Manager-only: author templates
		pr.With(rbac.Require("template:create")).
			Post("/templates", api.PutTemplateHandler(store))
		pr.With(rbac.Require("template:view")).
			Get("/templates", api.ListTemplatesHandler(store))
		pr.With(rbac.Require("template:view")).
			Get("/templates/{templateID}", api.GetTemplateHandler(store))

		// Auditor flow
		pr.With(rbac.Require("session:create")).
			Post("/sessions", api.CreateSessionHandler(store, timers, events))
		pr.With(rbac.RequireAny("session:view-own", "session:view-all")).
			Get("/sessions", api.ListSessionsHandler(store))
		pr.With(rbac.RequireOwnerOr("session:view-all", ownsSession(store))).
			Get("/sessions/{sessionID}", api.GetSessionHandler(store, timers))
		pr.With(rbac.Require("session:save")).
			Post("/sessions/{sessionID}/responses", api.SaveResponsesHandler(store))
		pr.With(rbac.Require("session:navigate")).
			Post("/sessions/{sessionID}/advance", api.AdvanceHandler(store))
		pr.With(rbac.Require("session:navigate")).
			Post("/sessions/{sessionID}/retreat", api.RetreatHandler(store))
		pr.With(rbac.Require("session:navigate")).
			Post("/sessions/{sessionID}/jump", api.JumpHandler(store))
		pr.With(rbac.Require("session:save")).
			Post("/sessions/{sessionID}/pause", api.PauseHandler(store, timers))
		pr.With(rbac.Require("session:save")).
			Post("/sessions/{sessionID}/resume", api.ResumeHandler(store, timers))
		pr.With(rbac.RequireAny("session:view-own", "session:view-all")).
			Get("/sessions/{sessionID}/progress", api.ProgressHandler(store, timers))
		pr.With(rbac.Require("session:finalize")).
			Post("/sessions/{sessionID}/finalize", api.FinalizeHandler(store, timers, events))

		pr.Route("/evidence", func(er chi.Router) {
			er.With(rbac.Require("evidence:upload")).Post("/", api.UploadEvidenceHandler(bs))
			er.With(rbac.Require("evidence:view")).Get("/{key}", api.GetEvidenceHandler(bs))
			er.With(rbac.Require("evidence:view")).Get("/{key}/url", api.SignedURLHandler(bs))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		<-rootCtx.Done()
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		_ = srv.Shutdown(shCtx)
	}()

	log.Printf("listening on %s (mode=%s, db=%s, blob=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.BlobDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// ownsSession compares the authenticated subject with the session's
// user id so auditors can read their own sessions without view-all.
func ownsSession(store audit.Store) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		id := chi.URLParam(r, "sessionID")
		if id == "" {
			return false
		}
		s, err := store.GetSession(id)
		if err != nil {
			return false
		}
		return s.UserID == auth.SubjectFromContext(r.Context())
	}
}
