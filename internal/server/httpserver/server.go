// Package httpserver exposes the portal REST API.
package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/authgate"
	"github.com/Nguyentram30/activity-portal/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services are the application services behind the API.
type Services struct {
	Auth          service.AuthService
	Activities    service.ActivityService
	Users         service.UserService
	Notifications service.NotificationService
	Documents     service.DocumentService
	Reports       service.ReportService
	Settings      service.SettingsService
	CheckIn       service.CheckInService
	Logs          service.LogService
}

// Options tune transport details.
type Options struct {
	// FilesDir is served read-only at /files/. Empty disables it.
	FilesDir       string
	MaxUploadBytes int64
	CookieSecure   bool
	AllowedOrigins []string
	Throttle       ThrottleConfig
	// Registry receives the HTTP metrics and backs /metrics. Nil uses a private registry.
	Registry *prometheus.Registry
	// Ready is probed by /health. Nil reports ready.
	Ready func(ctx context.Context) error
}

// Server wires services into HTTP handlers.
type Server struct {
	svc     Services
	opts    Options
	log     *zap.Logger
	metrics *metrics
}

// New constructs the API server.
func New(svc Services, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Server{svc: svc, opts: opts, log: log, metrics: newMetrics(opts.Registry)}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, Recover(s.log), Logging(s.log), s.metrics.middleware, CORS(s.opts.AllowedOrigins))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))
	if s.opts.FilesDir != "" {
		r.Handle("/files/*", http.StripPrefix("/files/", noListing(http.FileServer(http.Dir(s.opts.FilesDir)))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignUp)
			r.Post("/signin", s.handleSignIn)
			r.Post("/signout", s.handleSignOut)
			r.Post("/refresh", s.handleRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.svc.Auth), newThrottle(s.opts.Throttle, s.metrics).middleware)

			r.Get("/users/me", s.handleMe)
			r.Get("/activities", s.handleListActivities)
			r.Get("/activities/{id}", s.handleGetActivity)
			r.Post("/activities/{id}/feedbacks", s.handleSubmitFeedback)
			r.Post("/registrations", s.handleRegister)
			r.Get("/registrations/me", s.handleMyRegistrations)
			r.Delete("/registrations/{id}", s.handleCancelRegistration)
			r.Post("/registrations/check-in", s.handleCheckIn)
			r.Get("/notifications", s.handleInbox)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRoles(authgate.AdminOnly))
				s.mountBackOffice(r)

				r.Get("/users", s.handleListUsers)
				r.Post("/users", s.handleCreateUser)
				r.Get("/users/{id}", s.handleGetUser)
				r.Put("/users/{id}", s.handleUpdateUser)
				r.Delete("/users/{id}", s.handleDeleteUser)

				r.Post("/activities/{id}/approve", s.handleApprove)
				r.Post("/activities/{id}/reject", s.handleReject)
				r.Post("/activities/{id}/request-edit", s.handleRequestEdit)

				r.Get("/documents", s.handleListDocuments)
				r.Post("/documents", s.handlePublishDocument)
				r.Delete("/documents/{id}", s.handleDeleteDocument)

				r.Get("/logs", s.handleListLogs)
				r.Get("/advanced/features", s.handleListFeatures)
				r.Put("/advanced/features/{key}", s.handleUpdateFeature)
				r.Get("/system/widgets", s.handleListWidgets)
				r.Put("/system/widgets/{key}", s.handleUpdateWidget)
			})

			r.Route("/manager", func(r chi.Router) {
				r.Use(RequireRoles(authgate.ManagerOrAdmin))
				s.mountBackOffice(r)

				r.Put("/registrations/{id}/status", s.handleRegistrationStatus)
				r.Get("/activities/{id}/feedbacks", s.handleListFeedbacks)
				r.Post("/activities/{id}/qr-code", s.handleIssueQRCode)
			})
		})
	})
	return r
}

// mountBackOffice registers the routes shared by the admin and manager areas.
func (s *Server) mountBackOffice(r chi.Router) {
	r.Get("/activities", s.handleListManaged)
	r.Post("/activities", s.handleCreateActivity)
	r.Get("/activities/{id}", s.handleGetManaged)
	r.Put("/activities/{id}", s.handleUpdateActivity)
	r.Delete("/activities/{id}", s.handleDeleteActivity)

	r.Get("/students", s.handleStudents)
	r.Get("/students/export", s.handleExportStudents)

	r.Get("/notifications", s.handleListNotifications)
	r.Post("/notifications", s.handleCreateNotification)
	r.Put("/notifications/{id}", s.handleUpdateNotification)
	r.Delete("/notifications/{id}", s.handleDeleteNotification)
	r.Post("/notifications/{id}/schedule", s.handleScheduleNotification)

	r.Get("/reports/summary", s.handleReportSummary)
	r.Get("/reports/export", s.handleReportExport)
	r.Get("/dashboard", s.handleDashboard)
	r.Post("/upload", s.handleUpload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// noListing hides directory indexes.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actor(r *http.Request) service.Actor {
	a, _ := ActorFromCtx(r.Context())
	return a
}

// respond writes v with status, or the mapped error.
func (s *Server) respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		writeServiceError(w, s.log, err)
		return
	}
	if v == nil {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, v)
}
