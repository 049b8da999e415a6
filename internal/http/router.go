package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"remindd/internal/auth"
	"remindd/internal/config"
	"remindd/internal/http/handler"
	mw "remindd/internal/http/middleware"
	"remindd/internal/notify"
)

// Deps are the shared components the handlers need; main wires them once and
// hands the same instances to the scheduler and worker.
type Deps struct {
	DB        *gorm.DB
	JWT       *auth.JWT
	Prefs     *notify.PreferenceStore
	Trackers  *notify.TrackerStore
	Evaluator *notify.Evaluator
	Service   *notify.Service
	Log       *slog.Logger
}

func NewRouter(cfg config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: deps.DB, JWT: deps.JWT, Notify: deps.Service, Log: deps.Log}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: deps.DB}
	r.With(auth.RequireAuth(deps.JWT)).Get("/me", me.Me)

	ph := &handler.PrefsHandler{Prefs: deps.Prefs}
	nh := &handler.NotificationsHandler{DB: deps.DB}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.JWT))

		r.Get("/preferences", ph.Get)
		r.Put("/preferences", ph.Update)

		r.Get("/notifications", nh.List)
	})

	adm := &handler.AdminHandler{
		DB:               deps.DB,
		Evaluator:        deps.Evaluator,
		Service:          deps.Service,
		Trackers:         deps.Trackers,
		Log:              deps.Log,
		LogRetentionDays: cfg.LogRetentionDays,
		Location:         cfg.Location,
	}
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.JWT))

		r.Post("/run/deadline-pass", adm.RunDeadlinePass)
		r.Post("/run/overdue-pass", adm.RunOverduePass)
		r.Post("/run/digest-pass", adm.RunDigestPass)
		r.Post("/run/cleanup", adm.RunCleanup)
		r.Get("/stats", adm.Stats)
	})

	return r
}
