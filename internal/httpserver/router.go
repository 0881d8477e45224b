package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"taskhub/internal/apperr"
	"taskhub/internal/auth"
	"taskhub/internal/respond"
	"taskhub/internal/tasks"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Logger   *slog.Logger
	Respond  *respond.Writer
	Auth     *auth.Service
	Verifier auth.Verifier
	Tasks    *tasks.Controller
	DB       Pinger
}

func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	rw := d.Respond

	r.HandleFunc("/healthz", healthHandler(d.DB, rw)).Methods(http.MethodGet)

	authenticated := auth.Middleware(d.Verifier, rw.Fail)
	adminOnly := auth.RequireRole(rw.Fail, auth.RoleAdmin)

	api := r.PathPrefix("/api").Subrouter()

	// Auth
	ah := &auth.Handler{Service: d.Auth, Respond: rw}
	api.HandleFunc("/auth/register", ah.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", ah.Login).Methods(http.MethodPost)
	api.Handle("/auth/me", authenticated(http.HandlerFunc(ah.Me))).Methods(http.MethodGet)

	// Admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authenticated, adminOnly)
	admin.HandleFunc("/users", ah.ListUsers).Methods(http.MethodGet)

	// Tasks
	th := &tasks.Handler{Controller: d.Tasks, Respond: rw}
	tr := api.PathPrefix("/tasks").Subrouter()
	tr.Use(authenticated)
	tr.HandleFunc("", th.List).Methods(http.MethodGet)
	tr.HandleFunc("", th.Create).Methods(http.MethodPost)
	tr.HandleFunc("/stats", th.Stats).Methods(http.MethodGet)
	tr.HandleFunc("/{id}", th.Get).Methods(http.MethodGet)
	tr.HandleFunc("/{id}", th.Update).Methods(http.MethodPut)
	tr.HandleFunc("/{id}/status", th.UpdateStatus).Methods(http.MethodPatch)
	tr.HandleFunc("/{id}", th.Delete).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rw.Fail(w, req, apperr.NotFound("Route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rw.JSON(w, http.StatusMethodNotAllowed, respond.Envelope{Message: "Method not allowed"})
	})

	return withRequestContext(d.Logger, withRecover(rw, withCORS(r)))
}

func healthHandler(db Pinger, rw *respond.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				rw.Fail(w, r, apperr.Internal("Database unavailable", err))
				return
			}
		}
		rw.OK(w, http.StatusOK, "ok", map[string]string{"status": "ok"})
	}
}
