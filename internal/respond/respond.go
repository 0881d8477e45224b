package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"taskhub/internal/apperr"
	"taskhub/internal/logging"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Count   *int     `json:"count,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type Writer struct {
	Logger       *slog.Logger
	ExposeErrors bool
}

func NewWriter(logger *slog.Logger, exposeErrors bool) *Writer {
	return &Writer{Logger: logger, ExposeErrors: exposeErrors}
}

func (rw *Writer) JSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func (rw *Writer) OK(w http.ResponseWriter, status int, message string, data any) {
	rw.JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

func (rw *Writer) List(w http.ResponseWriter, message string, data any, count int) {
	rw.JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data, Count: &count})
}

// Fail renders err according to its apperr kind. Internal failures are
// logged; their cause is echoed only when ExposeErrors is set.
func (rw *Writer) Fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	env := Envelope{Success: false, Message: "Internal Server Error"}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		env.Message = ae.Message
		env.Errors = ae.Details
	}

	if kind == apperr.KindInternal {
		logging.FromContext(r.Context(), rw.Logger).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		if rw.ExposeErrors {
			env.Error = diagnostic(err, ae)
		}
	}
	rw.JSON(w, apperr.Status(kind), env)
}

func diagnostic(err error, ae *apperr.Error) string {
	if ae != nil && ae.Err != nil {
		return ae.Err.Error()
	}
	return err.Error()
}
