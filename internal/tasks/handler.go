package tasks

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"taskhub/internal/apperr"
	"taskhub/internal/auth"
	"taskhub/internal/respond"
)

type Handler struct {
	Controller *Controller
	Respond    *respond.Writer
}

// principal fetches the caller set by the authentication gate.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.Respond.Fail(w, r, apperr.Unauthenticated("Authorization header missing"))
	}
	return p, ok
}

func taskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid task ID")
	}
	return id, nil
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("Invalid request payload")
	}
	return nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	v := r.URL.Query()
	tasks, err := h.Controller.List(r.Context(), p, Query{
		Status: v.Get("status"),
		Search: v.Get("search"),
		Title:  v.Get("title"),
		SortBy: v.Get("sortBy"),
		Order:  v.Get("order"),
	})
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.List(w, "Tasks retrieved successfully", tasks, len(tasks))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	st, err := h.Controller.Stats(r.Context(), p)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.OK(w, http.StatusOK, "Statistics retrieved", st)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	t, err := h.Controller.Get(r.Context(), p, id)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.OK(w, http.StatusOK, "Task retrieved successfully", t)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := decode(r, &in); err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	t, err := h.Controller.Create(r.Context(), p, in)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.OK(w, http.StatusCreated, "Task created successfully", t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	var patch Patch
	if err := decode(r, &patch); err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	t, err := h.Controller.Update(r.Context(), p, id, patch)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.OK(w, http.StatusOK, "Task updated successfully", t)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	var body struct {
		Status Status `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	t, err := h.Controller.UpdateStatus(r.Context(), p, id, body.Status)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.OK(w, http.StatusOK, "Task status updated successfully", t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	t, err := h.Controller.Delete(r.Context(), p, id)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.OK(w, http.StatusOK, "Task deleted successfully", t)
}
