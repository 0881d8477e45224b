package auth

import (
	"encoding/json"
	"net/http"

	"taskhub/internal/apperr"
	"taskhub/internal/respond"
)

type Handler struct {
	Service *Service
	Respond *respond.Writer
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Respond.Fail(w, r, apperr.Validation("Invalid request payload"))
		return
	}
	acct, err := h.Service.Register(r.Context(), req)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.OK(w, http.StatusCreated, "User registered", acct)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Respond.Fail(w, r, apperr.Validation("Invalid request payload"))
		return
	}
	acct, err := h.Service.Login(r.Context(), req)
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.OK(w, http.StatusOK, "Login successful", acct)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.Respond.Fail(w, r, apperr.Unauthenticated("Authorization header missing"))
		return
	}
	h.Respond.OK(w, http.StatusOK, "Authenticated", p)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		h.Respond.Fail(w, r, err)
		return
	}
	h.Respond.List(w, "Users retrieved successfully", users, len(users))
}
