package handler

import (
	"net/http"

	"fastform/internal/gateway/entity"
	usersvc "fastform/internal/gateway/service/user"
)

type UserHandler struct {
	svc *usersvc.Service
}

func NewUserHandler(svc *usersvc.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

type userCreateRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type userUpdateRequest struct {
	Email string `json:"email"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in userCreateRequest
	if err := decodeJSON(w, r, &in); err != nil {
		RespondError(w, err)
		return
	}
	u, err := h.svc.Create(r.Context(), entity.NormalizeUserID(in.ID), in.Email)
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, u, http.StatusCreated)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), entity.NormalizeUserID(r.PathValue("user_id")))
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, u, http.StatusOK)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in userUpdateRequest
	if err := decodeJSON(w, r, &in); err != nil {
		RespondError(w, err)
		return
	}
	u, err := h.svc.Update(r.Context(), entity.NormalizeUserID(r.PathValue("user_id")), in.Email)
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, u, http.StatusOK)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), entity.NormalizeUserID(r.PathValue("user_id"))); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
