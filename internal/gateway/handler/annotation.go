package handler

import (
	"net/http"

	"fastform/internal/apperr"
	"fastform/internal/gateway/entity"
	annotationsvc "fastform/internal/gateway/service/annotation"
)

type AnnotationHandler struct {
	svc *annotationsvc.Service
}

func NewAnnotationHandler(svc *annotationsvc.Service) *AnnotationHandler {
	return &AnnotationHandler{svc: svc}
}

type annotationCreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Structure   string  `json:"structure"`
	UserID      string  `json:"user_id"`
}

func (h *AnnotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in annotationCreateRequest
	if err := decodeJSON(w, r, &in); err != nil {
		RespondError(w, err)
		return
	}
	desc := ""
	if in.Description != nil {
		desc = *in.Description
	}
	a, err := h.svc.Create(r.Context(), annotationsvc.CreateInput{
		UserID:      entity.NormalizeUserID(in.UserID),
		Name:        in.Name,
		Description: desc,
		Structure:   in.Structure,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, a, http.StatusCreated)
}

func (h *AnnotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "annotation_id")
	if err != nil {
		RespondError(w, err)
		return
	}
	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, a, http.StatusOK)
}

func (h *AnnotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "annotation_id")
	if err != nil {
		RespondError(w, err)
		return
	}
	var patch entity.AnnotationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		RespondError(w, err)
		return
	}
	a, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, a, http.StatusOK)
}

func (h *AnnotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "annotation_id")
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List serves GET /v1/annotation?user_id=&skip=&limit=.
func (h *AnnotationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := entity.NormalizeUserID(r.URL.Query().Get("user_id"))
	if userID.IsZero() {
		RespondError(w, apperr.MalformedInput("user_id query parameter is required"))
		return
	}
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		RespondError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", entity.DefaultPageLimit)
	if err != nil {
		RespondError(w, err)
		return
	}
	list, err := h.svc.ListByUser(r.Context(), userID, entity.Page{Skip: skip, Limit: limit})
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, list, http.StatusOK)
}
