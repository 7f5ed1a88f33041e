package handler

import (
	"net/http"

	"fastform/internal/gateway/entity"
	chatsvc "fastform/internal/gateway/service/chat"
)

type ChatHandler struct {
	svc *chatsvc.Service
}

func NewChatHandler(svc *chatsvc.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type buildChatRequest struct {
	ThreadID  string   `json:"thread_id"`
	UserID    string   `json:"user_id"`
	Content   string   `json:"content"`
	FormPages []string `json:"form_pages"`
}

type fillChatRequest struct {
	ThreadID         string `json:"thread_id"`
	UserID           string `json:"user_id"`
	Content          string `json:"content"`
	LoadAnnotationID *int64 `json:"load_annotation_id"`
}

func (h *ChatHandler) Build(w http.ResponseWriter, r *http.Request) {
	var in buildChatRequest
	if err := decodeJSON(w, r, &in); err != nil {
		RespondError(w, err)
		return
	}
	res, err := h.svc.Build(r.Context(), chatsvc.BuildRequest{
		ThreadID:  in.ThreadID,
		UserID:    entity.NormalizeUserID(in.UserID),
		Content:   in.Content,
		FormPages: in.FormPages,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, res, http.StatusOK)
}

func (h *ChatHandler) Fill(w http.ResponseWriter, r *http.Request) {
	var in fillChatRequest
	if err := decodeJSON(w, r, &in); err != nil {
		RespondError(w, err)
		return
	}
	res, err := h.svc.Fill(r.Context(), chatsvc.FillRequest{
		ThreadID:         in.ThreadID,
		UserID:           entity.NormalizeUserID(in.UserID),
		Content:          in.Content,
		LoadAnnotationID: in.LoadAnnotationID,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, res, http.StatusOK)
}

// BuildThreads serves GET /v1/fastformbuild/threads/{user_id}.
func (h *ChatHandler) BuildThreads(w http.ResponseWriter, r *http.Request) {
	h.threads(w, r, entity.WorkflowBuild)
}

// FillThreads serves GET /v1/fastfill/threads/{user_id}.
func (h *ChatHandler) FillThreads(w http.ResponseWriter, r *http.Request) {
	h.threads(w, r, entity.WorkflowFill)
}

func (h *ChatHandler) threads(w http.ResponseWriter, r *http.Request, workflow entity.Workflow) {
	ids, err := h.svc.ThreadsByUser(r.Context(), entity.NormalizeUserID(r.PathValue("user_id")), workflow)
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, ids, http.StatusOK)
}

// History serves GET /v1/{workflow}/threads/{thread_id}/history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.History(r.Context(), r.PathValue("thread_id"))
	if err != nil {
		RespondError(w, err)
		return
	}
	Respond(w, list, http.StatusOK)
}
