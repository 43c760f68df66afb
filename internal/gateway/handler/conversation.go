package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"archie/internal/conversation"
	"archie/internal/orchestrator"

	"github.com/go-chi/chi/v5"
)

// ConversationHandler exposes the orchestrator over REST.
type ConversationHandler struct {
	o *orchestrator.Orchestrator
}

func NewConversationHandler(o *orchestrator.Orchestrator) *ConversationHandler {
	return &ConversationHandler{o: o}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return conversation.Errorf(conversation.KindValidation, "invalid json body")
	}
	return nil
}

func sessionID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form conversation.FormInputs
	if err := decode(r, &form); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.o.CreateSession(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.o.SendMessage(r.Context(), sessionID(r), in.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ConversationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	res, err := h.o.Approve(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ConversationHandler) Diagram(w http.ResponseWriter, r *http.Request) {
	view, err := h.o.GetDiagram(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ConversationHandler) ComponentDetail(w http.ResponseWriter, r *http.Request) {
	d, err := h.o.GetComponentDetail(r.Context(), sessionID(r), strings.TrimSpace(chi.URLParam(r, "componentId")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.o.DeleteSession(r.Context(), sessionID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) GenerateArchitecture(w http.ResponseWriter, r *http.Request) {
	var form conversation.FormInputs
	if err := decode(r, &form); err != nil {
		writeError(w, err)
		return
	}
	bp, err := h.o.GenerateBlueprint(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bp)
}

func (h *ConversationHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.o.Health(r.Context()))
}
