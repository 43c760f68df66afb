package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"archie/internal/conversation"
)

type errorBody struct {
	Error   conversation.Kind `json:"error"`
	Details string            `json:"details,omitempty"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind conversation.Kind) int {
	switch kind {
	case conversation.KindValidation:
		return http.StatusBadRequest
	case conversation.KindSessionNotFound, conversation.KindNotFound:
		return http.StatusNotFound
	case conversation.KindInvalidPhase:
		return http.StatusConflict
	case conversation.KindNoProviderAvailable, conversation.KindAllProvidersFailed:
		return http.StatusServiceUnavailable
	case conversation.KindUnparseableResponse, conversation.KindInvalidDiscoveryResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := conversation.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Printf("handler: %v", err)
	}
	writeJSON(w, status, errorBody{Error: kind, Details: conversation.DetailOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handler: encode response: %v", err)
	}
}
