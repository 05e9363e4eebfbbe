// Package handlers implements the HTTP handlers for the diagnosis service.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/medkit-ai/diagnon/internal/guardrails"
	"github.com/medkit-ai/diagnon/internal/sessions"
	"github.com/medkit-ai/diagnon/pkg/models"
)

// Diagnoser runs the retrieval-augmented diagnosis pipeline.
type Diagnoser interface {
	Diagnose(ctx context.Context, q models.PatientQuery) (*models.DiagnoseResponse, error)
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Assistant Diagnoser
	Sessions  *sessions.Store
}

// New creates a Handlers instance.
func New(assistant Diagnoser, sess *sessions.Store) *Handlers {
	return &Handlers{Assistant: assistant, Sessions: sess}
}

// Diagnose handles POST /diagnose: a one-shot structured diagnosis request.
//
// Responses: 200 with the ranked disease list, 422 when the body fails
// schema validation, 403 when a guardrail rejects the input.
func (h *Handlers) Diagnose(w http.ResponseWriter, r *http.Request) {
	var q models.PatientQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if err := q.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp, err := h.Assistant.Diagnose(r.Context(), q)
	if err != nil {
		var serr *guardrails.SecurityError
		if errors.As(err, &serr) {
			respondError(w, http.StatusForbidden, refusalFor(serr))
			return
		}
		log.Error().Err(err).Msg("diagnosis failed")
		respondError(w, http.StatusInternalServerError, "diagnosis failed")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Chat handles POST /chat: one conversational turn. A missing session_id
// starts a new session; the allocated id comes back in the response.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusUnprocessableEntity, "message is required")
		return
	}

	session := h.Sessions.GetOrCreate(req.SessionID)
	reply, err := session.Chat(r.Context(), req.Message)
	if err != nil {
		var serr *guardrails.SecurityError
		if errors.As(err, &serr) {
			respondError(w, http.StatusForbidden, refusalFor(serr))
			return
		}
		log.Error().Err(err).Str("session_id", session.ID).Msg("chat turn failed")
		respondError(w, http.StatusInternalServerError, "chat turn failed")
		return
	}

	respondJSON(w, http.StatusOK, models.ChatResponse{SessionID: session.ID, Reply: reply})
}

// ResetChat handles POST /chat/reset: clears a session's history.
func (h *Handlers) ResetChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusUnprocessableEntity, "session_id is required")
		return
	}

	session := h.Sessions.Get(req.SessionID)
	if session == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	session.Reset()

	respondJSON(w, http.StatusOK, map[string]string{"session_id": req.SessionID, "status": "reset"})
}

// refusalFor builds the user-facing refusal without echoing the trigger.
func refusalFor(serr *guardrails.SecurityError) string {
	return fmt.Sprintf("request rejected by %s guardrail", serr.Category)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}
