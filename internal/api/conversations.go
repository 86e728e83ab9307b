/*
 * This file is part of Guest List Planner (https://github.com/atssj/prj-guest-list-planner).
 * Copyright (C) 2025 Guest List Planner contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/atssj/prj-guest-list-planner/internal/conversation"
	"github.com/atssj/prj-guest-list-planner/internal/security"
)

// TurnObserver is notified after every processed turn.
type TurnObserver func(conversationID, utterance string, outcome conversation.TurnOutcome, err error)

// ConversationsHandler handles HTTP requests for guest-entry conversations.
// It is the typed-input twin of the voice gateway: the same machines are
// reachable over both.
type ConversationsHandler struct {
	manager  *conversation.Manager
	observer TurnObserver
}

// NewConversationsHandler creates a new conversations handler
func NewConversationsHandler(manager *conversation.Manager, observer TurnObserver) *ConversationsHandler {
	return &ConversationsHandler{manager: manager, observer: observer}
}

// ConversationResponse is the wire form of a conversation snapshot
type ConversationResponse struct {
	ConversationID string `json:"conversationId"`
	conversation.TurnOutcome
}

// UtteranceRequest carries one transcript to process
type UtteranceRequest struct {
	Utterance string `json:"utterance"`
}

// CaptureErrorRequest reports a voice capture failure
type CaptureErrorRequest struct {
	ErrorKind string `json:"errorKind"`
}

// HandleConversations handles POST /api/conversations
func (h *ConversationsHandler) HandleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, outcome := h.manager.Start()
	writeJSON(w, http.StatusCreated, ConversationResponse{ConversationID: id, TurnOutcome: outcome})
}

// HandleConversationByID handles requests under /api/conversations/{id}:
//
//	GET    /api/conversations/{id}             current snapshot
//	DELETE /api/conversations/{id}             drop the conversation
//	POST   /api/conversations/{id}/utterances  process one transcript
//	POST   /api/conversations/{id}/reset       restart slot collection
//	POST   /api/conversations/{id}/capture-errors  report a capture failure
func (h *ConversationsHandler) HandleConversationByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/conversations/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		http.Error(w, "Conversation ID is required", http.StatusBadRequest)
		return
	}

	id := pathParts[0]
	machine, err := h.manager.Get(id)
	if err != nil {
		if errors.Is(err, security.ErrInvalidConversationID) {
			http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
			return
		}
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	action := ""
	if len(pathParts) > 1 {
		action = pathParts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, ConversationResponse{ConversationID: id, TurnOutcome: machine.Snapshot()})
	case action == "" && r.Method == http.MethodDelete:
		h.manager.Remove(id)
		w.WriteHeader(http.StatusNoContent)
	case action == "utterances" && r.Method == http.MethodPost:
		h.processUtterance(w, r, id, machine)
	case action == "reset" && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, ConversationResponse{ConversationID: id, TurnOutcome: machine.Reset()})
	case action == "capture-errors" && r.Method == http.MethodPost:
		h.processCaptureError(w, r, id, machine)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConversationsHandler) processUtterance(w http.ResponseWriter, r *http.Request, id string, machine *conversation.Machine) {
	var req UtteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := machine.ProcessUtterance(r.Context(), req.Utterance)
	if h.observer != nil {
		h.observer(id, req.Utterance, outcome, err)
	}
	if err != nil {
		if errors.Is(err, conversation.ErrConversationFinished) {
			http.Error(w, "Conversation already finished", http.StatusConflict)
			return
		}
		if errors.Is(err, conversation.ErrStaleGeneration) {
			http.Error(w, "Conversation was reset", http.StatusConflict)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ConversationResponse{ConversationID: id, TurnOutcome: outcome})
}

func (h *ConversationsHandler) processCaptureError(w http.ResponseWriter, r *http.Request, id string, machine *conversation.Machine) {
	var req CaptureErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	outcome := machine.HandleCaptureError(conversation.CaptureErrorKind(req.ErrorKind))
	writeJSON(w, http.StatusOK, ConversationResponse{ConversationID: id, TurnOutcome: outcome})
}
