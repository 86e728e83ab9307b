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
	"net/http"
	"strings"

	"github.com/atssj/prj-guest-list-planner/internal/guests"
	"github.com/atssj/prj-guest-list-planner/internal/logging"
	"github.com/atssj/prj-guest-list-planner/internal/storage"
)

// GuestsHandler handles HTTP requests for the confirmed guest list
type GuestsHandler struct {
	store *storage.GuestsStore
}

// NewGuestsHandler creates a new guests handler
func NewGuestsHandler(store *storage.GuestsStore) *GuestsHandler {
	return &GuestsHandler{store: store}
}

// CreateGuestRequest represents the request for creating a guest entry
type CreateGuestRequest struct {
	FamilyName      string                  `json:"familyName"`
	Adults          int                     `json:"adults"`
	Children        int                     `json:"children"`
	MealPreferences *guests.MealPreferences `json:"mealPreferences,omitempty"`
}

// ListGuestsResponse represents the response for listing guests
type ListGuestsResponse struct {
	Guests  []*guests.Guest `json:"guests"`
	Summary guests.Summary  `json:"summary"`
}

// HandleGuests handles GET /api/guests and POST /api/guests
func (h *GuestsHandler) HandleGuests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listGuests(w, r)
	case http.MethodPost:
		h.createGuest(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGuestsSummary handles GET /api/guests/summary
func (h *GuestsHandler) HandleGuestsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary, err := h.store.Summary()
	if err != nil {
		logging.LogError(err, "Failed to compute guest summary")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HandleGuestByID handles requests under /api/guests/{id}:
//
//	GET    /api/guests/{id}                   one guest entry
//	DELETE /api/guests/{id}                   remove a guest entry
//	PUT    /api/guests/{id}/meal-preferences  replace meal preferences
func (h *GuestsHandler) HandleGuestByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/guests/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		http.Error(w, "Guest ID is required", http.StatusBadRequest)
		return
	}

	id := pathParts[0]
	action := ""
	if len(pathParts) > 1 {
		action = pathParts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getGuestByID(w, id)
	case action == "" && r.Method == http.MethodDelete:
		h.deleteGuest(w, id)
	case action == "meal-preferences" && r.Method == http.MethodPut:
		h.updateMealPreferences(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *GuestsHandler) listGuests(w http.ResponseWriter, _ *http.Request) {
	list, err := h.store.List()
	if err != nil {
		logging.LogError(err, "Failed to list guests")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ListGuestsResponse{
		Guests:  list,
		Summary: guests.Summarize(list),
	})
}

func (h *GuestsHandler) createGuest(w http.ResponseWriter, r *http.Request) {
	var req CreateGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	guest := guests.NewGuest(req.FamilyName, req.Adults, req.Children)
	guest.MealPreferences = req.MealPreferences

	if err := guest.IsValid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.Insert(guest); err != nil {
		logging.LogError(err, "Failed to insert guest")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, guest)
}

func (h *GuestsHandler) getGuestByID(w http.ResponseWriter, id string) {
	guest, err := h.store.GetByID(id)
	if err != nil {
		http.Error(w, "Guest not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, guest)
}

func (h *GuestsHandler) deleteGuest(w http.ResponseWriter, id string) {
	if err := h.store.Delete(id); err != nil {
		http.Error(w, "Guest not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GuestsHandler) updateMealPreferences(w http.ResponseWriter, r *http.Request, id string) {
	var mp guests.MealPreferences
	if err := json.NewDecoder(r.Body).Decode(&mp); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	guest, err := h.store.GetByID(id)
	if err != nil {
		http.Error(w, "Guest not found", http.StatusNotFound)
		return
	}

	guest.MealPreferences = &mp
	if err := guest.IsValid(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateMealPreferences(id, &mp); err != nil {
		http.Error(w, "Guest not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, guest)
}
