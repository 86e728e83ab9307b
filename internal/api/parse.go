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
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/atssj/prj-guest-list-planner/internal/extract"
	"github.com/atssj/prj-guest-list-planner/internal/logging"
)

// GuestInfoParser extracts guest details from one free-form text.
type GuestInfoParser interface {
	ParseGuestInfo(ctx context.Context, text string) (*extract.GuestInfo, error)
}

// ParseHandler handles one-shot guest text parsing
type ParseHandler struct {
	parser GuestInfoParser
}

// NewParseHandler creates a new parse handler
func NewParseHandler(parser GuestInfoParser) *ParseHandler {
	return &ParseHandler{parser: parser}
}

// ParseGuestRequest carries the text to parse
type ParseGuestRequest struct {
	Text string `json:"text"`
}

// HandleParseGuest handles POST /api/parse-guest
func (h *ParseHandler) HandleParseGuest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ParseGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}

	info, err := h.parser.ParseGuestInfo(r.Context(), req.Text)
	if err != nil {
		logging.LogError(err, "Failed to parse guest text")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, info)
}
