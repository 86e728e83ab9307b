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

package events

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/atssj/prj-guest-list-planner/internal/conversation"
)

// TurnEvent records one processed conversation turn with full traceability
type TurnEvent struct {
	// Core identification
	UUID           string    `json:"uuid" db:"uuid"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`

	// Turn input
	Stage     string `json:"stage" db:"stage"`
	Utterance string `json:"utterance" db:"utterance"`

	// Processing results
	NextStage    string             `json:"next_stage" db:"next_stage"`
	Draft        conversation.Draft `json:"draft" db:"draft"`
	ParsingError string             `json:"parsing_error,omitempty" db:"parsing_error"`
	Repaired     bool               `json:"repaired" db:"repaired"`

	// Response data
	Prompt         string `json:"prompt" db:"prompt"`
	ProcessingTime int64  `json:"processing_time_ms" db:"processing_time_ms"`
	Success        bool   `json:"success" db:"success"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
}

// NewTurnEvent creates a new TurnEvent with generated UUID and current timestamp
func NewTurnEvent(conversationID string, stage conversation.Stage, utterance string) *TurnEvent {
	return &TurnEvent{
		UUID:           generateUUID(),
		ConversationID: conversationID,
		Timestamp:      time.Now(),
		Stage:          string(stage),
		Utterance:      utterance,
		Success:        true,
	}
}

// generateUUID generates a simple UUID without external dependencies
func generateUUID() string {
	b := make([]byte, 16)
	_, err := io.ReadFull(rand.Reader, b)
	if err != nil {
		// Fallback to timestamp-based ID if random fails
		return fmt.Sprintf("turn-%d", time.Now().UnixNano())
	}

	// Set version (4) and variant bits
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// SetOutcome records the turn outcome and marks processing as complete
func (te *TurnEvent) SetOutcome(outcome conversation.TurnOutcome) {
	te.NextStage = string(outcome.Stage)
	te.Draft = outcome.Draft
	te.ParsingError = outcome.ParsingError
	te.Repaired = outcome.Repaired
	te.Prompt = outcome.Prompt
	te.ProcessingTime = time.Since(te.Timestamp).Milliseconds()
}

// SetError marks the turn as failed with an error message
func (te *TurnEvent) SetError(err error) {
	te.Success = false
	te.ErrorMessage = err.Error()
	te.ProcessingTime = time.Since(te.Timestamp).Milliseconds()
}

// DraftJSON returns the draft as a JSON string for database storage
func (te *TurnEvent) DraftJSON() (string, error) {
	data, err := json.Marshal(te.Draft)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft: %w", err)
	}
	return string(data), nil
}

// SetDraftFromJSON parses a JSON string and sets the draft
func (te *TurnEvent) SetDraftFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "{}" {
		te.Draft = conversation.Draft{}
		return nil
	}

	var draft conversation.Draft
	if err := json.Unmarshal([]byte(jsonStr), &draft); err != nil {
		return fmt.Errorf("failed to unmarshal draft JSON: %w", err)
	}

	te.Draft = draft
	return nil
}

// IsValid performs basic validation on the turn event
func (te *TurnEvent) IsValid() error {
	if te.UUID == "" {
		return fmt.Errorf("UUID is required")
	}

	if te.ConversationID == "" {
		return fmt.Errorf("conversationID is required")
	}

	if te.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	if te.Stage == "" {
		return fmt.Errorf("stage is required")
	}

	return nil
}

// String returns a human-readable representation of the turn event
func (te *TurnEvent) String() string {
	return fmt.Sprintf("TurnEvent{UUID: %s, ConversationID: %s, Stage: %s -> %s, Utterance: %q, Success: %t}",
		te.UUID, te.ConversationID, te.Stage, te.NextStage, te.Utterance, te.Success)
}
