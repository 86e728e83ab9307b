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

// Package voice is the boundary between browser speech capture and the
// conversation core. The browser owns the microphone and speech-to-text;
// only finished transcripts and capture failures cross this boundary.
package voice

import (
	"github.com/atssj/prj-guest-list-planner/internal/conversation"
)

// Client message types
const (
	TypeUtterance    = "utterance"
	TypeCaptureError = "capture_error"
	TypeReset        = "reset"
)

// Server message types
const (
	TypeState          = "state"
	TypeGuestConfirmed = "guest_confirmed"
	TypeError          = "error"
)

// ClientMessage is one inbound frame from the browser adapter.
type ClientMessage struct {
	Type      string `json:"type"`
	Utterance string `json:"utterance,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// ServerMessage is one outbound frame to the browser adapter. State frames
// carry the full post-turn snapshot so the client never has to reconstruct
// conversation state.
type ServerMessage struct {
	Type           string                       `json:"type"`
	ConversationID string                       `json:"conversationId,omitempty"`
	Stage          conversation.Stage           `json:"stage,omitempty"`
	Prompt         string                       `json:"prompt,omitempty"`
	Draft          *conversation.Draft          `json:"draft,omitempty"`
	ParsingError   string                       `json:"parsingError,omitempty"`
	Guest          *conversation.ConfirmedGuest `json:"guest,omitempty"`
	Message        string                       `json:"message,omitempty"`
}

// ParseErrorKind maps the adapter's error string onto the conversation's
// capture error taxonomy. Unknown strings degrade to CaptureOther rather
// than being rejected.
func ParseErrorKind(kind string) conversation.CaptureErrorKind {
	switch conversation.CaptureErrorKind(kind) {
	case conversation.CaptureNoSpeech:
		return conversation.CaptureNoSpeech
	case conversation.CaptureMicUnavailable:
		return conversation.CaptureMicUnavailable
	case conversation.CapturePermissionDenied:
		return conversation.CapturePermissionDenied
	default:
		return conversation.CaptureOther
	}
}

// StateMessage builds a state frame from a turn outcome.
func StateMessage(conversationID string, outcome conversation.TurnOutcome) ServerMessage {
	draft := outcome.Draft
	return ServerMessage{
		Type:           TypeState,
		ConversationID: conversationID,
		Stage:          outcome.Stage,
		Prompt:         outcome.Prompt,
		Draft:          &draft,
		ParsingError:   outcome.ParsingError,
	}
}
