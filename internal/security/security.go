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

package security

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidConversationID is returned when a conversation ID format is invalid
	ErrInvalidConversationID = errors.New("invalid conversation ID")

	// conversationIDPattern validates conversation IDs to only allow safe characters
	conversationIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// SanitizeLogInput removes newline characters to prevent log injection attacks.
// Transcripts and extracted names are user-controlled and must pass through
// here before logging.
func SanitizeLogInput(input string) string {
	sanitized := strings.ReplaceAll(input, "\n", "")
	sanitized = strings.ReplaceAll(sanitized, "\r", "")
	return sanitized
}

// ValidateConversationID ensures that a conversation ID contains only safe
// characters. Conversation IDs appear in URL paths, so path separators and
// parent directory references are rejected outright.
func ValidateConversationID(id string) error {
	if id == "" {
		return ErrInvalidConversationID
	}

	if strings.Contains(id, "/") || strings.Contains(id, "\\") || strings.Contains(id, "..") {
		return ErrInvalidConversationID
	}

	if !conversationIDPattern.MatchString(id) {
		return ErrInvalidConversationID
	}

	return nil
}
