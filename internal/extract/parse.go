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

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	genai "github.com/google/generative-ai-go/genai"

	"github.com/atssj/prj-guest-list-planner/internal/security"
)

// GuestInfo is the result of a one-shot parse of free-form guest text,
// e.g. "The Smiths, 2 adults and a kid". Every field is optional; only what
// the text actually states is populated.
type GuestInfo struct {
	FamilyName *string `json:"familyName,omitempty"`
	Adults     *int    `json:"adults,omitempty"`
	Children   *int    `json:"children,omitempty"`
}

// ParseGuestInfo extracts whatever guest details a single free-form text
// contains, without the turn-by-turn conversation. Used for typed input and
// pasted notes.
func (g *GeminiExtractor) ParseGuestInfo(ctx context.Context, text string) (*GuestInfo, error) {
	if strings.TrimSpace(text) == "" {
		return &GuestInfo{}, nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(`Extract guest details for an event guest list from the following text.

Text: "%s"

Respond with ONLY a JSON object in this exact format, omitting any field the text does not state:
{
  "familyName": "the family name or primary guest's name",
  "adults": 2,
  "children": 0
}

Rules:
- Numbers must be plain non-negative integers. "zero" and "none" mean 0.
- Do not guess: omit fields rather than inventing values.
- Only respond with the JSON object, no other text`, security.SanitizeLogInput(text))

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}

	return parseGuestInfoResponse(concatTextParts(resp))
}

// parseGuestInfoResponse decodes and validates the one-shot parse output.
// Counts that are negative or fractional are dropped rather than rounded.
func parseGuestInfoResponse(response string) (*GuestInfo, error) {
	jsonStr, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var raw struct {
		FamilyName *string  `json:"familyName"`
		Adults     *float64 `json:"adults"`
		Children   *float64 `json:"children"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling guest info JSON: %w", err)
	}

	info := &GuestInfo{}

	if raw.FamilyName != nil {
		if trimmed := strings.TrimSpace(*raw.FamilyName); trimmed != "" {
			info.FamilyName = &trimmed
		}
	}
	if n, ok := coerceWholeCount(raw.Adults); ok {
		info.Adults = &n
	}
	if n, ok := coerceWholeCount(raw.Children); ok {
		info.Children = &n
	}

	return info, nil
}

func coerceWholeCount(v *float64) (int, bool) {
	if v == nil {
		return 0, false
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
