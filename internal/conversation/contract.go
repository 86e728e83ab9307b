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

package conversation

import (
	"context"
	"math"
)

// Request is the payload handed to the extractor for one turn. It is built
// fresh per turn from the current stage, the latest transcript, and the
// slot values collected so far.
type Request struct {
	Stage           Stage   `json:"stage"`
	Utterance       string  `json:"utterance"`
	FamilyNameSoFar *string `json:"familyNameSoFar,omitempty"`
	AdultsSoFar     *int    `json:"adultsSoFar,omitempty"`
	ChildrenSoFar   *int    `json:"childrenSoFar,omitempty"`
}

// Result is what the extractor returns for one turn. Numeric fields are
// kept as floats on the wire because the model is free to emit anything;
// the machine applies the strict integer check before trusting them.
type Result struct {
	ExtractedFamilyName *string  `json:"extractedFamilyName,omitempty"`
	ExtractedAdults     *float64 `json:"extractedAdults,omitempty"`
	ExtractedChildren   *float64 `json:"extractedChildren,omitempty"`
	IsConfirmed         *bool    `json:"isConfirmed,omitempty"`
	ParsingError        string   `json:"parsingError,omitempty"`
	NextPrompt          string   `json:"nextPrompt,omitempty"`
}

// Extractor interprets one utterance according to the request's stage.
// A non-nil error means a transport or system failure and is fatal to the
// conversation; a populated ParsingError in the result is the recoverable
// "couldn't determine the slot" signal.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Result, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, req Request) (*Result, error)

func (f ExtractorFunc) Extract(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// coerceCount applies the uniform numeric coercion policy: only integral,
// non-negative values survive. Zero is a valid count, distinct from absent.
func coerceCount(v *float64) (int, bool) {
	if v == nil {
		return 0, false
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
