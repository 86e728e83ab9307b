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

	"github.com/atssj/prj-guest-list-planner/internal/conversation"
	"github.com/atssj/prj-guest-list-planner/internal/logging"
)

// CascadeExtractor tries the reflex path before falling back to the model.
// Bare numbers and clear yes/no answers never leave the process, which keeps
// the common turns fast and cheap.
type CascadeExtractor struct {
	reflex   *ReflexExtractor
	fallback conversation.Extractor
}

// NewCascadeExtractor builds the reflex-then-model cascade.
func NewCascadeExtractor(fallback conversation.Extractor) *CascadeExtractor {
	return &CascadeExtractor{
		reflex:   NewReflexExtractor(),
		fallback: fallback,
	}
}

// Extract implements conversation.Extractor.
func (c *CascadeExtractor) Extract(ctx context.Context, req conversation.Request) (*conversation.Result, error) {
	if result, ok := c.reflex.TryExtract(req); ok {
		logging.LogExtraction(string(req.Stage), "reflex")
		return result, nil
	}
	return c.fallback.Extract(ctx, req)
}
