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

import "fmt"

// Draft accumulates slot values over the lifetime of one guest-entry
// conversation. A field is set only after its stage produced a successful
// extraction; the whole draft is cleared on denial at confirm or on reset.
type Draft struct {
	FamilyName *string `json:"familyName,omitempty"`
	Adults     *int    `json:"adults,omitempty"`
	Children   *int    `json:"children,omitempty"`
}

// Complete reports whether every slot has been collected.
func (d Draft) Complete() bool {
	return d.FamilyName != nil && *d.FamilyName != "" && d.Adults != nil && d.Children != nil
}

// FamilyNameOr returns the collected family name or the fallback.
func (d Draft) FamilyNameOr(fallback string) string {
	if d.FamilyName != nil && *d.FamilyName != "" {
		return *d.FamilyName
	}
	return fallback
}

// Summary renders the draft the way confirmation prompts present it.
func (d Draft) Summary() string {
	adults := "some"
	if d.Adults != nil {
		adults = fmt.Sprintf("%d", *d.Adults)
	}
	children := "some"
	if d.Children != nil {
		children = fmt.Sprintf("%d", *d.Children)
	}
	return fmt.Sprintf("%s, %s adult(s), and %s child(ren)", d.FamilyNameOr("Unknown family"), adults, children)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Copy returns an independent copy of the draft so callers cannot mutate
// the machine's accumulator through returned snapshots.
func (d Draft) Copy() Draft {
	return Draft{
		FamilyName: clone(d.FamilyName),
		Adults:     clone(d.Adults),
		Children:   clone(d.Children),
	}
}
