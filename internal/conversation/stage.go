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

// Stage identifies which slot the conversation is currently collecting.
type Stage string

const (
	StageFamilyName Stage = "family_name"
	StageAdults     Stage = "adults"
	StageChildren   Stage = "children"
	StageConfirm    Stage = "confirm"
	StageDone       Stage = "done"
	StageError      Stage = "error"
)

// IsTerminal reports whether no further turns can be processed in this stage.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageError
}

// next returns the stage that follows a successful extraction at s.
// Terminal stages map to themselves.
func (s Stage) next() Stage {
	switch s {
	case StageFamilyName:
		return StageAdults
	case StageAdults:
		return StageChildren
	case StageChildren:
		return StageConfirm
	case StageConfirm:
		return StageDone
	default:
		return s
	}
}

// slotWord returns the word the stage's slot goes by in prompts and in
// extractor error messages. Used by the repair rule to recognize errors
// that talk about the slot we just extracted successfully.
func (s Stage) slotWord() string {
	switch s {
	case StageFamilyName:
		return "family name"
	case StageAdults:
		return "adults"
	case StageChildren:
		return "children"
	case StageConfirm:
		return "confirmation"
	default:
		return ""
	}
}
