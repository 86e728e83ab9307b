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
	"strconv"
	"strings"

	"github.com/atssj/prj-guest-list-planner/internal/conversation"
)

// ReflexExtractor answers trivial utterances locally without a model call:
// bare numbers and small number words at the counting stages, and clear
// yes/no answers at confirmation. Anything else is left for the fallback.
type ReflexExtractor struct{}

// NewReflexExtractor creates a reflex extractor.
func NewReflexExtractor() *ReflexExtractor {
	return &ReflexExtractor{}
}

var numberWords = map[string]int{
	"zero": 0, "none": 0, "no one": 0, "nobody": 0,
	"one": 1, "a": 1, "an": 1, "just one": 1, "only one": 1,
	"two": 2, "a couple": 2, "couple": 2, "a pair": 2,
	"three": 3, "a few": 3,
	"four": 4, "five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "a dozen": 12,
}

var affirmativeWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "correct": true,
	"right": true, "sure": true, "absolutely": true, "that's right": true,
	"that is right": true, "that's correct": true, "that is correct": true,
	"sounds good": true, "looks good": true, "confirmed": true, "ok": true, "okay": true,
}

var negativeWords = map[string]bool{
	"no": true, "nope": true, "nah": true, "incorrect": true, "wrong": true,
	"that's wrong": true, "that is wrong": true, "that's incorrect": true,
	"that is incorrect": true, "not right": true, "not correct": true,
	"start over": true, "start again": true,
}

// TryExtract attempts a local extraction. The second return value reports
// whether the utterance was handled; when false the result is nil and the
// caller should fall through to the model.
func (r *ReflexExtractor) TryExtract(req conversation.Request) (*conversation.Result, bool) {
	normalized := normalizeUtterance(req.Utterance)
	if normalized == "" {
		return nil, false
	}

	switch req.Stage {
	case conversation.StageAdults:
		if n, ok := parseCount(normalized); ok {
			v := float64(n)
			return &conversation.Result{ExtractedAdults: &v}, true
		}
	case conversation.StageChildren:
		if n, ok := parseCount(normalized); ok {
			v := float64(n)
			return &conversation.Result{ExtractedChildren: &v}, true
		}
	case conversation.StageConfirm:
		if affirmativeWords[normalized] {
			v := true
			return &conversation.Result{IsConfirmed: &v}, true
		}
		if negativeWords[normalized] {
			v := false
			return &conversation.Result{IsConfirmed: &v}, true
		}
	}

	return nil, false
}

// parseCount recognizes bare digit strings and common number words.
func parseCount(normalized string) (int, bool) {
	if n, err := strconv.Atoi(normalized); err == nil && n >= 0 {
		return n, true
	}
	if n, ok := numberWords[normalized]; ok {
		return n, true
	}
	return 0, false
}

// normalizeUtterance lowercases and strips surrounding punctuation so
// answers like "Two." or " yes! " match.
func normalizeUtterance(utterance string) string {
	s := strings.ToLower(strings.TrimSpace(utterance))
	return strings.Trim(s, " .,!?")
}
