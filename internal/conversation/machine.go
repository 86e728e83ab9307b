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
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/atssj/prj-guest-list-planner/internal/logging"
)

var (
	// ErrStaleGeneration is returned when a turn result arrives for a
	// conversation generation that has since been superseded by a reset.
	ErrStaleGeneration = errors.New("stale conversation generation")

	// ErrConversationFinished is returned when a turn is submitted to a
	// machine already in a terminal stage.
	ErrConversationFinished = errors.New("conversation already finished")
)

// CaptureErrorKind classifies failures surfaced by the voice capture
// adapter. These never reach the extractor; the machine answers them with
// guidance only.
type CaptureErrorKind string

const (
	CaptureNoSpeech         CaptureErrorKind = "no_speech"
	CaptureMicUnavailable   CaptureErrorKind = "mic_unavailable"
	CapturePermissionDenied CaptureErrorKind = "permission_denied"
	CaptureOther            CaptureErrorKind = "other"
)

// ConfirmedGuest is the finalized slot set handed off when a conversation
// reaches the done stage. All fields are guaranteed present and valid.
type ConfirmedGuest struct {
	FamilyName string `json:"familyName"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
}

// ConfirmedHandler receives the finalized draft on confirmation. This is
// the form-synchronizer boundary: whatever is behind it owns writing the
// values into the editable guest form.
type ConfirmedHandler func(guest ConfirmedGuest)

// TurnOutcome is the machine's answer to one processed turn: the stage and
// draft after the transition, the prompt to show the user, and whether the
// turn surfaced a recoverable slot failure or fired the repair rule.
type TurnOutcome struct {
	Stage        Stage           `json:"stage"`
	Draft        Draft           `json:"draft"`
	Prompt       string          `json:"prompt"`
	ParsingError string          `json:"parsingError,omitempty"`
	Repaired     bool            `json:"repaired,omitempty"`
	Confirmed    *ConfirmedGuest `json:"confirmed,omitempty"`
}

// Machine drives one guest-entry conversation: it owns the stage, the slot
// draft, and the generation counter that fences off late results from
// superseded conversations. One extraction call may be outstanding per
// machine at a time; the extractor call itself runs without the lock held.
type Machine struct {
	mu          sync.Mutex
	extractor   Extractor
	onConfirmed ConfirmedHandler

	stage      Stage
	draft      Draft
	prompt     string
	generation uint64
}

// NewMachine creates a machine ready at the family-name stage.
func NewMachine(extractor Extractor, onConfirmed ConfirmedHandler) *Machine {
	return &Machine{
		extractor:   extractor,
		onConfirmed: onConfirmed,
		stage:       StageFamilyName,
		prompt:      OpeningPrompt,
	}
}

// Snapshot returns the current stage, a copy of the draft, and the prompt.
func (m *Machine) Snapshot() TurnOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return TurnOutcome{Stage: m.stage, Draft: m.draft.Copy(), Prompt: m.prompt}
}

// Generation returns the current conversation generation. Requests built
// for the extractor must carry it into ApplyTurn.
func (m *Machine) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Reset discards the draft and returns to the family-name stage. The
// generation bump guarantees any in-flight extraction for the previous
// conversation is ignored when it eventually lands.
func (m *Machine) Reset() TurnOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.stage = StageFamilyName
	m.draft = Draft{}
	m.prompt = OpeningPrompt
	return TurnOutcome{Stage: m.stage, Draft: m.draft.Copy(), Prompt: m.prompt}
}

// ProcessUtterance runs one full turn: build the request, invoke the
// extractor, apply the result. The extractor call is the only suspension
// point; a rejection from it moves the conversation to the error stage.
func (m *Machine) ProcessUtterance(ctx context.Context, transcript string) (TurnOutcome, error) {
	m.mu.Lock()
	if m.stage.IsTerminal() {
		out := TurnOutcome{Stage: m.stage, Draft: m.draft.Copy(), Prompt: m.prompt}
		m.mu.Unlock()
		return out, ErrConversationFinished
	}
	gen := m.generation
	req := Request{
		Stage:           m.stage,
		Utterance:       transcript,
		FamilyNameSoFar: clone(m.draft.FamilyName),
		AdultsSoFar:     clone(m.draft.Adults),
		ChildrenSoFar:   clone(m.draft.Children),
	}
	m.mu.Unlock()

	res, err := m.extractor.Extract(ctx, req)
	return m.ApplyTurn(gen, res, err)
}

// ApplyTurn applies one extraction result (or transport failure) to the
// machine, provided generation still matches. Results for superseded
// generations are discarded with ErrStaleGeneration and leave no trace.
func (m *Machine) ApplyTurn(generation uint64, res *Result, extractErr error) (TurnOutcome, error) {
	m.mu.Lock()
	if generation != m.generation {
		out := TurnOutcome{Stage: m.stage, Draft: m.draft.Copy(), Prompt: m.prompt}
		m.mu.Unlock()
		logging.LogWarn("Discarded stale extraction result",
			zap.Uint64("result_generation", generation),
			zap.Uint64("current_generation", m.generation))
		return out, ErrStaleGeneration
	}
	if m.stage.IsTerminal() {
		out := TurnOutcome{Stage: m.stage, Draft: m.draft.Copy(), Prompt: m.prompt}
		m.mu.Unlock()
		return out, ErrConversationFinished
	}

	out := m.applyLocked(res, extractErr)
	m.generation++
	handler := m.onConfirmed
	m.mu.Unlock()

	if out.Confirmed != nil && handler != nil {
		handler(*out.Confirmed)
	}
	return out, nil
}

// applyLocked holds the whole transition table. Caller holds m.mu.
func (m *Machine) applyLocked(res *Result, extractErr error) TurnOutcome {
	if extractErr != nil {
		// Transport or system failure is fatal to the conversation
		// instance. The draft stays intact for inspection; the user is
		// sent to manual entry.
		m.stage = StageError
		m.prompt = manualEntryPrompt
		logging.LogError(extractErr, "Extractor call failed, conversation moved to error stage")
		return m.outcomeLocked("", false)
	}
	if res == nil {
		m.stage = StageError
		m.prompt = manualEntryPrompt
		logging.LogWarn("Extractor returned no result, conversation moved to error stage")
		return m.outcomeLocked("", false)
	}

	switch m.stage {
	case StageFamilyName:
		return m.applyFamilyNameLocked(res)
	case StageAdults:
		return m.applyCountLocked(res, res.ExtractedAdults, func(d *Draft, v int) { d.Adults = &v })
	case StageChildren:
		return m.applyCountLocked(res, res.ExtractedChildren, func(d *Draft, v int) { d.Children = &v })
	case StageConfirm:
		return m.applyConfirmLocked(res)
	default:
		m.prompt = manualEntryPrompt
		return m.outcomeLocked("", false)
	}
}

func (m *Machine) applyFamilyNameLocked(res *Result) TurnOutcome {
	name := ""
	if res.ExtractedFamilyName != nil {
		name = strings.TrimSpace(*res.ExtractedFamilyName)
	}
	if name == "" || res.ParsingError != "" {
		return m.rejectLocked(res.ParsingError)
	}
	m.draft.FamilyName = &name
	return m.advanceLocked(res.NextPrompt, false)
}

// applyCountLocked handles both numeric stages. The target value must pass
// the strict integer check; the defensive repair rule only fires when a
// valid value coexists with a parsing error that mentions this stage's
// slot word.
func (m *Machine) applyCountLocked(res *Result, field *float64, set func(*Draft, int)) TurnOutcome {
	v, ok := coerceCount(field)
	if res.ParsingError != "" {
		if ok && strings.Contains(strings.ToLower(res.ParsingError), m.stage.slotWord()) {
			// Inconsistent extractor output: the value parsed fine but a
			// stale error for the same slot rode along. Favor the value.
			// Best-effort heuristic, so it is flagged rather than silent.
			logging.LogWarn("Repaired inconsistent extractor output",
				zap.String("stage", string(m.stage)),
				zap.Int("value", v),
				zap.String("parsing_error", res.ParsingError))
			set(&m.draft, v)
			next := res.NextPrompt
			if next == "" || strings.Contains(strings.ToLower(next), m.stage.slotWord()) {
				next = ""
			}
			return m.advanceLocked(next, true)
		}
		return m.rejectLocked(res.ParsingError)
	}
	if !ok {
		return m.rejectLocked("")
	}
	set(&m.draft, v)
	return m.advanceLocked(res.NextPrompt, false)
}

func (m *Machine) applyConfirmLocked(res *Result) TurnOutcome {
	switch {
	case res.IsConfirmed != nil && *res.IsConfirmed:
		if !m.draft.Complete() {
			// Confirm should be unreachable with partial data; refuse to
			// finish rather than hand off a broken guest.
			logging.LogWarn("Confirmation with incomplete draft, re-asking")
			return m.rejectLocked("")
		}
		m.stage = StageDone
		m.prompt = res.NextPrompt
		if m.prompt == "" {
			m.prompt = closingPrompt
		}
		out := m.outcomeLocked("", false)
		out.Confirmed = &ConfirmedGuest{
			FamilyName: *m.draft.FamilyName,
			Adults:     *m.draft.Adults,
			Children:   *m.draft.Children,
		}
		return out
	case res.IsConfirmed != nil:
		// Denial restarts slot collection from scratch. The restart
		// prompt always overrides whatever the extractor suggested.
		m.draft = Draft{}
		m.stage = StageFamilyName
		m.prompt = restartPrompt
		return m.outcomeLocked("", false)
	default:
		return m.rejectLocked(res.ParsingError)
	}
}

// advanceLocked moves to the next stage after a successful extraction,
// preferring the extractor's suggested prompt over the synthesized one.
func (m *Machine) advanceLocked(extractorPrompt string, repaired bool) TurnOutcome {
	prev := m.stage
	m.stage = m.stage.next()
	m.prompt = extractorPrompt
	if m.prompt == "" {
		m.prompt = advancePrompt(prev, m.draft)
	}
	return m.outcomeLocked("", repaired)
}

// rejectLocked keeps the stage and re-asks for the same slot, preferring
// the extractor's own parsing error over the synthesized default.
func (m *Machine) rejectLocked(parsingError string) TurnOutcome {
	if parsingError == "" {
		parsingError = defaultParsingError(m.stage)
	}
	m.prompt = repeatPrompt(m.stage, m.draft)
	return m.outcomeLocked(parsingError, false)
}

func (m *Machine) outcomeLocked(parsingError string, repaired bool) TurnOutcome {
	if m.prompt == "" {
		// Last resort; every path above sets a prompt, but the user must
		// never be left without guidance.
		m.prompt = repeatPrompt(m.stage, m.draft)
	}
	return TurnOutcome{
		Stage:        m.stage,
		Draft:        m.draft.Copy(),
		Prompt:       m.prompt,
		ParsingError: parsingError,
		Repaired:     repaired,
	}
}

// HandleCaptureError reacts to a voice adapter failure. No extraction took
// place, so the stage never changes; the prompt guides the user to retry
// or fall back to the form.
func (m *Machine) HandleCaptureError(kind CaptureErrorKind) TurnOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stage.IsTerminal() {
		m.prompt = captureErrorPrompt(kind, m.stage, m.draft)
	}
	return TurnOutcome{Stage: m.stage, Draft: m.draft.Copy(), Prompt: m.prompt}
}
