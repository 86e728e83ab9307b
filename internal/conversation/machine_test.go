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
	"testing"
)

// scriptedExtractor returns queued results in order, one per turn.
type scriptedExtractor struct {
	results []*Result
	errs    []error
	calls   int
}

func (s *scriptedExtractor) Extract(_ context.Context, _ Request) (*Result, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var res *Result
	if i < len(s.results) {
		res = s.results[i]
	}
	return res, err
}

func fixedResult(res *Result) ExtractorFunc {
	return func(_ context.Context, _ Request) (*Result, error) {
		return res, nil
	}
}

func TestMachineStartsAtFamilyNameWithOpeningPrompt(t *testing.T) {
	m := NewMachine(fixedResult(&Result{}), nil)

	snap := m.Snapshot()
	if snap.Stage != StageFamilyName {
		t.Errorf("expected stage %s, got %s", StageFamilyName, snap.Stage)
	}
	if snap.Prompt != OpeningPrompt {
		t.Errorf("expected opening prompt, got %q", snap.Prompt)
	}
	if snap.Draft.FamilyName != nil || snap.Draft.Adults != nil || snap.Draft.Children != nil {
		t.Error("expected empty draft on a fresh machine")
	}
}

func TestMachineHappyPath(t *testing.T) {
	extractor := &scriptedExtractor{
		results: []*Result{
			{ExtractedFamilyName: strPtr("Patel")},
			{ExtractedAdults: floatPtr(2)},
			{ExtractedChildren: floatPtr(0)},
			{IsConfirmed: boolPtr(true)},
		},
	}

	var confirmed *ConfirmedGuest
	m := NewMachine(extractor, func(g ConfirmedGuest) { confirmed = &g })

	out, err := m.ProcessUtterance(context.Background(), "The Patel family")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageAdults {
		t.Fatalf("expected stage %s, got %s", StageAdults, out.Stage)
	}
	if out.Draft.FamilyName == nil || *out.Draft.FamilyName != "Patel" {
		t.Fatalf("expected family name Patel, got %v", out.Draft.FamilyName)
	}
	if !strings.Contains(out.Prompt, "Patel") {
		t.Errorf("adults prompt should echo the family name, got %q", out.Prompt)
	}

	out, err = m.ProcessUtterance(context.Background(), "two adults")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageChildren {
		t.Fatalf("expected stage %s, got %s", StageChildren, out.Stage)
	}
	if out.Draft.Adults == nil || *out.Draft.Adults != 2 {
		t.Fatalf("expected 2 adults, got %v", out.Draft.Adults)
	}

	out, err = m.ProcessUtterance(context.Background(), "none")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageConfirm {
		t.Fatalf("expected stage %s, got %s", StageConfirm, out.Stage)
	}
	if out.Draft.Children == nil || *out.Draft.Children != 0 {
		t.Fatalf("expected 0 children, got %v", out.Draft.Children)
	}
	if !strings.Contains(out.Prompt, "Patel, 2 adult(s), and 0 child(ren)") {
		t.Errorf("confirm prompt should carry the summary, got %q", out.Prompt)
	}

	out, err = m.ProcessUtterance(context.Background(), "yes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageDone {
		t.Fatalf("expected stage %s, got %s", StageDone, out.Stage)
	}
	if out.Confirmed == nil {
		t.Fatal("expected confirmed guest on the final outcome")
	}
	if confirmed == nil {
		t.Fatal("expected confirmed handler to fire")
	}
	if confirmed.FamilyName != "Patel" || confirmed.Adults != 2 || confirmed.Children != 0 {
		t.Errorf("unexpected confirmed guest: %+v", confirmed)
	}
}

func TestMachineZeroIsAValidCount(t *testing.T) {
	m := NewMachine(fixedResult(&Result{ExtractedAdults: floatPtr(0)}), nil)
	m.stage = StageAdults
	m.draft.FamilyName = strPtr("Singh")

	out, err := m.ProcessUtterance(context.Background(), "zero")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageChildren {
		t.Fatalf("expected advance to %s, got %s", StageChildren, out.Stage)
	}
	if out.Draft.Adults == nil || *out.Draft.Adults != 0 {
		t.Fatalf("expected adults recorded as 0, got %v", out.Draft.Adults)
	}
}

func TestMachineParsingFailureKeepsStageAndDraft(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		draft Draft
		res   *Result
	}{
		{
			name:  "family name with parsing error",
			stage: StageFamilyName,
			res:   &Result{ParsingError: "I couldn't catch the family name. Could you please repeat it?"},
		},
		{
			name:  "adults with no value",
			stage: StageAdults,
			draft: Draft{FamilyName: strPtr("Kim")},
			res:   &Result{ParsingError: "I couldn't understand the number of adults."},
		},
		{
			name:  "adults with fractional value",
			stage: StageAdults,
			draft: Draft{FamilyName: strPtr("Kim")},
			res:   &Result{ExtractedAdults: floatPtr(2.5)},
		},
		{
			name:  "adults with negative value",
			stage: StageAdults,
			draft: Draft{FamilyName: strPtr("Kim")},
			res:   &Result{ExtractedAdults: floatPtr(-1)},
		},
		{
			name:  "ambiguous confirmation",
			stage: StageConfirm,
			draft: Draft{FamilyName: strPtr("Kim"), Adults: intPtr(2), Children: intPtr(1)},
			res:   &Result{ParsingError: "Sorry, I didn't quite catch that."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(fixedResult(tt.res), nil)
			m.stage = tt.stage
			m.draft = tt.draft.Copy()

			out, err := m.ProcessUtterance(context.Background(), "mumble")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Stage != tt.stage {
				t.Errorf("stage moved from %s to %s on a failed parse", tt.stage, out.Stage)
			}
			if out.ParsingError == "" {
				t.Error("expected a parsing error on the outcome")
			}
			if out.Prompt == "" {
				t.Error("expected a non-empty re-ask prompt")
			}
			if (out.Draft.Adults == nil) != (tt.draft.Adults == nil) ||
				(out.Draft.FamilyName == nil) != (tt.draft.FamilyName == nil) ||
				(out.Draft.Children == nil) != (tt.draft.Children == nil) {
				t.Errorf("draft changed on a failed parse: %+v", out.Draft)
			}
		})
	}
}

func TestMachineSynthesizesParsingErrorWhenExtractorGivesNone(t *testing.T) {
	m := NewMachine(fixedResult(&Result{}), nil)

	out, err := m.ProcessUtterance(context.Background(), "hmm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ParsingError == "" {
		t.Error("expected a synthesized parsing error")
	}
	if out.Stage != StageFamilyName {
		t.Errorf("expected to stay at %s, got %s", StageFamilyName, out.Stage)
	}
}

func TestMachineRepairsInconsistentExtractorOutput(t *testing.T) {
	m := NewMachine(fixedResult(&Result{
		ExtractedAdults: floatPtr(3),
		ParsingError:    "I couldn't understand the number of adults.",
	}), nil)
	m.stage = StageAdults
	m.draft.FamilyName = strPtr("Sharma")

	out, err := m.ProcessUtterance(context.Background(), "three")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageChildren {
		t.Fatalf("expected repaired turn to advance to %s, got %s", StageChildren, out.Stage)
	}
	if out.Draft.Adults == nil || *out.Draft.Adults != 3 {
		t.Fatalf("expected adults recorded as 3, got %v", out.Draft.Adults)
	}
	if out.ParsingError != "" {
		t.Errorf("repaired turn must not surface the parsing error, got %q", out.ParsingError)
	}
	if !out.Repaired {
		t.Error("expected the outcome to be flagged as repaired")
	}
	if out.Prompt == "" || strings.Contains(strings.ToLower(out.Prompt), "adults") {
		t.Errorf("repaired prompt must ask for the next slot, got %q", out.Prompt)
	}
}

func TestMachineDoesNotRepairUnrelatedParsingError(t *testing.T) {
	// The error talks about a different slot, so the value is not trusted.
	m := NewMachine(fixedResult(&Result{
		ExtractedAdults: floatPtr(3),
		ParsingError:    "I couldn't catch the family name.",
	}), nil)
	m.stage = StageAdults
	m.draft.FamilyName = strPtr("Sharma")

	out, err := m.ProcessUtterance(context.Background(), "three")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageAdults {
		t.Fatalf("expected to stay at %s, got %s", StageAdults, out.Stage)
	}
	if out.Draft.Adults != nil {
		t.Errorf("expected adults to stay unset, got %v", out.Draft.Adults)
	}
	if out.Repaired {
		t.Error("unrelated error must not trigger the repair rule")
	}
}

func TestMachineDenialResetsEverything(t *testing.T) {
	m := NewMachine(fixedResult(&Result{
		IsConfirmed: boolPtr(false),
		NextPrompt:  "Too bad. What now?",
	}), nil)
	m.stage = StageConfirm
	m.draft = Draft{FamilyName: strPtr("Sharma"), Adults: intPtr(2), Children: intPtr(2)}

	out, err := m.ProcessUtterance(context.Background(), "no, that's wrong")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageFamilyName {
		t.Fatalf("expected restart at %s, got %s", StageFamilyName, out.Stage)
	}
	if out.Draft.FamilyName != nil || out.Draft.Adults != nil || out.Draft.Children != nil {
		t.Errorf("expected a cleared draft after denial, got %+v", out.Draft)
	}
	if out.Prompt != restartPrompt {
		t.Errorf("denial must use the restart prompt, got %q", out.Prompt)
	}
}

func TestMachineRefusesConfirmationWithIncompleteDraft(t *testing.T) {
	m := NewMachine(fixedResult(&Result{IsConfirmed: boolPtr(true)}), nil)
	m.stage = StageConfirm
	m.draft = Draft{FamilyName: strPtr("Sharma")} // counts missing

	out, err := m.ProcessUtterance(context.Background(), "yes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage == StageDone {
		t.Fatal("done must be unreachable with a partial draft")
	}
	if out.Confirmed != nil {
		t.Fatal("no guest may be handed off from a partial draft")
	}
}

func TestMachineTransportFailureIsTerminal(t *testing.T) {
	boom := errors.New("model unreachable")
	m := NewMachine(ExtractorFunc(func(_ context.Context, _ Request) (*Result, error) {
		return nil, boom
	}), nil)
	m.stage = StageAdults
	m.draft.FamilyName = strPtr("Ito")

	out, err := m.ProcessUtterance(context.Background(), "two")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageError {
		t.Fatalf("expected stage %s, got %s", StageError, out.Stage)
	}
	if out.Draft.FamilyName == nil || *out.Draft.FamilyName != "Ito" {
		t.Error("draft must stay intact on transport failure")
	}
	if !strings.Contains(out.Prompt, "form") {
		t.Errorf("error prompt must point at manual entry, got %q", out.Prompt)
	}

	// The machine is finished; further turns are refused.
	if _, err := m.ProcessUtterance(context.Background(), "two"); !errors.Is(err, ErrConversationFinished) {
		t.Errorf("expected ErrConversationFinished, got %v", err)
	}
}

func TestMachineNilResultIsTerminal(t *testing.T) {
	m := NewMachine(fixedResult(nil), nil)

	out, err := m.ProcessUtterance(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stage != StageError {
		t.Fatalf("expected stage %s, got %s", StageError, out.Stage)
	}
	if out.Prompt == "" {
		t.Error("error stage must still carry a prompt")
	}
}

func TestMachineDiscardsStaleResults(t *testing.T) {
	m := NewMachine(fixedResult(&Result{}), nil)
	gen := m.Generation()

	// A reset supersedes the in-flight turn.
	m.Reset()

	out, err := m.ApplyTurn(gen, &Result{ExtractedFamilyName: strPtr("Ghost")}, nil)
	if !errors.Is(err, ErrStaleGeneration) {
		t.Fatalf("expected ErrStaleGeneration, got %v", err)
	}
	if out.Draft.FamilyName != nil {
		t.Error("stale result must leave no trace in the draft")
	}
	if out.Stage != StageFamilyName {
		t.Errorf("expected stage %s, got %s", StageFamilyName, out.Stage)
	}
}

func TestMachineGenerationAdvancesPerTurn(t *testing.T) {
	m := NewMachine(fixedResult(&Result{ExtractedFamilyName: strPtr("Khan")}), nil)
	gen := m.Generation()

	if _, err := m.ProcessUtterance(context.Background(), "Khan"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Replaying the same turn's result must be rejected.
	if _, err := m.ApplyTurn(gen, &Result{ExtractedFamilyName: strPtr("Khan")}, nil); !errors.Is(err, ErrStaleGeneration) {
		t.Errorf("expected ErrStaleGeneration on replay, got %v", err)
	}
}

func TestMachineResetRestoresOpeningState(t *testing.T) {
	m := NewMachine(fixedResult(&Result{ExtractedFamilyName: strPtr("Lopez")}), nil)
	if _, err := m.ProcessUtterance(context.Background(), "Lopez"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := m.Reset()
	if out.Stage != StageFamilyName {
		t.Errorf("expected stage %s, got %s", StageFamilyName, out.Stage)
	}
	if out.Draft.FamilyName != nil {
		t.Error("expected an empty draft after reset")
	}
	if out.Prompt != OpeningPrompt {
		t.Errorf("expected opening prompt after reset, got %q", out.Prompt)
	}
}

func TestMachineCaptureErrorKeepsStage(t *testing.T) {
	tests := []struct {
		name string
		kind CaptureErrorKind
	}{
		{"no speech", CaptureNoSpeech},
		{"mic unavailable", CaptureMicUnavailable},
		{"permission denied", CapturePermissionDenied},
		{"unknown kind", CaptureErrorKind("weird")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(fixedResult(&Result{}), nil)
			m.stage = StageAdults
			m.draft.FamilyName = strPtr("Mori")

			out := m.HandleCaptureError(tt.kind)
			if out.Stage != StageAdults {
				t.Errorf("capture error moved stage to %s", out.Stage)
			}
			if out.Prompt == "" {
				t.Error("capture error must still produce a prompt")
			}
			if out.Draft.FamilyName == nil {
				t.Error("capture error must not touch the draft")
			}
		})
	}
}

func TestMachinePromptNeverEmpty(t *testing.T) {
	// Walk a conversation through every stage, including failures, and
	// check each outcome carries guidance.
	extractor := &scriptedExtractor{
		results: []*Result{
			{ParsingError: "couldn't hear"},
			{ExtractedFamilyName: strPtr("Okafor")},
			{ExtractedAdults: floatPtr(4)},
			{ExtractedChildren: floatPtr(1)},
			{ParsingError: "was that a yes?"},
			{IsConfirmed: boolPtr(true)},
		},
	}
	m := NewMachine(extractor, nil)

	utterances := []string{"...", "Okafor", "four", "one", "maybe", "yes"}
	for i, u := range utterances {
		out, err := m.ProcessUtterance(context.Background(), u)
		if err != nil {
			t.Fatalf("turn %d: unexpected error: %v", i, err)
		}
		if out.Prompt == "" {
			t.Fatalf("turn %d left the user without a prompt", i)
		}
	}
}

func TestCoerceCount(t *testing.T) {
	tests := []struct {
		name   string
		in     *float64
		want   int
		wantOK bool
	}{
		{"nil", nil, 0, false},
		{"zero", floatPtr(0), 0, true},
		{"positive", floatPtr(7), 7, true},
		{"negative", floatPtr(-2), 0, false},
		{"fractional", floatPtr(1.5), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerceCount(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("coerceCount(%v) = (%d, %t), want (%d, %t)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func floatPtr(v float64) *float64 { return &v }
