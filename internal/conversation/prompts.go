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

// Prompt text lives here, outside the machine proper. Everything is a pure
// function of (stage, draft) so prompt derivation stays deterministic and
// the machine never assembles user-facing or model-facing text itself.

const (
	// OpeningPrompt starts a fresh conversation.
	OpeningPrompt = "Let's add a guest. What is the family name or primary guest's name?"

	restartPrompt     = "Okay, let's try that again. What is the family name?"
	closingPrompt     = "Excellent! I've noted that down. You can now review meal preferences or add another guest."
	manualEntryPrompt = "Sorry, something went wrong on my end. Please use the form to enter the guest details manually."
)

// advancePrompt is the deterministic fallback asked after a successful
// extraction at stage, when the extractor did not suggest its own prompt.
// draft already contains the value extracted this turn.
func advancePrompt(stage Stage, draft Draft) string {
	switch stage {
	case StageFamilyName:
		return fmt.Sprintf("Got it. How many adults will be in the %s party?", draft.FamilyNameOr("family"))
	case StageAdults:
		return "And how many children will be with them?"
	case StageChildren:
		return fmt.Sprintf("Great! So, just to confirm: %s. Is that correct? (Please say Yes or No)", draft.Summary())
	case StageConfirm:
		return closingPrompt
	default:
		return manualEntryPrompt
	}
}

// repeatPrompt re-asks for the stage's slot after a parsing failure,
// echoing context already collected so the user is not asked for things
// we already know.
func repeatPrompt(stage Stage, draft Draft) string {
	switch stage {
	case StageFamilyName:
		return "I'm sorry, I didn't quite get the name. Could you please tell me the family name or primary guest's name again?"
	case StageAdults:
		return fmt.Sprintf("My apologies, I didn't catch that. How many adults will be in the %s party?", draft.FamilyNameOr("family"))
	case StageChildren:
		return "Sorry, I missed the number of children. How many children will be joining them?"
	case StageConfirm:
		return fmt.Sprintf("I need a clear Yes or No to confirm. Is the information: %s correct?", draft.Summary())
	default:
		return manualEntryPrompt
	}
}

// defaultParsingError is the synthesized slot failure message used when the
// extractor rejected the utterance without saying why.
func defaultParsingError(stage Stage) string {
	switch stage {
	case StageFamilyName:
		return "I couldn't catch the family name. Could you please repeat it?"
	case StageAdults:
		return "I couldn't understand the number of adults. Could you please repeat how many adults?"
	case StageChildren:
		return "I couldn't understand the number of children. Could you please repeat how many children?"
	case StageConfirm:
		return "Sorry, I didn't quite catch that. Is the information correct, yes or no?"
	default:
		return "Sorry, I couldn't understand that. Could you try again?"
	}
}

// StageInstruction builds the natural-language instruction handed to the
// extractor alongside the request. It is part of the extractor's input
// construction, not of the state machine: callers that implement the
// Extractor interface over a generative model embed this text in their
// prompt to pin down the per-stage extraction semantics.
func StageInstruction(stage Stage, draft Draft) string {
	switch stage {
	case StageFamilyName:
		return "You asked for the family name or primary guest's name. " +
			"Extract this name and populate 'extractedFamilyName'. " +
			"If you cannot determine a name from the utterance, set 'parsingError' to " +
			"\"" + defaultParsingError(StageFamilyName) + "\" and leave 'extractedFamilyName' unset. " +
			"Do not attempt numeric parsing at this stage."
	case StageAdults:
		return fmt.Sprintf("The family name is %q. You asked for the number of adults. "+
			"Extract the number of adults as a non-negative integer and populate 'extractedAdults'. "+
			"If the user says \"zero\" or \"none\", extract 0; zero is a valid answer, not a missing one. "+
			"If you cannot determine the number of adults, set 'parsingError' to "+
			"%q and do not re-extract the family name.",
			draft.FamilyNameOr("the family"), defaultParsingError(StageAdults))
	case StageChildren:
		return fmt.Sprintf("The family name is %q and there are %s adults. You asked for the number of children. "+
			"Extract the number of children as a non-negative integer and populate 'extractedChildren'. "+
			"If the user says \"zero\" or \"none\", extract 0. "+
			"If you cannot determine the number of children, set 'parsingError' to "+
			"%q and do not re-extract other details.",
			draft.FamilyNameOr("the family"), countOr(draft.Adults, "an unknown number of"), defaultParsingError(StageChildren))
	case StageConfirm:
		return fmt.Sprintf("You presented the summary: %s, and asked for confirmation. "+
			"Decide whether the response means yes or no and populate 'isConfirmed' "+
			"(true for \"yes\"/\"correct\"/affirmative, false for \"no\"/\"incorrect\"/negative). "+
			"If the response is neither a clear yes nor a clear no, leave 'isConfirmed' unset and set "+
			"'parsingError' to %q.",
			draft.Summary(), defaultParsingError(StageConfirm))
	default:
		return ""
	}
}

// captureErrorPrompt answers a voice adapter failure. Capture failures are
// not extraction failures: the stage is untouched and the user is asked to
// retry, except when the microphone itself is unusable.
func captureErrorPrompt(kind CaptureErrorKind, stage Stage, draft Draft) string {
	switch kind {
	case CaptureNoSpeech:
		return "I didn't hear anything. " + repeatPrompt(stage, draft)
	case CaptureMicUnavailable:
		return "I can't access a microphone right now. You can type the details into the form instead, or check your microphone and try again."
	case CapturePermissionDenied:
		return "Microphone access was denied. You can type the details into the form instead, or allow microphone access and try again."
	default:
		return "Something went wrong with voice capture. Please try speaking again."
	}
}

func countOr(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return fmt.Sprintf("%d", *v)
}
