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

// Package extract turns raw guest utterances into structured slot values.
// The Gemini extractor does the heavy lifting; a reflex extractor answers
// trivial utterances locally, and a cascade chains the two.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/atssj/prj-guest-list-planner/internal/conversation"
	"github.com/atssj/prj-guest-list-planner/internal/logging"
	"github.com/atssj/prj-guest-list-planner/internal/security"
)

// GeminiExtractor implements conversation.Extractor on top of the Gemini API.
type GeminiExtractor struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	name    string
	timeout time.Duration
}

// NewGeminiExtractor creates a Gemini-backed extractor. The API key and
// model name come from configuration.
func NewGeminiExtractor(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key must be provided")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"

	return &GeminiExtractor{
		client:  client,
		model:   model,
		name:    modelName,
		timeout: timeout,
	}, nil
}

// Close releases the underlying API client.
func (g *GeminiExtractor) Close() error {
	return g.client.Close()
}

// Extract sends one turn's utterance to Gemini and decodes the structured
// result. A transport or decode failure is returned as an error so the
// state machine can fall back to manual entry.
func (g *GeminiExtractor) Extract(ctx context.Context, req conversation.Request) (*conversation.Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := buildTurnPrompt(req)

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}

	text := concatTextParts(resp)
	result, err := parseTurnResponse(text, req.Stage)
	if err != nil {
		return nil, fmt.Errorf("error parsing gemini response: %w", err)
	}

	logging.LogExtraction(string(req.Stage), g.name,
		zap.Duration("latency", time.Since(start)),
		zap.Bool("has_error", result.ParsingError != ""),
	)

	return result, nil
}

// buildTurnPrompt creates the structured prompt for one extraction turn.
// The stage instruction pins down per-slot semantics; the schema block pins
// down the output shape.
func buildTurnPrompt(req conversation.Request) string {
	known, _ := json.Marshal(struct {
		FamilyName *string `json:"familyNameSoFar,omitempty"`
		Adults     *int    `json:"adultsSoFar,omitempty"`
		Children   *int    `json:"childrenSoFar,omitempty"`
	}{req.FamilyNameSoFar, req.AdultsSoFar, req.ChildrenSoFar})

	return fmt.Sprintf(`You are extracting guest details for an event guest list, one slot per turn.

Current stage: %s
Details collected so far: %s
The user said: "%s"

%s

Respond with ONLY a JSON object in this exact format (omit fields that do not apply):
{
  "extractedFamilyName": "the family name, only at the family_name stage",
  "extractedAdults": 2,
  "extractedChildren": 0,
  "isConfirmed": true,
  "parsingError": "a polite re-ask message, only when extraction failed",
  "nextPrompt": "the next question to ask the user"
}

Rules:
- Extract only the slot for the current stage; never change previously collected details.
- Numbers must be plain non-negative integers. "zero" and "none" mean 0.
- On failure, set parsingError and leave the slot field out entirely.
- nextPrompt should be natural and conversational.
- Only respond with the JSON object, no other text`,
		req.Stage, string(known), security.SanitizeLogInput(req.Utterance),
		conversation.StageInstruction(req.Stage, conversation.Draft{
			FamilyName: req.FamilyNameSoFar,
			Adults:     req.AdultsSoFar,
			Children:   req.ChildrenSoFar,
		}))
}

// parseTurnResponse decodes the model output into a turn result. Models
// sometimes wrap the JSON in prose or fences, so only the outermost object
// is decoded.
func parseTurnResponse(response string, stage conversation.Stage) (*conversation.Result, error) {
	jsonStr, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var result conversation.Result
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling extraction JSON: %w", err)
	}

	// Drop slot values the current stage never asked for. The state machine
	// repairs numeric inconsistencies itself, but cross-slot writes are
	// discarded here.
	switch stage {
	case conversation.StageFamilyName:
		result.ExtractedAdults = nil
		result.ExtractedChildren = nil
		result.IsConfirmed = nil
	case conversation.StageAdults:
		result.ExtractedFamilyName = nil
		result.ExtractedChildren = nil
		result.IsConfirmed = nil
	case conversation.StageChildren:
		result.ExtractedFamilyName = nil
		result.ExtractedAdults = nil
		result.IsConfirmed = nil
	case conversation.StageConfirm:
		result.ExtractedFamilyName = nil
		result.ExtractedAdults = nil
		result.ExtractedChildren = nil
	}

	if name := result.ExtractedFamilyName; name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			result.ExtractedFamilyName = nil
		} else {
			result.ExtractedFamilyName = &trimmed
		}
	}

	return &result, nil
}

// extractJSONObject finds the outermost JSON object in a model response.
func extractJSONObject(response string) (string, error) {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")

	if start == -1 || end == -1 || start >= end {
		return "", fmt.Errorf("no valid JSON found in response")
	}

	return response[start : end+1], nil
}

// concatTextParts joins the text parts of the first candidate.
func concatTextParts(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String()
}
