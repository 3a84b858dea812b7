// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"eightd/pkg/workflow"
)

const validatorSystemPrompt = `You are a quality engineer reviewing one section of an 8D complaint report.
Judge whether the section content is complete and specific enough to act on.
Respond with strict JSON only, matching this schema:
{"decision":"pass"|"fail","missing_fields":[string],"quality_issues":[string],"suggestions":[string],"field_improvements":{field:string},"overall_assessment":string}`

// OpenAI delegates the section judgement to a chat model. Any transport
// or parse failure is returned as an error; the handler maps it to a 502
// so the client shows the real reason instead of a fake verdict.
type OpenAI struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

// NewOpenAI builds a validator against the given endpoint. baseURL may be
// empty for api.openai.com, or point at any OpenAI-compatible server.
func NewOpenAI(apiKey, baseURL, model string, log *slog.Logger) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if log == nil {
		log = slog.Default()
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model, log: log}
}

func (o *OpenAI) Validate(ctx context.Context, step *workflow.Step, sectionKey string) (*workflow.SectionValidation, error) {
	prompt, err := buildSectionPrompt(step, sectionKey)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: validatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("AI validation call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("AI validator returned no choices")
	}

	var verdict struct {
		Decision          string            `json:"decision"`
		MissingFields     []string          `json:"missing_fields"`
		QualityIssues     []string          `json:"quality_issues"`
		Suggestions       []string          `json:"suggestions"`
		FieldImprovements map[string]string `json:"field_improvements"`
		OverallAssessment string            `json:"overall_assessment"`
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		o.log.Error("AI validator returned malformed JSON", "content", content, "error", err)
		return nil, fmt.Errorf("AI validator returned malformed JSON: %w", err)
	}

	v := &workflow.SectionValidation{
		StepID:            step.ID,
		SectionKey:        sectionKey,
		Decision:          workflow.DecisionFail,
		MissingFields:     verdict.MissingFields,
		QualityIssues:     verdict.QualityIssues,
		Suggestions:       verdict.Suggestions,
		FieldImprovements: verdict.FieldImprovements,
		OverallAssessment: verdict.OverallAssessment,
	}
	if strings.EqualFold(verdict.Decision, string(workflow.DecisionPass)) {
		v.Decision = workflow.DecisionPass
	}
	return v, nil
}

// buildSectionPrompt renders the section's fields and values as labelled
// lines so the model sees exactly what the engineer typed.
func buildSectionPrompt(step *workflow.Step, sectionKey string) (string, error) {
	fields := workflow.SectionFields(step.Code, sectionKey)
	if len(fields) == 0 {
		return "", fmt.Errorf("step %s has no section %q", step.Code, sectionKey)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Step %s (%s), section %q:\n", step.Code, step.Code.Title(), sectionKey)
	for _, f := range fields {
		switch f.Kind {
		case workflow.FieldBool:
			fmt.Fprintf(&b, "- %s: %t\n", f.Label, workflow.BoolField(step.Data, f.Key))
		case workflow.FieldMultiSelect:
			fmt.Fprintf(&b, "- %s: %s\n", f.Label, strings.Join(workflow.ListField(step.Data, f.Key), ", "))
		default:
			fmt.Fprintf(&b, "- %s: %s\n", f.Label, workflow.StringField(step.Data, f.Key))
		}
	}
	return b.String(), nil
}
