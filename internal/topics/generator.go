// Package topics turns commit diffs into candidate learning topics via
// an OpenAI chat completion with a strict JSON schema response.
package topics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/gitlore/api"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const systemPrompt = `You are a senior %[1]s mentor building a personal knowledge tree
for a developer from their own commit history.

The current knowledge tree is:

%[2]s

Analyze the commit diffs the user provides and propose learning topics.
For each topic:
- "path" is a "/"-separated placement in the tree; the last segment is
  the topic name.
- "temp_id" is a short key ("t1", "t2", ...) unique within this batch.
- If the topic belongs under another topic IN THIS BATCH, set
  "parent_temp_id" to that topic's temp_id and list the parent BEFORE
  the child.
- If it belongs under an existing tree node, leave both parent fields
  null; placement by path is resolved later.
- "description" teaches the concept; "code_example" is a minimal
  self-contained snippet; "use_cases" lists concrete applications.

Propose only topics genuinely exercised by the diffs.`

// topicsSchema is the strict response schema. Every property is
// required with nullable parent fields, per the structured-output rules.
var topicsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"topics": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":         map[string]any{"type": "string"},
					"description":  map[string]any{"type": "string"},
					"code_example": map[string]any{"type": "string"},
					"use_cases": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"temp_id":        map[string]any{"type": "string"},
					"parent_id":      map[string]any{"type": []string{"string", "null"}},
					"parent_temp_id": map[string]any{"type": []string{"string", "null"}},
				},
				"required": []string{
					"path", "description", "code_example", "use_cases",
					"temp_id", "parent_id", "parent_temp_id",
				},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"topics"},
	"additionalProperties": false,
}

// GenerateRequest carries everything the model needs for one batch.
// Diffs and the rendered tree are opaque text here.
type GenerateRequest struct {
	Repo         string
	Diffs        string
	RootLanguage string
	Instructions string
	FocusArea    string

	// KnowledgeTree is the rendered current tree, shown to the model.
	KnowledgeTree string
	// KnownNodes is the flat persisted set, used to match candidate
	// paths onto existing parents after generation.
	KnownNodes []api.TopicNode
}

// Generator proposes candidate topics from commit diffs.
type Generator struct {
	client openai.Client
	model  shared.ChatModel
}

// New returns a Generator for the given API key and model. An empty
// model selects gpt-4o, matching the hosted default.
func New(apiKey, model string) *Generator {
	m := shared.ChatModel(model)
	if model == "" {
		m = openai.ChatModelGPT4o
	}
	return &Generator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

// Generate calls the model and returns parsed candidates with parents
// matched against the known nodes. Failures propagate unchanged; there
// is no retry here.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) ([]api.CandidateTopic, error) {
	system := fmt.Sprintf(systemPrompt, req.RootLanguage, req.KnowledgeTree)

	var user strings.Builder
	fmt.Fprintf(&user, "Analyze these commit diffs and generate learning topics:\n\n%s\n", req.Diffs)
	if req.Instructions != "" {
		fmt.Fprintf(&user, "\nAdditional instructions: %s\n", req.Instructions)
	}
	if req.FocusArea != "" {
		fmt.Fprintf(&user, "\nFocus on: %s\n", req.FocusArea)
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user.String()),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "learning_topics",
					Strict: openai.Bool(true),
					Schema: topicsSchema,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate topics for %s: %w", req.Repo, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}

	cands, err := parseTopics(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	MatchParents(cands, req.KnownNodes)
	return cands, nil
}
