package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = `You annotate source code for an architecture map.
Reply with one JSON object: {"description": string, "tags": [string], "architectureLayer": string}.
The description is one or two plain sentences on what the code is for.
architectureLayer is one of presentation, business, data, infrastructure, cross-cutting, or empty when unclear.`

// OpenAIOptions configure OpenAIAnnotator.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string // Empty uses the OpenAI endpoint
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *slog.Logger
}

// OpenAIAnnotator annotates through an OpenAI-compatible chat completion API.
type OpenAIAnnotator struct {
	client *openai.Client
	opts   OpenAIOptions
	logger *slog.Logger
}

// NewOpenAIAnnotator creates an annotator.
func NewOpenAIAnnotator(opts OpenAIOptions) (*OpenAIAnnotator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("semantic: API key is required")
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 300
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &OpenAIAnnotator{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
		logger: logger,
	}, nil
}

// Annotate sends one item to the model and parses its JSON reply.
func (a *OpenAIAnnotator) Annotate(ctx context.Context, req Request) (*Annotation, error) {
	a.logger.Debug("Requesting annotation", "target", req.Target, "id", req.ID, "model", a.opts.Model)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.opts.Model,
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	return ParseAnnotation(resp.Choices[0].Message.Content)
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", req.Target, req.Name)
	if req.Kind != "" {
		fmt.Fprintf(&b, " (%s)", req.Kind)
	}
	if req.Language != "" {
		fmt.Fprintf(&b, " in %s", req.Language)
	}
	b.WriteString("\n")
	if req.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Context)
	}
	b.WriteString("Code:\n")
	b.WriteString(req.Snippet)
	return b.String()
}

// ParseAnnotation decodes a model reply. Code fences around the JSON are
// tolerated.
func ParseAnnotation(content string) (*Annotation, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var ann Annotation
	if err := json.Unmarshal([]byte(content), &ann); err != nil {
		return nil, fmt.Errorf("failed to parse annotation: %w", err)
	}
	ann.Description = strings.TrimSpace(ann.Description)
	return &ann, nil
}
