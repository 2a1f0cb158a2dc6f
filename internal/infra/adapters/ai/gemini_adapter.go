package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
	"fermi-notifier/internal/domain/ports/adapter"
)

var _ adapter.TextGenerator = (*GeminiAdapter)(nil)

const DefaultGeminiModel = "gemini-2.0-flash"

// problemSchema constrains Gemini's JSON output to the fields the parser expects.
var problemSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"question":  {Type: genai.TypeString, Description: "The estimation problem statement."},
		"reasoning": {Type: genai.TypeString, Description: "Step-by-step assumptions and arithmetic."},
		"answer":    {Type: genai.TypeString, Description: "Final approximate answer starting with a number."},
	},
	Required:         []string{"question", "reasoning", "answer"},
	PropertyOrdering: []string{"question", "reasoning", "answer"},
}

type GeminiAdapter struct {
	client *genai.Client
	model  string
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
// baseURL may be empty for the public endpoint.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, modelName string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini: empty api key", domain.ErrConfiguration)
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultGeminiModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", domain.ErrConfiguration, err)
	}
	return &GeminiAdapter{client: c, model: modelName}, nil
}

func (g *GeminiAdapter) Name() string  { return "gemini" }
func (g *GeminiAdapter) Model() string { return g.model }

func (g *GeminiAdapter) Generate(ctx context.Context, req model.GenerationRequest) (string, adapter.Usage, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		MaxOutputTokens:  int32(req.MaxOutputTokens),
		ResponseMIMEType: "application/json",
		ResponseSchema:   problemSchema,
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", adapter.Usage{}, classifyGeminiError(err)
	}

	u := adapter.Usage{}
	if resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		reason := "no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return "", u, fmt.Errorf("%w: gemini: %s", domain.ErrGenerationInvalid, reason)
	}
	cand := resp.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil && !p.Thought {
			text.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", u, fmt.Errorf("%w: gemini: empty output (finish reason %s)", domain.ErrGenerationInvalid, cand.FinishReason)
	}
	return text.String(), u, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus("gemini", apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus("gemini", apiErrPtr.Code, apiErrPtr.Message)
	}
	return classifyTransport("gemini", err)
}
