package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
	"fermi-notifier/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.TextGenerator = (*OpenAIAdapter)(nil)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIAdapter talks to the Chat Completions API or any compatible gateway
// (set baseURL, e.g. https://api.metisai.ir/openai/v1).
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, baseURL, modelName string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key empty", domain.ErrConfiguration)
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// the pipeline owns retries
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &OpenAIAdapter{client: openai.NewClient(opts...), model: modelName}, nil
}

func (o *OpenAIAdapter) Name() string  { return "openai" }
func (o *OpenAIAdapter) Model() string { return o.model }

func (o *OpenAIAdapter) Generate(ctx context.Context, req model.GenerationRequest) (string, adapter.Usage, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstruction))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    messages,
		Temperature: openai.Float(float64(req.Temperature)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	res, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", adapter.Usage{}, classifyStatus("openai", apiErr.StatusCode, apiErr.Message)
		}
		return "", adapter.Usage{}, classifyTransport("openai", err)
	}

	u := adapter.Usage{
		PromptTokens:     int(res.Usage.PromptTokens),
		CompletionTokens: int(res.Usage.CompletionTokens),
		TotalTokens:      int(res.Usage.TotalTokens),
	}
	for _, c := range res.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			return c.Message.Content, u, nil
		}
	}
	return "", u, fmt.Errorf("%w: openai: no choice content", domain.ErrGenerationInvalid)
}
