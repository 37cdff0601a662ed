package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to OpenAI or any OpenAI-compatible endpoint (set
// BaseURL for self-hosted models)
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIProvider creates the provider
func NewOpenAIProvider(apiKey, baseURL, model string, maxTokens int) (*OpenAIProvider, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Narrate generates the narrative via the Chat Completions API
func (p *OpenAIProvider) Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error) {
	chatModel := req.Model
	if chatModel == "" {
		chatModel = p.model
	}
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1000
	}

	chatReq := openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You summarize public-records research results. You state only what the listed records show and never assert guilt or add outside facts.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(req.Dossier),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3, // Keep the narrative close to the listed facts
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	narrative := strings.TrimSpace(resp.Choices[0].Message.Content)
	if narrative == "" {
		return nil, fmt.Errorf("empty narrative from OpenAI")
	}

	return &NarrateResponse{
		Narrative:  narrative,
		Model:      chatModel,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
