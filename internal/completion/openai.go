package completion

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lumenworks/askdoc/internal/provider"
)

// OpenAICompleter answers prompts through an OpenAI-compatible chat API,
// switching to the vision model when the request carries an image.
type OpenAICompleter struct {
	client      *openai.Client
	chatModel   string
	visionModel string
	maxTokens   int
	temperature float32
	maxRetries  int
}

// Config holds the completion adapter settings.
type Config struct {
	ChatModel   string
	VisionModel string
	MaxTokens   int
	Temperature float32
	MaxRetries  int
}

// NewOpenAICompleter wraps the given client with the configured models.
func NewOpenAICompleter(client *openai.Client, cfg Config) *OpenAICompleter {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &OpenAICompleter{
		client:      client,
		chatModel:   cfg.ChatModel,
		visionModel: cfg.VisionModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
	}
}

// Complete sends the prompt and returns the generated text, retrying
// transient provider failures with exponential backoff.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := c.buildRequest(req)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := provider.SleepBackoff(ctx, attempt-1); err != nil {
				return "", fmt.Errorf("%w: %v", ErrProvider, err)
			}
		}
		resp, err := c.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			lastErr = err
			if provider.Retryable(err) {
				continue
			}
			return "", fmt.Errorf("%w: %v", ErrProvider, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%w: no choices returned", ErrProvider)
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("%w: %v", ErrProvider, lastErr)
}

func (c *OpenAICompleter) buildRequest(req Request) openai.ChatCompletionRequest {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.System},
	}
	model := c.chatModel
	if req.ImageDataURL != "" {
		model = c.visionModel
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: req.User},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: req.ImageDataURL},
				},
			},
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.User,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
}
