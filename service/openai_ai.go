package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/trandvq/docsense/types"
)

var systemMessageDocumentAssistant = openai.ChatCompletionMessage{
	Role:    openai.ChatMessageRoleSystem,
	Content: "You are a document assistant. You answer questions strictly from the document excerpts included in the prompt. When the excerpts do not contain the answer, say so plainly instead of guessing.",
}

// OpenAIService talks to any OpenAI-compatible completion endpoint,
// including local servers that expose the same API.
type OpenAIService struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewOpenAIService(baseURL, apiKey, model string, maxTokens int, temperature float32, timeout time.Duration) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &OpenAIService{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (s *OpenAIService) Chat(ctx context.Context, prompt string, messages []types.Message) (string, error) {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+2)
	openaiMessages = append(openaiMessages, systemMessageDocumentAssistant)
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == types.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Messages:    openaiMessages,
			Model:       s.model,
			MaxTokens:   s.maxTokens,
			Temperature: s.temperature,
		},
	)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}

	return resp.Choices[0].Message.Content, nil
}

func (s *OpenAIService) Model() string {
	return s.model
}

func (s *OpenAIService) Health(ctx context.Context) bool {
	_, err := s.client.ListModels(ctx)
	return err == nil
}
