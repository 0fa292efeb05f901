// Package openai provides an llm.Client implementation backed by the OpenAI
// Chat Completions API via github.com/openai/openai-go.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/clearlane/deepresearch/llm"
)

// ChatClient captures the subset of the openai-go client used by the
// adapter, satisfied by the SDK's Chat.Completions service or a test double.
type ChatClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
}

// Client implements llm.Client via the OpenAI Chat Completions API.
type Client struct {
	chat  ChatClient
	model string
}

// New builds an OpenAI-backed client. defaultModel is used when
// llm.Request.Model is empty.
func New(chat ChatClient, defaultModel string) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	defaultModel = strings.TrimSpace(defaultModel)
	if defaultModel == "" {
		return nil, errors.New("openai: default model is required")
	}
	return &Client{chat: chat, model: defaultModel}, nil
}

// NewFromAPIKey constructs a client using the SDK's default HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(c.Chat.Completions, defaultModel)
}

// Complete renders a chat completion using the configured OpenAI client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if len(req.Messages) == 0 {
		return llm.Response{}, errors.New("openai: messages are required")
	}
	modelID := strings.TrimSpace(req.Model)
	if modelID == "" {
		modelID = c.model
	}

	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, sdk.SystemMessage(m.Content))
		case llm.RoleUser:
			messages = append(messages, sdk.UserMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, sdk.AssistantMessage(m.Content))
		default:
			return llm.Response{}, fmt.Errorf("openai: unsupported message role %q", m.Role)
		}
	}

	params := sdk.ChatCompletionNewParams{
		Model:    modelID,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(float64(req.Temperature))
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(req.MaxTokens))
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	return translateResponse(resp)
}

func translateResponse(resp *sdk.ChatCompletion) (llm.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return llm.Response{}, llm.ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return llm.Response{}, llm.ErrEmptyResponse
	}
	return llm.Response{
		Content:    content,
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: llm.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}
