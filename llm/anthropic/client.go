// Package anthropic provides an llm.Client implementation backed by the
// Anthropic Claude Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/clearlane/deepresearch/llm"
)

type (
	// MessagesClient captures the subset of the Anthropic SDK used by the
	// adapter, satisfied by *sdk.MessageService or a test double.
	MessagesClient interface {
		New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	}

	// Client implements llm.Client on top of Anthropic Claude Messages.
	Client struct {
		msg          MessagesClient
		defaultModel string
		maxTokens    int
		temperature  float64
	}
)

// New builds an Anthropic-backed client. defaultModel is used when
// llm.Request.Model is empty; maxTokens bounds completion length when the
// request does not specify one.
func New(msg MessagesClient, defaultModel string, maxTokens int) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, defaultModel: defaultModel, maxTokens: maxTokens}, nil
}

// NewFromAPIKey constructs a client using the Anthropic SDK's default HTTP
// transport, authenticated with apiKey.
func NewFromAPIKey(apiKey, defaultModel string, maxTokens int) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, defaultModel, maxTokens)
}

// Complete issues a non-streaming Messages.New request and translates the
// response into llm.Response.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if len(req.Messages) == 0 {
		return llm.Response{}, errors.New("anthropic: at least one message is required")
	}

	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	var system []sdk.TextBlockParam
	conversation := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			if m.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content})
			}
		case llm.RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case llm.RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			return llm.Response{}, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return llm.Response{}, errors.New("anthropic: at least one user/assistant message is required")
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  conversation,
		Model:     sdk.Model(modelID),
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(float64(req.Temperature))
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("anthropic: messages.new: %w", err)
	}
	return translateResponse(msg)
}

func translateResponse(msg *sdk.Message) (llm.Response, error) {
	if msg == nil {
		return llm.Response{}, errors.New("anthropic: response message is nil")
	}
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return llm.Response{}, llm.ErrEmptyResponse
	}
	resp := llm.Response{
		Content:    text,
		StopReason: string(msg.StopReason),
	}
	if u := msg.Usage; u.InputTokens != 0 || u.OutputTokens != 0 {
		resp.Usage = llm.TokenUsage{
			InputTokens:  int(u.InputTokens),
			OutputTokens: int(u.OutputTokens),
			TotalTokens:  int(u.InputTokens + u.OutputTokens),
		}
	}
	return resp, nil
}
