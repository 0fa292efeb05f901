// Package bedrock provides an llm.Client implementation backed by the AWS
// Bedrock Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"

	"github.com/clearlane/deepresearch/llm"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client the
// adapter needs, satisfied by *bedrockruntime.Client or a test double.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client implements llm.Client on top of AWS Bedrock Converse.
type Client struct {
	runtime      RuntimeClient
	defaultModel string
}

// New builds a Bedrock-backed client. defaultModel is a Bedrock model ARN or
// inference profile ID, used when llm.Request.Model is empty.
func New(runtime RuntimeClient, defaultModel string) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("bedrock: default model is required")
	}
	return &Client{runtime: runtime, defaultModel: defaultModel}, nil
}

// Complete issues a Converse request and translates the response into
// llm.Response.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if len(req.Messages) == 0 {
		return llm.Response{}, errors.New("bedrock: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}

	var system []brtypes.SystemContentBlock
	var messages []brtypes.Message
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			if m.Content != "" {
				system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Content})
			}
		case llm.RoleUser:
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
			})
		case llm.RoleAssistant:
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
			})
		default:
			return llm.Response{}, fmt.Errorf("bedrock: unsupported message role %q", m.Role)
		}
	}
	if len(messages) == 0 {
		return llm.Response{}, errors.New("bedrock: at least one user/assistant message is required")
	}

	infCfg := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		maxTokens := int32(req.MaxTokens)
		infCfg.MaxTokens = &maxTokens
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		infCfg.Temperature = &temp
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:         &modelID,
		Messages:        messages,
		InferenceConfig: infCfg,
	}
	if len(system) > 0 {
		input.System = system
	}

	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return llm.Response{}, fmt.Errorf("bedrock: converse: %s: %w", apiErr.ErrorCode(), err)
		}
		return llm.Response{}, fmt.Errorf("bedrock: converse: %w", err)
	}
	return translateResponse(out)
}

func translateResponse(out *bedrockruntime.ConverseOutput) (llm.Response, error) {
	if out == nil || out.Output == nil {
		return llm.Response{}, llm.ErrEmptyResponse
	}
	member, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return llm.Response{}, llm.ErrEmptyResponse
	}
	var text string
	for _, block := range member.Value.Content {
		if tb, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}
	if text == "" {
		return llm.Response{}, llm.ErrEmptyResponse
	}
	resp := llm.Response{
		Content:    text,
		StopReason: string(out.StopReason),
	}
	if u := out.Usage; u != nil {
		resp.Usage = llm.TokenUsage{
			InputTokens:  int(derefInt32(u.InputTokens)),
			OutputTokens: int(derefInt32(u.OutputTokens)),
			TotalTokens:  int(derefInt32(u.TotalTokens)),
		}
	}
	return resp, nil
}

func derefInt32(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}
