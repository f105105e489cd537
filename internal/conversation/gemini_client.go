package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiLLMClient implements LLMClient using Google's Gemini API.
type GeminiLLMClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiLLMClient creates a new Gemini LLM client.
func NewGeminiLLMClient(ctx context.Context, apiKey, modelID string) (*GeminiLLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiLLMClient{
		client:  client,
		modelID: modelID,
	}, nil
}

// Complete sends a completion request to Gemini and returns the response.
func (c *GeminiLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := c.client.GenerativeModel(c.modelID)

	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.TopP > 0 {
		model.SetTopP(req.TopP)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}

	if len(req.System) > 0 {
		systemText := strings.Join(req.System, "\n\n")
		if strings.TrimSpace(systemText) != "" {
			model.SystemInstruction = genai.NewUserContent(genai.Text(systemText))
		}
	}

	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: geminiDeclarations(req.Tools)}}
	}

	if len(req.Messages) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini requires at least one message")
	}

	cs := model.StartChat()

	// All messages except the last become history; the last is sent live.
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		content, err := geminiContent(msg)
		if err != nil {
			return LLMResponse{}, err
		}
		if content != nil {
			cs.History = append(cs.History, content)
		}
	}

	lastParts, err := geminiParts(req.Messages[len(req.Messages)-1])
	if err != nil {
		return LLMResponse{}, err
	}
	if len(lastParts) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini last message is empty")
	}

	resp, err := cs.SendMessage(ctx, lastParts...)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: gemini completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini returned empty content")
	}

	result := LLMResponse{
		StopReason: candidate.FinishReason.String(),
	}
	var responseText strings.Builder
	for i, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			responseText.WriteString(string(v))
		case genai.FunctionCall:
			args, err := json.Marshal(v.Args)
			if err != nil {
				return LLMResponse{}, fmt.Errorf("conversation: gemini function args: %w", err)
			}
			// Gemini does not assign invocation ids, so we synthesize them.
			result.ToolCalls = append(result.ToolCalls, ToolInvocation{
				ID:        fmt.Sprintf("%s-%d", v.Name, i),
				Name:      v.Name,
				Arguments: args,
			})
		}
	}
	result.Text = strings.TrimSpace(responseText.String())

	if resp.UsageMetadata != nil {
		result.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}

	return result, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiLLMClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func geminiDeclarations(specs []ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		props := make(map[string]*genai.Schema, len(spec.Schema.Properties))
		for name, prop := range spec.Schema.Properties {
			props[name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: prop.Description,
				Enum:        prop.Enum,
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   spec.Schema.Required,
			},
		})
	}
	return decls
}

func geminiContent(msg ChatMessage) (*genai.Content, error) {
	parts, err := geminiParts(msg)
	if err != nil || len(parts) == 0 {
		return nil, err
	}
	role := "user"
	switch msg.Role {
	case ChatRoleSystem:
		// System prompts are carried via SystemInstruction.
		return nil, nil
	case ChatRoleAssistant:
		role = "model"
	case ChatRoleTool:
		role = "function"
	}
	return &genai.Content{Role: role, Parts: parts}, nil
}

func geminiParts(msg ChatMessage) ([]genai.Part, error) {
	switch msg.Role {
	case ChatRoleTool:
		var response map[string]any
		if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
			response = map[string]any{"output": msg.Content}
		}
		return []genai.Part{genai.FunctionResponse{Name: msg.ToolName, Response: response}}, nil
	case ChatRoleAssistant:
		parts := make([]genai.Part, 0, 1+len(msg.ToolCalls))
		if content := strings.TrimSpace(msg.Content); content != "" {
			parts = append(parts, genai.Text(content))
		}
		for _, call := range msg.ToolCalls {
			var args map[string]any
			if len(call.Arguments) > 0 {
				if err := json.Unmarshal(call.Arguments, &args); err != nil {
					return nil, fmt.Errorf("conversation: tool call %s arguments: %w", call.Name, err)
				}
			}
			parts = append(parts, genai.FunctionCall{Name: call.Name, Args: args})
		}
		return parts, nil
	default:
		if content := strings.TrimSpace(msg.Content); content != "" {
			return []genai.Part{genai.Text(content)}, nil
		}
		return nil, nil
	}
}
