// Package agent runs the conversational model with tool-calling support.
// The orchestrator hands it a spliced system prompt, the conversation
// history, and the guarded graph query tool; everything upstream of that
// (schema selection, tenant scoping) has already happened.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"

	"github.com/duplocloud/dcaf-sub001/internal/types"
)

// Role values for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string
	Content string
}

// Tool is a function the model may invoke during a run. Parameters is a JSON
// schema object describing the arguments. Execute errors are surfaced to the
// model as tool-execution failures, never retried on its behalf.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Execute     func(ctx context.Context, args map[string]any) (string, error)
}

// Request is one agent invocation.
type Request struct {
	System   string
	Messages []Message
	Tools    []Tool
}

// Result is the agent's final answer.
type Result struct {
	Text      string
	ToolCalls int
}

// Runner executes one agent request to completion.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// LLMRunner is the default Runner over a langchaingo model. It loops on tool
// calls with a bounded budget; hitting the budget is an error, not a
// truncated answer.
type LLMRunner struct {
	model        llms.Model
	maxToolCalls int
	logger       *slog.Logger
}

// NewLLMRunner creates a runner over the given model.
func NewLLMRunner(model llms.Model, maxToolCalls int, logger *slog.Logger) *LLMRunner {
	if maxToolCalls < 1 {
		maxToolCalls = 1
	}
	return &LLMRunner{
		model:        model,
		maxToolCalls: maxToolCalls,
		logger:       logger,
	}
}

// Run drives the generate/tool-execute loop until the model produces a final
// text answer or the tool-call budget is exhausted.
func (r *LLMRunner) Run(ctx context.Context, req Request) (*Result, error) {
	messages := buildMessages(req)
	options := buildOptions(req.Tools)

	toolCalls := 0
	for round := 0; round <= r.maxToolCalls; round++ {
		resp, err := r.model.GenerateContent(ctx, messages, options...)
		if err != nil {
			return nil, types.WrapError(types.AGENT_RUN_FAILED, "model call failed", err)
		}
		if len(resp.Choices) == 0 {
			return nil, types.NewError(types.AGENT_RUN_FAILED, "model returned no choices")
		}
		choice := resp.Choices[0]

		if len(choice.ToolCalls) == 0 {
			return &Result{Text: choice.Content, ToolCalls: toolCalls}, nil
		}

		if toolCalls+len(choice.ToolCalls) > r.maxToolCalls {
			return nil, types.NewError(types.AGENT_RUN_FAILED,
				fmt.Sprintf("tool call budget of %d exhausted", r.maxToolCalls))
		}

		messages = append(messages, assistantToolCallMessage(choice))
		for _, tc := range choice.ToolCalls {
			toolCalls++
			messages = append(messages, r.executeToolCall(ctx, req.Tools, tc))
		}
	}

	return nil, types.NewError(types.AGENT_RUN_FAILED,
		fmt.Sprintf("tool call budget of %d exhausted", r.maxToolCalls))
}

// executeToolCall runs one tool call and wraps the outcome as a tool message.
// Execution failures become tool-result text so the model can recover or
// explain, rather than aborting the whole run.
func (r *LLMRunner) executeToolCall(ctx context.Context, tools []Tool, tc llms.ToolCall) llms.MessageContent {
	name := ""
	arguments := ""
	if tc.FunctionCall != nil {
		name = tc.FunctionCall.Name
		arguments = tc.FunctionCall.Arguments
	}

	output, err := r.dispatch(ctx, tools, name, arguments)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		output = "tool execution failed: " + err.Error()
	}

	return llms.MessageContent{
		Role: llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{
			llms.ToolCallResponse{
				ToolCallID: tc.ID,
				Name:       name,
				Content:    output,
			},
		},
	}
}

func (r *LLMRunner) dispatch(ctx context.Context, tools []Tool, name, arguments string) (string, error) {
	for _, tool := range tools {
		if tool.Name != name {
			continue
		}
		args := map[string]any{}
		if arguments != "" {
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return "", fmt.Errorf("malformed tool arguments: %w", err)
			}
		}
		r.logger.Debug("executing tool call", "tool", name)
		return tool.Execute(ctx, args)
	}
	return "", fmt.Errorf("unknown tool %q", name)
}

func buildMessages(req Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, msg := range req.Messages {
		messages = append(messages, llms.TextParts(chatMessageType(msg.Role), msg.Content))
	}
	return messages
}

func chatMessageType(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func buildOptions(tools []Tool) []llms.CallOption {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]llms.Tool, 0, len(tools))
	for _, tool := range tools {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return []llms.CallOption{llms.WithTools(defs)}
}

// assistantToolCallMessage echoes the model's tool-call turn back into the
// transcript so the following tool responses have their antecedent.
func assistantToolCallMessage(choice *llms.ContentChoice) llms.MessageContent {
	parts := make([]llms.ContentPart, 0, len(choice.ToolCalls)+1)
	if choice.Content != "" {
		parts = append(parts, llms.TextPart(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		parts = append(parts, tc)
	}
	return llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts}
}
