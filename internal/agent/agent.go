// Package agent answers a question by letting a chat model call the tools
// of a connected MCP session. It makes at most two model calls: one with
// the tool list, and one without tools once the tool results are in.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/openai/openai-go"
	"github.com/panjf2000/ants/v2"

	"github.com/mcp-calculator-lab/internal/logging"
	"github.com/mcp-calculator-lab/llm"
)

// NoResultText is sent back to the model when a tool returns no content.
const NoResultText = "The tool returned no result."

// ChatModel is satisfied by *llm.Client.
type ChatModel interface {
	CreateChatCompletion(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
}

// ToolSession is satisfied by *mcp.ClientSession.
type ToolSession interface {
	ListTools(ctx context.Context, params *sdk.ListToolsParams) (*sdk.ListToolsResult, error)
	CallTool(ctx context.Context, params *sdk.CallToolParams) (*sdk.CallToolResult, error)
}

type Options struct {
	SystemPrompt    string
	MaxTokens       int
	ToolConcurrency int
}

// Invocation records one tool call made on behalf of the model.
type Invocation struct {
	ID        string
	Name      string
	Arguments string
	Output    string
	IsError   bool
}

type Result struct {
	Question   string
	Answer     string
	ToolCalls  []Invocation
	ModelCalls int
}

type Agent struct {
	model   ChatModel
	session ToolSession
	pool    *ants.Pool
	opts    Options
}

func New(model ChatModel, session ToolSession, opts Options) (*Agent, error) {
	if model == nil || session == nil {
		return nil, errors.New("agent needs a model and a tool session")
	}
	if opts.ToolConcurrency <= 0 {
		opts.ToolConcurrency = 1
	}
	pool, err := ants.NewPool(opts.ToolConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool worker pool: %w", err)
	}
	return &Agent{model: model, session: session, pool: pool, opts: opts}, nil
}

// Close releases the worker pool.
func (a *Agent) Close() {
	a.pool.Release()
}

// Solve runs the request loop for question.
func (a *Agent) Solve(ctx context.Context, question string) (*Result, error) {
	tools, err := a.listTools(ctx)
	if err != nil {
		return nil, err
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if a.opts.SystemPrompt != "" {
		messages = append(messages, llm.SystemMessage(a.opts.SystemPrompt))
	}
	messages = append(messages, llm.UserMessage(question))

	res := &Result{Question: question}
	first, err := a.model.CreateChatCompletion(ctx, llm.ChatRequest{
		Messages:  messages,
		Tools:     tools,
		MaxTokens: a.opts.MaxTokens,
	})
	res.ModelCalls++
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}
	if len(first.ToolCalls) == 0 {
		res.Answer = first.Content
		return res, nil
	}

	messages = append(messages, llm.AssistantMessage(first.Content, first.ToolCalls))
	res.ToolCalls = a.dispatch(ctx, first.ToolCalls)
	for _, inv := range res.ToolCalls {
		messages = append(messages, llm.ToolMessage(inv.ID, inv.Output))
	}

	second, err := a.model.CreateChatCompletion(ctx, llm.ChatRequest{
		Messages:  messages,
		MaxTokens: a.opts.MaxTokens,
	})
	res.ModelCalls++
	if err != nil {
		return nil, fmt.Errorf("follow-up model call: %w", err)
	}
	res.Answer = second.Content
	return res, nil
}

func (a *Agent) listTools(ctx context.Context) ([]openai.ChatCompletionToolParam, error) {
	listed, err := a.session.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		tool, err := llm.ToolFromSchema(t.Name, t.Description, t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("adapt tool %s: %w", t.Name, err)
		}
		out = append(out, tool)
	}
	logging.Debugw("tools listed", "count", len(out))
	return out, nil
}

// dispatch runs every call on the pool. Results keep the order of calls.
func (a *Agent) dispatch(ctx context.Context, calls []llm.ToolCall) []Invocation {
	out := make([]Invocation, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			out[i] = a.invoke(ctx, call)
		}
		if err := a.pool.Submit(task); err != nil {
			wg.Done()
			out[i] = failed(call, fmt.Errorf("submit tool call: %w", err))
		}
	}
	wg.Wait()
	return out
}

func (a *Agent) invoke(ctx context.Context, call llm.ToolCall) Invocation {
	args, err := parseArguments(call.Arguments)
	if err != nil {
		return failed(call, err)
	}

	logging.Debugw("calling tool", "tool", call.Name, "arguments", call.Arguments)
	result, err := a.session.CallTool(ctx, &sdk.CallToolParams{Name: call.Name, Arguments: args})
	if err != nil {
		return failed(call, err)
	}

	inv := Invocation{ID: call.ID, Name: call.Name, Arguments: call.Arguments, Output: NoResultText, IsError: result.IsError}
	if text, ok := firstText(result); ok {
		inv.Output = text
	}
	logging.Infow("tool call finished", logging.ToolFields(call.Name, inv.IsError)...)
	return inv
}

func failed(call llm.ToolCall, err error) Invocation {
	logging.Warnw("tool call failed", "tool", call.Name, "err", err)
	return Invocation{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: call.Arguments,
		Output:    "Error: " + err.Error(),
		IsError:   true,
	}
}

// parseArguments decodes the model's argument text, repairing it first when
// it is not valid JSON. Empty text means no arguments.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, nil
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid tool arguments %q: %w", raw, err)
	}
	args = map[string]any{}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments %q: %w", raw, err)
	}
	return args, nil
}

func firstText(result *sdk.CallToolResult) (string, bool) {
	if result == nil || len(result.Content) == 0 {
		return "", false
	}
	text, ok := result.Content[0].(*sdk.TextContent)
	if !ok || text.Text == "" {
		return "", false
	}
	return text.Text, true
}
