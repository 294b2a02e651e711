package llm

import (
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

func SystemMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfSystem: &openai.ChatCompletionSystemMessageParam{
			Content: openai.ChatCompletionSystemMessageParamContentUnion{OfString: openai.String(content)},
		},
	}
}

func UserMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(content)},
		},
	}
}

// AssistantMessage echoes a model turn back into the history, including the
// tool calls it requested.
func AssistantMessage(content string, calls []ToolCall) openai.ChatCompletionMessageParamUnion {
	msg := &openai.ChatCompletionAssistantMessageParam{}
	if content != "" {
		msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(content)}
	}
	for _, call := range calls {
		msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: msg}
}

// ToolMessage answers the tool call with id toolCallID.
func ToolMessage(toolCallID, content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfTool: &openai.ChatCompletionToolMessageParam{
			Content:    openai.ChatCompletionToolMessageParamContentUnion{OfString: openai.String(content)},
			ToolCallID: toolCallID,
		},
	}
}

// ToolFromSchema adapts an MCP tool input schema to a function tool. Only
// the object type, properties and required list are forwarded.
func ToolFromSchema(name, description string, schema any) (openai.ChatCompletionToolParam, error) {
	var raw struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if schema != nil {
		data, err := json.Marshal(schema)
		if err != nil {
			return openai.ChatCompletionToolParam{}, err
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return openai.ChatCompletionToolParam{}, err
		}
	}
	if raw.Properties == nil {
		raw.Properties = map[string]any{}
	}
	params := shared.FunctionParameters{
		"type":       "object",
		"properties": raw.Properties,
	}
	if len(raw.Required) > 0 {
		params["required"] = raw.Required
	}

	fn := openai.FunctionDefinitionParam{
		Name:       name,
		Parameters: params,
	}
	if description != "" {
		fn.Description = openai.String(description)
	}
	return openai.ChatCompletionToolParam{Function: fn}, nil
}
