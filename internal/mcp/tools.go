package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcp-calculator-lab/internal/calc"
	"github.com/mcp-calculator-lab/internal/joke"
	"github.com/mcp-calculator-lab/internal/logging"
)

// Tool names served by the calculator.
const (
	ToolAdd        = "add"
	ToolSubtract   = "subtract"
	ToolMultiply   = "multiply"
	ToolDivide     = "divide"
	ToolPower      = "power"
	ToolSqrt       = "sqrt"
	ToolPercentage = "percentage"
	ToolRandomJoke = "random-joke"
)

// ToolNames lists every tool in registration order.
var ToolNames = []string{
	ToolAdd, ToolSubtract, ToolMultiply, ToolDivide,
	ToolPower, ToolSqrt, ToolPercentage, ToolRandomJoke,
}

type addArgs struct {
	A float64 `json:"a" jsonschema:"first number to add"`
	B float64 `json:"b" jsonschema:"second number to add"`
}

type subtractArgs struct {
	A float64 `json:"a" jsonschema:"minuend (the number subtracted from)"`
	B float64 `json:"b" jsonschema:"subtrahend (the number to subtract)"`
}

type multiplyArgs struct {
	A float64 `json:"a" jsonschema:"first factor"`
	B float64 `json:"b" jsonschema:"second factor"`
}

type divideArgs struct {
	A float64 `json:"a" jsonschema:"dividend (the number to divide)"`
	B float64 `json:"b" jsonschema:"divisor (the number to divide by)"`
}

type powerArgs struct {
	Base     float64 `json:"base" jsonschema:"base number"`
	Exponent float64 `json:"exponent" jsonschema:"exponent"`
}

type sqrtArgs struct {
	Number float64 `json:"number" jsonschema:"number to take the square root of"`
}

type percentageArgs struct {
	Value      float64 `json:"value" jsonschema:"base value"`
	Percentage float64 `json:"percentage" jsonschema:"percentage of the value to compute"`
}

type noArgs struct{}

func textResult(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}

// errorResult reports a tool failure in-band so the model can read it.
func errorResult(err error) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: "Error: " + err.Error()}},
	}
}

// addTool registers h under name and logs every invocation.
func addTool[In any](s *sdk.Server, name, description string, h func(context.Context, In) *sdk.CallToolResult) {
	sdk.AddTool(s, &sdk.Tool{Name: name, Description: description},
		func(ctx context.Context, req *sdk.CallToolRequest, args In) (*sdk.CallToolResult, any, error) {
			res := h(ctx, args)
			logging.Debugw("tool called", logging.ToolFields(name, res.IsError)...)
			return res, nil, nil
		})
}

func registerTools(s *sdk.Server, jokes joke.Fetcher) {
	addTool(s, ToolAdd, "Adds two numbers and returns the result", func(_ context.Context, in addArgs) *sdk.CallToolResult {
		return textResult(fmt.Sprintf("%s + %s = %s", calc.Format(in.A), calc.Format(in.B), calc.Format(calc.Add(in.A, in.B))))
	})

	addTool(s, ToolSubtract, "Subtracts the second number from the first", func(_ context.Context, in subtractArgs) *sdk.CallToolResult {
		return textResult(fmt.Sprintf("%s - %s = %s", calc.Format(in.A), calc.Format(in.B), calc.Format(calc.Subtract(in.A, in.B))))
	})

	addTool(s, ToolMultiply, "Multiplies two numbers", func(_ context.Context, in multiplyArgs) *sdk.CallToolResult {
		return textResult(fmt.Sprintf("%s × %s = %s", calc.Format(in.A), calc.Format(in.B), calc.Format(calc.Multiply(in.A, in.B))))
	})

	addTool(s, ToolDivide, "Divides the first number by the second", func(_ context.Context, in divideArgs) *sdk.CallToolResult {
		q, err := calc.Divide(in.A, in.B)
		if err != nil {
			return errorResult(err)
		}
		return textResult(fmt.Sprintf("%s ÷ %s = %s", calc.Format(in.A), calc.Format(in.B), calc.Format(q)))
	})

	addTool(s, ToolPower, "Raises a base to an exponent", func(_ context.Context, in powerArgs) *sdk.CallToolResult {
		return textResult(fmt.Sprintf("%s^%s = %s", calc.Format(in.Base), calc.Format(in.Exponent), calc.Format(calc.Power(in.Base, in.Exponent))))
	})

	addTool(s, ToolSqrt, "Computes the square root of a non-negative number", func(_ context.Context, in sqrtArgs) *sdk.CallToolResult {
		r, err := calc.Sqrt(in.Number)
		if err != nil {
			return errorResult(err)
		}
		return textResult(fmt.Sprintf("√%s = %s", calc.Format(in.Number), calc.Format(r)))
	})

	addTool(s, ToolPercentage, "Computes a percentage of a value", func(_ context.Context, in percentageArgs) *sdk.CallToolResult {
		r := calc.Percentage(in.Value, in.Percentage)
		return textResult(fmt.Sprintf("%s%% of %s = %s", calc.Format(in.Percentage), calc.Format(in.Value), calc.Format(r)))
	})

	addTool(s, ToolRandomJoke, "Fetches a random Chuck Norris joke", func(ctx context.Context, _ noArgs) *sdk.CallToolResult {
		text, err := jokes.Random(ctx)
		if err != nil {
			logging.Warnw("joke fetch failed", "err", err)
			return errorResult(fmt.Errorf("could not fetch a joke, try again"))
		}
		return textResult("Chuck Norris joke: " + text)
	})
}
