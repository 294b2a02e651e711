package mcp

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJokes struct {
	text string
	err  error
}

func (s stubJokes) Random(context.Context) (string, error) { return s.text, s.err }

// connectInMemory connects a client session to a fresh calculator server.
func connectInMemory(t *testing.T, jokes stubJokes) *sdk.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := NewCalculatorServer(ServerOptions{Jokes: jokes})
	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callText(t *testing.T, cs *sdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := cs.CallTool(ctx, &sdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok, "unexpected content type %T", res.Content[0])
	return text.Text, res.IsError
}

func TestListTools(t *testing.T) {
	cs := connectInMemory(t, stubJokes{})
	res, err := cs.ListTools(context.Background(), &sdk.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	want := append([]string(nil), ToolNames...)
	sort.Strings(want)
	sort.Strings(names)
	assert.Equal(t, want, names)
}

func TestCallTools(t *testing.T) {
	cs := connectInMemory(t, stubJokes{text: "Chuck Norris can divide by zero."})

	tests := []struct {
		name    string
		args    map[string]any
		want    string
		isError bool
	}{
		{ToolAdd, map[string]any{"a": 2, "b": 3}, "2 + 3 = 5", false},
		{ToolSubtract, map[string]any{"a": 2, "b": 3.5}, "2 - 3.5 = -1.5", false},
		{ToolMultiply, map[string]any{"a": 4, "b": 2.5}, "4 × 2.5 = 10", false},
		{ToolDivide, map[string]any{"a": 7, "b": 2}, "7 ÷ 2 = 3.5", false},
		{ToolDivide, map[string]any{"a": 7, "b": 0}, "Error: cannot divide by zero", true},
		{ToolPower, map[string]any{"base": 2, "exponent": 10}, "2^10 = 1024", false},
		{ToolSqrt, map[string]any{"number": 9}, "√9 = 3", false},
		{ToolSqrt, map[string]any{"number": 1e-14}, "√1e-14 = 1e-7", false},
		{ToolSqrt, map[string]any{"number": -1}, "Error: cannot take the square root of a negative number", true},
		{ToolPercentage, map[string]any{"value": 200, "percentage": 15}, "15% of 200 = 30", false},
		{ToolRandomJoke, map[string]any{}, "Chuck Norris joke: Chuck Norris can divide by zero.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isError := callText(t, cs, tt.name, tt.args)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.isError, isError)
		})
	}
}

func TestRandomJokeFailure(t *testing.T) {
	cs := connectInMemory(t, stubJokes{err: errors.New("offline")})
	got, isError := callText(t, cs, ToolRandomJoke, map[string]any{})
	assert.True(t, isError)
	assert.Equal(t, "Error: could not fetch a joke, try again", got)
}

func TestCallToolRejectsMissingArguments(t *testing.T) {
	cs := connectInMemory(t, stubJokes{})
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      ToolAdd,
		Arguments: map[string]any{"a": 1},
	})
	// Schema violations surface either as a protocol error or a tool error.
	if err == nil {
		assert.True(t, res.IsError)
	}
}

func TestReadResources(t *testing.T) {
	cs := connectInMemory(t, stubJokes{})
	ctx := context.Background()

	help, err := cs.ReadResource(ctx, &sdk.ReadResourceParams{URI: HelpURI})
	require.NoError(t, err)
	require.Len(t, help.Contents, 1)
	assert.Contains(t, help.Contents[0].Text, "add(a, b)")
	assert.Contains(t, help.Contents[0].Text, "greeting://")

	greeting, err := cs.ReadResource(ctx, &sdk.ReadResourceParams{URI: "greeting://Ada"})
	require.NoError(t, err)
	require.Len(t, greeting.Contents, 1)
	assert.Equal(t, "Hello, Ada! Welcome to the calculator MCP server.", greeting.Contents[0].Text)
	assert.Equal(t, "greeting://Ada", greeting.Contents[0].URI)

	resources, err := cs.ListResources(ctx, &sdk.ListResourcesParams{})
	require.NoError(t, err)
	require.Len(t, resources.Resources, 1)
	assert.Equal(t, HelpURI, resources.Resources[0].URI)

	templates, err := cs.ListResourceTemplates(ctx, &sdk.ListResourceTemplatesParams{})
	require.NoError(t, err)
	require.Len(t, templates.ResourceTemplates, 1)
	assert.Equal(t, GreetingTemplate, templates.ResourceTemplates[0].URITemplate)
}

func TestGreetingName(t *testing.T) {
	assert.Equal(t, "Ada", GreetingName("greeting://Ada"))
	assert.Equal(t, "Ana Maria", GreetingName("greeting://Ana%20Maria"))
	assert.Equal(t, "", GreetingName("help://calculator"))
}
