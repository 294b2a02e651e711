package mcp

import (
	"context"
	"fmt"
	"net/url"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"
)

const (
	HelpURI          = "help://calculator"
	GreetingTemplate = "greeting://{name}"
)

var greetingTemplate = uritemplate.MustNew(GreetingTemplate)

const helpText = `Calculator MCP - available operations:
- add(a, b): adds two numbers
- subtract(a, b): subtracts b from a
- multiply(a, b): multiplies two numbers
- divide(a, b): divides a by b
- power(base, exponent): raises base to exponent
- sqrt(number): square root of a non-negative number
- percentage(value, percentage): percentage of a value
- random-joke(): a random Chuck Norris joke

Available resources:
- greeting://<name>: personalised greeting
- help://calculator: this help`

func registerResources(s *sdk.Server) {
	s.AddResource(&sdk.Resource{
		URI:         HelpURI,
		Name:        "help",
		Description: "Lists the calculator operations and resources",
		MIMEType:    "text/plain",
	}, readHelp)

	s.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: GreetingTemplate,
		Name:        "greeting",
		Description: "Personalised greeting",
		MIMEType:    "text/plain",
	}, readGreeting)
}

func readHelp(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     helpText,
		}},
	}, nil
}

func readGreeting(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	name := GreetingName(uri)
	if name == "" {
		return nil, sdk.ResourceNotFoundError(uri)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Hello, %s! Welcome to the calculator MCP server.", name),
		}},
	}, nil
}

// GreetingName extracts the {name} part of a greeting URI, or "" when uri
// does not match the template.
func GreetingName(uri string) string {
	name := greetingTemplate.Match(uri).Get("name").String()
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}
