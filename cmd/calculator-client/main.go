// Command calculator-client asks a hosted chat model an arithmetic question
// and lets it answer with the tools of a calculator MCP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcp-calculator-lab/internal/agent"
	"github.com/mcp-calculator-lab/internal/config"
	"github.com/mcp-calculator-lab/internal/logging"
	"github.com/mcp-calculator-lab/llm"
)

func main() {
	question := flag.String("question", "", "question to ask (overrides CALC_QUESTION)")
	flag.Parse()

	// stdout is reserved for the answer.
	logging.InitTo("stderr")
	defer logging.Sync()

	if err := run(*question); err != nil {
		logging.Errorw("calculator client failed", "err", err)
		_ = logging.Sync()
		os.Exit(1)
	}
}

func run(question string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if question == "" {
		question = cfg.Prompt.Question
	}
	if cfg.Model.APIKey == "" {
		logging.Warnw("no API key set; export GITHUB_TOKEN or OPENAI_API_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectServer(ctx, "calculator-client", cfg.Server.Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logging.Warnw("mcp client close", "err", err)
		}
	}()

	model := llm.NewClient(cfg.Model)
	a, err := agent.New(model, client.Session(), agent.Options{
		SystemPrompt:    cfg.Prompt.System,
		MaxTokens:       cfg.Model.MaxTokens,
		ToolConcurrency: cfg.Agent.ToolConcurrency,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	logging.Infow("asking model", "model", model.Model(), "question", question)
	res, err := a.Solve(ctx, question)
	if err != nil {
		return err
	}
	for _, inv := range res.ToolCalls {
		logging.Infow("tool result", "tool", inv.Name, "arguments", inv.Arguments, "output", inv.Output, "error", inv.IsError)
	}
	logging.Infow("answer ready", "model_calls", res.ModelCalls, "tool_calls", len(res.ToolCalls))

	fmt.Println(res.Answer)
	return nil
}
