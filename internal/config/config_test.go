package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CALC_CONFIG_PATH", "OPENAI_BASE_URL", "OPENAI_API_KEY", "GITHUB_TOKEN",
	"OPENAI_MODEL", "OPENAI_FALLBACK_MODEL", "CALC_SYSTEM_PROMPT", "CALC_QUESTION",
	"MCP_SERVER_NAME", "PORT", "JOKE_API_URL", "LLM_MAX_TOKENS", "TOOL_CONCURRENCY",
	"LLM_TIMEOUT", "JOKE_TIMEOUT",
}

// isolate runs the test from an empty directory with a clean environment.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, DefaultBaseURL, cfg.Model.BaseURL)
	assert.Equal(t, DefaultModel, cfg.Model.Name)
	assert.Equal(t, DefaultMaxTokens, cfg.Model.MaxTokens)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "calc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  name: yaml-model
  max_tokens: 200
  timeout: 5s
prompt:
  question: "What is 6 times 7?"
agent:
  tool_concurrency: 2
joke:
  url: http://jokes.local
`), 0o644))
	t.Setenv("CALC_CONFIG_PATH", path)
	t.Setenv("OPENAI_MODEL", "env-model")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Model.Name)
	assert.Equal(t, "gh-token", cfg.Model.APIKey)
	assert.Equal(t, 200, cfg.Model.MaxTokens)
	assert.Equal(t, 5*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "What is 6 times 7?", cfg.Prompt.Question)
	assert.Equal(t, DefaultSystemPrompt, cfg.Prompt.System)
	assert.Equal(t, 2, cfg.Agent.ToolConcurrency)
	assert.Equal(t, "http://jokes.local", cfg.Joke.URL)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GITHUB_TOKEN=from-dotenv\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("GITHUB_TOKEN") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Model.APIKey)
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)
	t.Setenv("CALC_CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	_, err := Load()
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.Unsetenv("CALC_CONFIG_PATH"))
	t.Setenv("LLM_MAX_TOKENS", "lots")
	_, err = Load()
	assert.ErrorContains(t, err, "LLM_MAX_TOKENS")
}
