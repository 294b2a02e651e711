// Package config loads settings for the calculator binaries from defaults,
// an optional YAML file, a .env file and the environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL   = "https://models.inference.ai.azure.com"
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 1000
	DefaultPort      = "3001"
	DefaultConfig    = "config/config.yaml"

	DefaultSystemPrompt = "You are a simple calculator assistant. Only use the tools you are explicitly given. " +
		"Do not try to simulate missing functions by combining other tools. " +
		"If you cannot perform an operation directly, say that you do not have that capability."
	DefaultQuestion = "What is the sum of 2 and 3?"
)

type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Prompt PromptConfig `yaml:"prompt"`
	Server ServerConfig `yaml:"server"`
	Agent  AgentConfig  `yaml:"agent"`
	Joke   JokeConfig   `yaml:"joke"`
}

type ModelConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Name          string        `yaml:"name"`
	FallbackName  string        `yaml:"fallback_name"`
	MaxTokens     int           `yaml:"max_tokens"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	FallbackDelay time.Duration `yaml:"fallback_delay"`
}

type PromptConfig struct {
	System   string `yaml:"system"`
	Question string `yaml:"question"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    string `yaml:"port"`
}

type AgentConfig struct {
	ToolConcurrency int `yaml:"tool_concurrency"`
}

type JokeConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model: ModelConfig{
			BaseURL:       DefaultBaseURL,
			Name:          DefaultModel,
			MaxTokens:     DefaultMaxTokens,
			Timeout:       60 * time.Second,
			MaxRetries:    2,
			FallbackDelay: 250 * time.Millisecond,
		},
		Prompt: PromptConfig{
			System:   DefaultSystemPrompt,
			Question: DefaultQuestion,
		},
		Server: ServerConfig{
			Version: "1.0.0",
			Port:    DefaultPort,
		},
		Agent: AgentConfig{ToolConcurrency: 4},
		Joke:  JokeConfig{Timeout: 10 * time.Second},
	}
}

// Load reads .env (if present), then the YAML file named by
// CALC_CONFIG_PATH or config/config.yaml (if present), then applies
// environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	path, explicit := os.LookupEnv("CALC_CONFIG_PATH")
	if !explicit || path == "" {
		path = DefaultConfig
		explicit = false
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Model.BaseURL, "OPENAI_BASE_URL")
	// GITHUB_TOKEN wins: the default endpoint is GitHub Models.
	setString(&c.Model.APIKey, "OPENAI_API_KEY")
	setString(&c.Model.APIKey, "GITHUB_TOKEN")
	setString(&c.Model.Name, "OPENAI_MODEL")
	setString(&c.Model.FallbackName, "OPENAI_FALLBACK_MODEL")
	setString(&c.Prompt.System, "CALC_SYSTEM_PROMPT")
	setString(&c.Prompt.Question, "CALC_QUESTION")
	setString(&c.Server.Name, "MCP_SERVER_NAME")
	setString(&c.Server.Port, "PORT")
	setString(&c.Joke.URL, "JOKE_API_URL")

	if err := setInt(&c.Model.MaxTokens, "LLM_MAX_TOKENS"); err != nil {
		return err
	}
	if err := setInt(&c.Agent.ToolConcurrency, "TOOL_CONCURRENCY"); err != nil {
		return err
	}
	if err := setDuration(&c.Model.Timeout, "LLM_TIMEOUT"); err != nil {
		return err
	}
	return setDuration(&c.Joke.Timeout, "JOKE_TIMEOUT")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
