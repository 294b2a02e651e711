package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transport types accepted in TransportConfig.Type.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Manifest represents the top-level structure of an MCP manifest file.
type Manifest struct {
	Servers map[string]ServerConfig `json:"mcpServers" yaml:"mcpServers"`
}

// ServerConfig describes how to connect to a single MCP server.
type ServerConfig struct {
	Transport *TransportConfig  `json:"transport,omitempty" yaml:"transport,omitempty"`
	Command   string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args      []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Enabled   *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// TransportConfig captures remote connection information for an MCP server.
type TransportConfig struct {
	Type string `json:"type" yaml:"type"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Result holds the merged configuration after loading all manifest sources.
type Result struct {
	Servers map[string]ServerConfig
	Order   []string
	Sources []string
}

// LoadResult loads the MCP configuration. MCP_CONFIG_PATH, when set, is the
// only source; otherwise the workspace manifest is merged with the user
// manifest, the latter winning per server name.
func LoadResult() (Result, error) {
	result := Result{Servers: make(map[string]ServerConfig)}

	if overridePath := os.Getenv("MCP_CONFIG_PATH"); overridePath != "" {
		path, err := expandPath(overridePath)
		if err != nil {
			return result, err
		}
		manifest, err := readManifest(path)
		if err != nil {
			return result, err
		}
		mergeServers(result.Servers, manifest.Servers)
		result.Sources = append(result.Sources, path)
		finalizeOrder(&result)
		return result, nil
	}

	for _, locate := range []func() (string, error){workspaceManifestPath, userManifestPath} {
		path, err := locate()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return result, err
		}
		manifest, err := readManifest(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return result, err
		}
		mergeServers(result.Servers, manifest.Servers)
		result.Sources = append(result.Sources, path)
	}

	finalizeOrder(&result)
	return result, nil
}

// EnabledValue reports whether the server should be used.
func (s ServerConfig) EnabledValue() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// TransportType returns the lower-cased remote transport type, or "" for a
// command server.
func (s ServerConfig) TransportType() string {
	if s.Transport == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s.Transport.Type))
}

func finalizeOrder(result *Result) {
	names := make([]string, 0, len(result.Servers))
	for name := range result.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	result.Order = names
}

func mergeServers(dst map[string]ServerConfig, src map[string]ServerConfig) {
	for name, cfg := range src {
		dst[name] = normalizeConfig(cfg)
	}
}

func normalizeConfig(cfg ServerConfig) ServerConfig {
	if cfg.Args != nil {
		out := make([]string, len(cfg.Args))
		for i, arg := range cfg.Args {
			if expanded, err := expandPath(arg); err == nil {
				out[i] = expanded
			} else {
				out[i] = arg
			}
		}
		cfg.Args = out
	}
	if cfg.Command != "" {
		if expanded, err := expandPath(cfg.Command); err == nil {
			cfg.Command = expanded
		}
	}
	if len(cfg.Env) > 0 {
		env := make(map[string]string, len(cfg.Env))
		for k, v := range cfg.Env {
			if expanded, err := expandPath(v); err == nil {
				env[k] = expanded
			} else {
				env[k] = v
			}
		}
		cfg.Env = env
	}
	if cfg.Transport != nil {
		t := *cfg.Transport
		if t.URL != "" {
			if expanded, err := expandPath(t.URL); err == nil {
				t.URL = expanded
			}
		}
		cfg.Transport = &t
	}
	return cfg
}

// readManifest parses path as YAML when it ends in .yaml or .yml and as
// JSON otherwise.
func readManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &manifest)
	default:
		err = json.Unmarshal(data, &manifest)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if manifest.Servers == nil {
		manifest.Servers = make(map[string]ServerConfig)
	}
	return manifest, nil
}

func workspaceManifestPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	path := filepath.Join(cwd, ".mcp-calculator", "mcp.json")
	if _, err := os.Stat(path); err != nil {
		return path, err
	}
	return path, nil
}

func userManifestPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	path := filepath.Join(base, "mcp-calculator", "mcp.json")
	if _, err := os.Stat(path); err != nil {
		return path, err
	}
	return path, nil
}

func expandPath(value string) (string, error) {
	if !strings.HasPrefix(value, "~") {
		return value, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return value, err
	}
	if value == "~" {
		return home, nil
	}
	if strings.HasPrefix(value, "~/") {
		return filepath.Join(home, value[2:]), nil
	}
	return filepath.Join(home, value[1:]), nil
}
