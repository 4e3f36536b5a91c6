package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gliderlab/planact/pkg/llm"
)

// Profile names selected by MODE
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Profile holds the model settings of one deployment mode
type Profile struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Settings converts the profile to request settings
func (p Profile) Settings() llm.Settings {
	return llm.Settings{
		Model:       p.Model,
		Temperature: p.Temperature,
		TopP:        p.TopP,
		MaxTokens:   p.MaxTokens,
	}
}

// DifyEndpoint is one Dify workflow used by a tool
type DifyEndpoint struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// GatewayConfig is the websocket listener
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// ToolsConfig filters and configures tools
type ToolsConfig struct {
	Allow         []string     `yaml:"allow"`
	Deny          []string     `yaml:"deny"`
	GoogleSearch  DifyEndpoint `yaml:"googlesearch"`
	Telephone     DifyEndpoint `yaml:"telephone"`
	DifyUser      string       `yaml:"dify_user"`
	CacheTTL      string       `yaml:"cache_ttl"`
	MaxOutputSize int          `yaml:"max_output_bytes"`
}

// Config is the full application configuration
type Config struct {
	Mode     string             `yaml:"mode"`
	Provider string             `yaml:"provider"`
	APIKey   string             `yaml:"api_key"`
	BaseURL  string             `yaml:"base_url"`
	Timeout  int                `yaml:"timeout"`
	Profiles map[string]Profile `yaml:"profiles"`

	MaxSteps      int    `yaml:"max_steps"`
	SameCallLimit int    `yaml:"same_call_limit"`
	ContextTokens int    `yaml:"context_tokens"`
	Language      string `yaml:"language"`
	Thinking      string `yaml:"thinking"`
	PromptsDir    string `yaml:"prompts_dir"`

	MemoryDir string `yaml:"memory_dir"`
	KVDir     string `yaml:"kv_dir"`

	Gateway GatewayConfig `yaml:"gateway"`
	Tools   ToolsConfig   `yaml:"tools"`
}

// Default returns the built-in configuration
func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		Mode:     ModeDevelopment,
		Provider: string(llm.ProviderOpenAI),
		Timeout:  DefaultLLMTimeoutSec,
		Profiles: map[string]Profile{
			ModeDevelopment: {Model: "gpt-4o-mini", Temperature: 0.7, TopP: 1},
			ModeProduction:  {Model: "gpt-4o", Temperature: 0.2, TopP: 1},
		},
		MaxSteps:      DefaultMaxSteps,
		SameCallLimit: DefaultSameCallLimit,
		ContextTokens: DefaultContextTokens,
		Language:      DefaultLanguage,
		Thinking:      "stream",
		MemoryDir:     DefaultMemoryDir(dataDir),
		KVDir:         DefaultKVDir(dataDir),
		Gateway:       GatewayConfig{Host: DefaultGatewayHost, Port: DefaultGatewayPort},
		Tools: ToolsConfig{
			DifyUser: DefaultDifyUser,
			CacheTTL: DefaultCacheTTL.String(),
		},
	}
}

// Load builds the configuration. Later sources win:
// defaults, the YAML file, env.config, then the process environment.
// Empty paths are skipped; a missing env.config is not an error.
func Load(path, envPath string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	var fileEnv map[string]string
	if envPath != "" {
		fileEnv = ReadEnvConfig(envPath)
	}
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) string) error {
	setString := func(dst *string, key string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) error {
		v := lookup(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString(&c.Mode, "MODE")
	setString(&c.Provider, "LLM_PROVIDER")
	setString(&c.BaseURL, "LLM_BASE_URL")
	setString(&c.Language, "AGENT_LANGUAGE")
	setString(&c.Thinking, "AGENT_THINKING")
	setString(&c.PromptsDir, "AGENT_PROMPTS_DIR")
	setString(&c.MemoryDir, "AGENT_MEMORY_DIR")
	setString(&c.KVDir, "AGENT_KV_DIR")
	setString(&c.Gateway.Host, "GATEWAY_HOST")
	setString(&c.Tools.CacheTTL, "TOOL_CACHE_TTL")
	setString(&c.Tools.GoogleSearch.Endpoint, "DIFY_GOOGLESEARCH_API_ENDPOINT")
	setString(&c.Tools.GoogleSearch.APIKey, "DIFY_GOOGLESEARCH_API_KEY")
	setString(&c.Tools.Telephone.Endpoint, "DIFY_TELEPHONE_API_ENDPOINT")
	setString(&c.Tools.Telephone.APIKey, "DIFY_TELEPHONE_API_KEY")

	// The provider key follows the provider in use.
	switch llm.ProviderType(c.Provider) {
	case llm.ProviderGoogle:
		setString(&c.APIKey, "GOOGLE_API_KEY")
	default:
		setString(&c.APIKey, "OPENAI_API_KEY")
	}
	setString(&c.APIKey, "LLM_API_KEY")

	for key, dst := range map[string]*int{
		"LLM_TIMEOUT":           &c.Timeout,
		"AGENT_MAX_STEPS":       &c.MaxSteps,
		"AGENT_SAME_CALL_LIMIT": &c.SameCallLimit,
		"AGENT_CONTEXT_TOKENS":  &c.ContextTokens,
		"GATEWAY_PORT":          &c.Gateway.Port,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the values that cannot be defaulted later
func (c *Config) Validate() error {
	var errs []error
	if _, err := llm.ParseProviderType(c.Provider); err != nil {
		errs = append(errs, err)
	}
	if _, ok := c.Profiles[c.Mode]; !ok {
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid gateway port %d", c.Gateway.Port))
	}
	if _, err := c.CacheTTL(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Profile returns the model settings selected by Mode
func (c *Config) Profile() Profile {
	return c.Profiles[c.Mode]
}

// LLM returns the provider configuration
func (c *Config) LLM() llm.Config {
	return llm.Config{
		Type:    llm.ProviderType(c.Provider),
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Model:   c.Profile().Model,
		Timeout: c.Timeout,
	}
}

// CacheTTL parses the tool cache lifetime; zero disables the cache
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Tools.CacheTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Tools.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid tools.cache_ttl: %w", err)
	}
	return d, nil
}
