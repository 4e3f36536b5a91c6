package main

import (
	"fmt"
	"log"

	"github.com/gliderlab/planact/agent"
	"github.com/gliderlab/planact/memory"
	pkgconfig "github.com/gliderlab/planact/pkg/config"
	"github.com/gliderlab/planact/pkg/kv"
	"github.com/gliderlab/planact/pkg/llm/factory"
	"github.com/gliderlab/planact/pkg/prompts"
	"github.com/gliderlab/planact/tools"
)

// app holds everything the subcommands share
type app struct {
	cfg   *pkgconfig.Config
	agent *agent.Agent
	kv    *kv.KV
	cache *kv.Cache
}

func newApp(configPath, envPath string) (*app, error) {
	cfg, err := loadConfig(configPath, envPath)
	if err != nil {
		return nil, err
	}
	return buildApp(cfg)
}

func buildApp(cfg *pkgconfig.Config) (*app, error) {
	provider, err := factory.New(cfg.LLM())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}
	var cache *kv.Cache
	if ttl > 0 {
		store, err := kv.Open(kv.DefaultOptions(cfg.KVDir))
		if err != nil {
			log.Printf("KV store init failed: %v (continuing without tool cache)", err)
		} else {
			log.Printf("KV store initialized: %s", cfg.KVDir)
			a.kv = store
			cache = kv.NewCache(store, ttl)
		}
	}

	mem := memory.NewStore(cfg.MemoryDir)
	registry, err := buildRegistry(cfg, cache, mem)
	if err != nil {
		a.Close()
		return nil, err
	}

	set, err := prompts.Load(cfg.PromptsDir, cfg.Language)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	truncation := agent.DefaultToolResultTruncationConfig
	if cfg.Tools.MaxOutputSize > 0 {
		truncation.MaxBytes = cfg.Tools.MaxOutputSize
	}

	a.agent, err = agent.New(agent.Config{
		Provider:      provider,
		Registry:      registry,
		Memory:        mem,
		Prompts:       set,
		Settings:      cfg.Profile().Settings(),
		MaxSteps:      cfg.MaxSteps,
		SameCallLimit: cfg.SameCallLimit,
		ContextTokens: cfg.ContextTokens,
		Thinking:      agent.ParseThinkingMode(cfg.Thinking),
		Truncation:    truncation,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Printf("Agent ready: tools=%d memory=%s language=%s", registry.Len(), mem.Dir(), set.Language())
	return a, nil
}

func buildRegistry(cfg *pkgconfig.Config, cache *kv.Cache, mem *memory.Store) (*tools.Registry, error) {
	search := cfg.Tools.GoogleSearch
	phone := cfg.Tools.Telephone
	if search.Endpoint == "" {
		log.Printf("[WARN] googlesearch has no Dify endpoint; calls will fail")
	}
	if phone.Endpoint == "" {
		log.Printf("[WARN] get_representative_telephone has no Dify endpoint; calls will fail")
	}

	user := cfg.Tools.DifyUser
	policy := &tools.Policy{Allow: cfg.Tools.Allow, Deny: cfg.Tools.Deny}
	return tools.NewRegistryWithPolicy(policy,
		tools.NewGoogleSearchTool(tools.NewWorkflowClient(
			tools.DifyConfig{Endpoint: search.Endpoint, APIKey: search.APIKey, User: user}, cache)),
		tools.NewTelephoneTool(tools.NewWorkflowClient(
			tools.DifyConfig{Endpoint: phone.Endpoint, APIKey: phone.APIKey, User: user}, cache)),
		tools.NewMemoryUpdaterTool(mem),
	)
}

// Close releases the tool cache
func (a *app) Close() {
	if a.kv == nil {
		return
	}
	if err := a.kv.Close(); err != nil {
		log.Printf("KV store close failed: %v", err)
	}
}
