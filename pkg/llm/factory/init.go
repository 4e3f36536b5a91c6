// Package factory builds the configured LLM provider
package factory

import (
	"fmt"
	"log"

	"github.com/gliderlab/planact/pkg/llm"
	"github.com/gliderlab/planact/pkg/llm/providers/google"
	"github.com/gliderlab/planact/pkg/llm/providers/openai"
)

// New builds the provider selected by cfg.Type
func New(cfg llm.Config) (llm.Provider, error) {
	switch cfg.Type {
	case "", llm.ProviderOpenAI:
		p := openai.New(cfg)
		log.Printf("[OK] Provider: OpenAI (model: %s)", p.GetConfig().Model)
		return p, nil
	case llm.ProviderGoogle:
		p := google.New(cfg)
		log.Printf("[OK] Provider: Google (model: %s)", p.GetConfig().Model)
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Type)
	}
}
