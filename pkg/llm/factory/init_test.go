package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gliderlab/planact/pkg/llm"
)

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		typ      llm.ProviderType
		expected string
	}{
		{"", "openai"},
		{llm.ProviderOpenAI, "openai"},
		{llm.ProviderGoogle, "google"},
	}

	for _, tt := range tests {
		p, err := New(llm.Config{Type: tt.typ, APIKey: "k", Model: "m"})
		require.NoError(t, err)
		assert.Equal(t, tt.expected, p.Name())
		assert.Equal(t, llm.ProviderType(tt.expected), p.Type())
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(llm.Config{Type: "bedrock"})
	assert.Error(t, err)
}
