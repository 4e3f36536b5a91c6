package agent

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounter is a package-level tiktoken instance for accurate counting
var (
	tokenCounter     *tiktoken.Tiktoken
	tokenCounterOnce sync.Once
)

// initTokenCounter initializes tiktoken for accurate token counting
func initTokenCounter() {
	tokenCounterOnce.Do(func() {
		// cl100k_base is used by GPT-3.5 Turbo, GPT-4, GPT-4 Turbo
		tk, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("[WARN] Token estimation will use fallback method: %v", err)
			return
		}
		tokenCounter = tk
	})
}

// EstimateTokens returns the number of tokens in text, falling back to
// len/4 when the encoding is unavailable.
func EstimateTokens(text string) int {
	initTokenCounter()
	if tokenCounter != nil {
		return len(tokenCounter.Encode(text, nil, nil))
	}
	return len(text) / 4
}
