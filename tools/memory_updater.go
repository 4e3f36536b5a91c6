package tools

import (
	"context"
	"log"
)

// MemorySaver persists experience notes
type MemorySaver interface {
	Save(text string) error
}

// MemoryUpdaterTool lets the model record user feedback as experience
type MemoryUpdaterTool struct {
	memory MemorySaver
}

// NewMemoryUpdaterTool creates the memory_updater tool
func NewMemoryUpdaterTool(memory MemorySaver) *MemoryUpdaterTool {
	return &MemoryUpdaterTool{memory: memory}
}

func (t *MemoryUpdaterTool) Name() string { return "memory_updater" }

func (t *MemoryUpdaterTool) Description() string {
	return "Update the memory. If the user has a positive or negative comment on the answer to the question, save it as knowledge to the memory." +
		"If there is no feedback from the user or the task is not completed, do not execute."
}

func (t *MemoryUpdaterTool) Parameters() map[string]any {
	return stringParams([2]string{
		"memory_sentences",
		"The sentences to save to the memory. Save the success experience or failure experience based on the user's feedback. The sentences must be one line. Include the tool used, its steps, and its arguments.",
	})
}

func (t *MemoryUpdaterTool) Execute(_ context.Context, args map[string]any) (string, error) {
	sentences, err := RequireString(args, "memory_sentences")
	if err != nil {
		return "", err
	}
	log.Printf("[TOOL] memory_updater: save %q", sentences)
	if err := t.memory.Save(sentences); err != nil {
		return "", err
	}
	return "Saved the experience to the memory.", nil
}
