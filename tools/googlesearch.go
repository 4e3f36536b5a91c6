package tools

import (
	"context"
	"errors"
	"log"
)

// GoogleSearchTool searches the web through a Dify workflow
type GoogleSearchTool struct {
	client *WorkflowClient
}

// NewGoogleSearchTool creates the googlesearch tool
func NewGoogleSearchTool(client *WorkflowClient) *GoogleSearchTool {
	return &GoogleSearchTool{client: client}
}

func (t *GoogleSearchTool) Name() string { return "googlesearch" }

func (t *GoogleSearchTool) Description() string {
	return "A function to perform Google search. Returns Google search results for the input keywords."
}

func (t *GoogleSearchTool) Parameters() map[string]any {
	return stringParams([2]string{"query", "Search query. Enter keywords separated by spaces."})
}

func (t *GoogleSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, err := RequireString(args, "query")
	if err != nil {
		return "", err
	}
	result, err := t.client.Run(ctx, t.Name(), map[string]any{"query": query}, "result")
	if errors.Is(err, ErrUnreachable) {
		log.Printf("[TOOL] googlesearch: request post error: %v", err)
		return "Failed to retrieve results", nil
	}
	return result, err
}
