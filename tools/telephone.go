package tools

import (
	"context"
	"errors"
	"log"
)

// TelephoneTool looks up a company's representative phone number
type TelephoneTool struct {
	client *WorkflowClient
}

// NewTelephoneTool creates the get_representative_telephone tool
func NewTelephoneTool(client *WorkflowClient) *TelephoneTool {
	return &TelephoneTool{client: client}
}

func (t *TelephoneTool) Name() string { return "get_representative_telephone" }

func (t *TelephoneTool) Description() string {
	return "This function retrieves the representative's phone number from a company name. Only execute when specifically requested to obtain a phone number."
}

func (t *TelephoneTool) Parameters() map[string]any {
	return stringParams([2]string{"company", "Company name (e.g. Google, Toyota, CyberAgent)"})
}

func (t *TelephoneTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	company, err := RequireString(args, "company")
	if err != nil {
		return "", err
	}
	phone, err := t.client.Run(ctx, t.Name(), map[string]any{"input": company}, "output")
	if errors.Is(err, ErrUnreachable) {
		log.Printf("[TOOL] get_representative_telephone: %v", err)
		return "Failed to get telephone number", nil
	}
	return phone, err
}
