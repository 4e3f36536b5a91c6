package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gliderlab/planact/pkg/kv"
)

// ErrUnreachable marks transport failures talking to a workflow endpoint
var ErrUnreachable = errors.New("workflow endpoint unreachable")

// DifyConfig addresses one Dify workflow app
type DifyConfig struct {
	Endpoint string
	APIKey   string
	User     string
}

// WorkflowClient runs blocking Dify workflows
type WorkflowClient struct {
	cfg    DifyConfig
	client *http.Client
	cache  *kv.Cache
}

// NewWorkflowClient creates a client with a 10s connect and 30s total
// timeout. cache may be nil.
func NewWorkflowClient(cfg DifyConfig, cache *kv.Cache) *WorkflowClient {
	if cfg.User == "" {
		cfg.User = "abc"
	}
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	return &WorkflowClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				Proxy:       http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			},
		},
		cache: cache,
	}
}

type workflowRequest struct {
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
}

type workflowResponse struct {
	Data struct {
		Status  string         `json:"status"`
		Error   string         `json:"error"`
		Outputs map[string]any `json:"outputs"`
	} `json:"data"`
}

// Run posts inputs to /workflows/run and returns data.outputs[outputKey].
// The cache is keyed by tool name and the encoded inputs.
func (c *WorkflowClient) Run(ctx context.Context, tool string, inputs map[string]any, outputKey string) (string, error) {
	body, err := json.Marshal(workflowRequest{
		Inputs:       inputs,
		ResponseMode: "blocking",
		User:         c.cfg.User,
	})
	if err != nil {
		return "", err
	}
	cacheInput := string(body)
	if v, ok := c.cache.Lookup(tool, cacheInput); ok {
		log.Printf("[TOOL] %s: cache hit", tool)
		return v, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/workflows/run", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("workflow returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var wr workflowResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", fmt.Errorf("decode workflow response: %w", err)
	}
	if wr.Data.Error != "" {
		return "", fmt.Errorf("workflow failed: %s", wr.Data.Error)
	}
	raw, ok := wr.Data.Outputs[outputKey]
	if !ok || raw == nil {
		return "", fmt.Errorf("workflow output %q missing", outputKey)
	}

	var out string
	switch v := raw.(type) {
	case string:
		out = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		out = string(b)
	}
	c.cache.Store(tool, cacheInput, out)
	return out, nil
}
