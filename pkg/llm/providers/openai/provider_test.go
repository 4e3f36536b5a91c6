package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gliderlab/planact/pkg/llm"
)

func sseServer(t *testing.T, chunks []string, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if gotBody != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(gotBody))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestStreamTextAndToolCalls(t *testing.T) {
	chunks := []string{
		`{"id":"1","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"id":"1","choices":[]}`,
		`{"id":"1","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"id":"1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","type":"function","function":{"name":"echo","arguments":"{\"te"}}]}}]}`,
		`{"id":"1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"xt\":\"hi\"}"}}]}}]}`,
	}
	var body map[string]any
	srv := sseServer(t, chunks, &body)
	defer srv.Close()

	p := New(llm.Config{APIKey: "sk-test", BaseURL: srv.URL + "/", Model: "gpt-test"})
	res := llm.Open(context.Background(), p, &llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Tools: []llm.ToolDefinition{{
			Name:       "echo",
			Parameters: map[string]any{"type": "object"},
		}},
	})
	require.True(t, res.OK(), "%v", res.Err)

	var text string
	var frags []llm.ToolCallFragment
	for d, err := range res.Deltas() {
		require.NoError(t, err)
		text += d.Content
		frags = append(frags, d.ToolCalls...)
	}

	assert.Equal(t, "Hello", text)
	require.Len(t, frags, 2)
	assert.Equal(t, "call_a", frags[0].ID)
	assert.Equal(t, "echo", frags[0].Name)
	assert.Equal(t, `{"te`, frags[0].ArgumentsDelta)
	assert.Equal(t, 0, frags[1].Index)
	assert.Equal(t, `xt":"hi"}`, frags[1].ArgumentsDelta)

	assert.Equal(t, "gpt-test", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.Len(t, body["tools"], 1)
}

func TestStreamRejectsJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","choices":[{"message":{"role":"assistant","content":"hi"}}]}`)
	}))
	defer srv.Close()

	p := New(llm.Config{APIKey: "sk-test", BaseURL: srv.URL})
	res := llm.Open(context.Background(), p, &llm.Request{})
	require.False(t, res.OK())

	var setupErr *llm.SetupError
	assert.ErrorAs(t, res.Err, &setupErr)
}

func TestStreamServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	res := llm.Open(context.Background(), New(llm.Config{APIKey: "sk-test", BaseURL: srv.URL}), &llm.Request{})
	require.False(t, res.OK())
	assert.Contains(t, res.Err.Error(), "bad key")
}

func TestToOpenAIMessagesCarriesToolCalls(t *testing.T) {
	msgs := toOpenAIMessages([]llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "echo", Arguments: "{}"}}},
		{Role: llm.RoleTool, ToolCallID: "c1", Name: "echo", Content: "out"},
	})
	require.Len(t, msgs, 2)
	require.Len(t, msgs[0].ToolCalls, 1)
	assert.Equal(t, "echo", msgs[0].ToolCalls[0].Function.Name)
	assert.Equal(t, "c1", msgs[1].ToolCallID)
}
