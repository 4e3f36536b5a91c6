// Tools module - tool invocation framework
package tools

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/gliderlab/planact/pkg/llm"
)

// Tool defines the tool interface
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Policy holds tool allow/deny lists. Empty Allow means all.
type Policy struct {
	Allow []string
	Deny  []string
}

// Allows reports whether a tool may be registered. Deny wins over allow
// unless the name is listed explicitly in Allow.
func (p *Policy) Allows(name string) bool {
	if p == nil {
		return true
	}
	explicit := false
	for _, a := range p.Allow {
		if a == name {
			explicit = true
		}
	}
	for _, d := range p.Deny {
		if (d == "*" || d == name) && !explicit {
			return false
		}
	}
	if len(p.Allow) == 0 {
		return true
	}
	for _, a := range p.Allow {
		if a == "*" || a == name {
			return true
		}
	}
	return false
}

// Registry is the fixed, read-only set of tools offered to the model
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry, rejecting duplicate names
func NewRegistry(tools ...Tool) (*Registry, error) {
	return NewRegistryWithPolicy(nil, tools...)
}

// NewRegistryWithPolicy builds a registry keeping only tools the policy allows
func NewRegistryWithPolicy(policy *Policy, tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, dup := r.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool name: %s", name)
		}
		if !policy.Allows(name) {
			log.Printf("[TOOL] skipped by policy: %s", name)
			continue
		}
		r.tools[name] = t
		r.order = append(r.order, name)
		log.Printf("[OK] tool registered: %s", name)
	}
	return r, nil
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of tools
func (r *Registry) Len() int { return len(r.tools) }

// List returns tool names sorted
func (r *Registry) List() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Definitions returns the function specs sent to the model, in
// registration order
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Describe renders one "- name: description" line per tool
func (r *Registry) Describe() string {
	lines := make([]string, 0, len(r.order))
	for _, name := range r.order {
		lines = append(lines, fmt.Sprintf("- %s: %s", name, r.tools[name].Description()))
	}
	return strings.Join(lines, "\n")
}

// ParamKeys returns the argument names a tool declares
func ParamKeys(t Tool) []string {
	props, _ := t.Parameters()["properties"].(map[string]any)
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString gets a string arg
func GetString(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RequireString gets a non-empty string arg
func RequireString(args map[string]any, key string) (string, error) {
	s := strings.TrimSpace(GetString(args, key))
	if s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

// stringParams builds a JSON schema object of required string properties
func stringParams(props ...[2]string) map[string]any {
	properties := make(map[string]any, len(props))
	required := make([]string, 0, len(props))
	for _, p := range props {
		properties[p[0]] = map[string]any{
			"type":        "string",
			"description": p[1],
		}
		required = append(required, p[0])
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
