// Package prompts renders the reasoning and response stage prompts
package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"
)

// DefaultLanguage is the language replies are requested in
const DefaultLanguage = "Japanese"

// File names looked up by Load
const (
	ReasoningFile = "reasoning.tmpl"
	ResponseFile  = "response.tmpl"
)

// Data fills the template slots
type Data struct {
	AvailableTools string
	Memory         string
	Context        string
	Query          string
	Thought        string
	Language       string
}

// Set holds the two stage templates
type Set struct {
	reasoning *template.Template
	response  *template.Template
	language  string
}

// Default returns the built-in templates
func Default(language string) *Set {
	if language == "" {
		language = DefaultLanguage
	}
	return &Set{
		reasoning: template.Must(template.New(ReasoningFile).Parse(reasoningPrompt)),
		response:  template.Must(template.New(ResponseFile).Parse(responsePrompt)),
		language:  language,
	}
}

// Load returns the built-in templates with any override found in dir.
// An empty dir or a missing file keeps the default.
func Load(dir, language string) (*Set, error) {
	s := Default(language)
	if dir == "" {
		return s, nil
	}
	for name, dst := range map[string]**template.Template{
		ReasoningFile: &s.reasoning,
		ResponseFile:  &s.response,
	} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", name, err)
		}
		tpl, err := template.New(name).Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", name, err)
		}
		*dst = tpl
	}
	return s, nil
}

// Language returns the reply language
func (s *Set) Language() string { return s.language }

// Reasoning renders the planning prompt
func (s *Set) Reasoning(d Data) (string, error) {
	return s.render(s.reasoning, d)
}

// Response renders the answering prompt
func (s *Set) Response(d Data) (string, error) {
	return s.render(s.response, d)
}

func (s *Set) render(tpl *template.Template, d Data) (string, error) {
	if d.Language == "" {
		d.Language = s.language
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}
