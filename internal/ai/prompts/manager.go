// Package prompts loads the interviewer prompt templates embedded in the binary.
package prompts

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

const (
	InitialQuestions = "initial_questions"
	FollowUp         = "follow_up"
	Assessment       = "assessment"
	Transcription    = "transcription"
)

// Prompt is a rendered system instruction plus user message.
type Prompt struct {
	System string
	User   string
}

type template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Set holds every parsed template by name.
type Set struct {
	templates map[string]template
}

// Load parses the embedded templates.
func Load() (*Set, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read templates directory: %w", err)
	}

	set := &Set{templates: make(map[string]template, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := templateFS.ReadFile(path.Join("templates", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}

		var tpl template
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(tpl.User) == "" {
			return nil, fmt.Errorf("template %s has an empty user message", entry.Name())
		}

		set.templates[strings.TrimSuffix(entry.Name(), ".yaml")] = tpl
	}

	return set, nil
}

// Render substitutes {{KEY}} placeholders. Unknown placeholders are left as is.
func (s *Set) Render(name string, vars map[string]string) (Prompt, error) {
	tpl, ok := s.templates[name]
	if !ok {
		return Prompt{}, fmt.Errorf("template not found: %s", name)
	}

	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	replacer := strings.NewReplacer(pairs...)

	return Prompt{
		System: strings.TrimSpace(replacer.Replace(tpl.System)),
		User:   strings.TrimSpace(replacer.Replace(tpl.User)),
	}, nil
}
