package prompts

import (
	"strings"
	"testing"
)

func TestLoadParsesEveryTemplate(t *testing.T) {
	set, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	for _, name := range []string{InitialQuestions, FollowUp, Assessment, Transcription} {
		if _, ok := set.templates[name]; !ok {
			t.Fatalf("template %s not loaded", name)
		}
	}
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	set, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	prompt, err := set.Render(InitialQuestions, map[string]string{
		"SYSTEM_PROMPT": "You are Ada, a friendly interviewer.",
		"MAX_QUESTIONS": "4",
		"CV_TEXT":       "Go developer, 5 years",
		"JD_TEXT":       "Senior backend engineer",
	})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}

	if !strings.HasPrefix(prompt.System, "You are Ada, a friendly interviewer.") {
		t.Fatalf("system prompt not substituted: %q", prompt.System)
	}
	for _, want := range []string{"generate 4 interview questions", "Go developer, 5 years", "Senior backend engineer"} {
		if !strings.Contains(prompt.User, want) {
			t.Fatalf("expected user prompt to contain %q, got %q", want, prompt.User)
		}
	}
	if strings.Contains(prompt.User, "{{") {
		t.Fatalf("unresolved placeholder in %q", prompt.User)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	set, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if _, err := set.Render("nope", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}
