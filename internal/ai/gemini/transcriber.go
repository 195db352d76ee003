package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/spigell/interviewer/internal/ai/prompts"
)

const defaultAudioMIMEType = "audio/webm"

// Transcriber converts candidate audio to text with a multimodal Gemini model.
type Transcriber struct {
	generator contentGenerator
	prompts   *prompts.Set
	language  string
	mimeType  string
}

func NewTranscriber(generator contentGenerator, set *prompts.Set, language, mimeType string) (*Transcriber, error) {
	if generator == nil {
		return nil, errors.New("content generator is required")
	}
	if set == nil {
		var err error
		if set, err = prompts.Load(); err != nil {
			return nil, err
		}
	}
	if language = strings.TrimSpace(language); language == "" {
		language = "en-US"
	}
	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = defaultAudioMIMEType
	}

	return &Transcriber{generator: generator, prompts: set, language: language, mimeType: mimeType}, nil
}

func (t *Transcriber) Name() string { return providerName }

// Transcribe returns an empty string when no speech was recognized.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	prompt, err := t.prompts.Render(prompts.Transcription, map[string]string{"LANGUAGE": t.language})
	if err != nil {
		return "", err
	}

	text, err := t.generator.Generate(ctx, Request{
		System: prompt.System,
		Prompt: prompt.User,
		Audio:  &Audio{Data: audio, MIMEType: t.mimeType},
	})
	if errors.Is(err, ErrEmptyResponse) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}
