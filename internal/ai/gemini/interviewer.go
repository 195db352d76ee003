package gemini

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/ai/prompts"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/utils"
)

const (
	initialDocumentLimit = 4000
	contextDocumentLimit = 2000

	questionTemperature   float32 = 0.7
	assessmentTemperature float32 = 0.5
)

type contentGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// Interviewer implements ai.Provider on top of Gemini.
type Interviewer struct {
	generator contentGenerator
	prompts   *prompts.Set
	logger    *zap.Logger
}

var _ ai.Provider = (*Interviewer)(nil)

func NewInterviewer(generator contentGenerator, set *prompts.Set, log *zap.Logger) (*Interviewer, error) {
	if generator == nil {
		return nil, errors.New("content generator is required")
	}
	if set == nil {
		var err error
		if set, err = prompts.Load(); err != nil {
			return nil, err
		}
	}

	return &Interviewer{
		generator: generator,
		prompts:   set,
		logger:    logger.WithProvider(log, providerName, generator.Model()),
	}, nil
}

func (i *Interviewer) Name() string { return providerName }

func (i *Interviewer) InitialQuestions(ctx context.Context, req ai.InitialRequest) ([]string, error) {
	maxQuestions := req.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = interview.DefaultMaxQuestions
	}

	prompt, err := i.prompts.Render(prompts.InitialQuestions, map[string]string{
		"SYSTEM_PROMPT": req.SystemPrompt,
		"MAX_QUESTIONS": strconv.Itoa(maxQuestions),
		"CV_TEXT":       utils.Clip(req.CVText, initialDocumentLimit),
		"JD_TEXT":       utils.Clip(req.JDText, initialDocumentLimit),
	})
	if err != nil {
		return nil, err
	}

	raw, err := i.generator.Generate(ctx, Request{
		System:      prompt.System,
		Prompt:      prompt.User,
		Temperature: questionTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	questions, unused, err := parseQuestions(raw)
	i.logUnused("initial_questions", unused)
	if err != nil {
		return nil, err
	}

	return questions, nil
}

func (i *Interviewer) FollowUp(ctx context.Context, req ai.FollowUpRequest) (string, error) {
	prompt, err := i.prompts.Render(prompts.FollowUp, map[string]string{
		"SYSTEM_PROMPT": req.SystemPrompt,
		"CV_TEXT":       utils.Clip(req.CVText, contextDocumentLimit),
		"JD_TEXT":       utils.Clip(req.JDText, contextDocumentLimit),
		"TRANSCRIPT":    ai.FormatTranscript(req.Transcript),
	})
	if err != nil {
		return "", err
	}

	raw, err := i.generator.Generate(ctx, Request{
		System:      prompt.System,
		Prompt:      prompt.User,
		Temperature: questionTemperature,
	})
	if err != nil {
		return "", err
	}

	return strings.Trim(strings.TrimSpace(raw), `"`), nil
}

func (i *Interviewer) Assess(ctx context.Context, req ai.AssessmentRequest) (*interview.Assessment, error) {
	prompt, err := i.prompts.Render(prompts.Assessment, map[string]string{
		"CV_TEXT":    utils.Clip(req.CVText, contextDocumentLimit),
		"JD_TEXT":    utils.Clip(req.JDText, contextDocumentLimit),
		"TRANSCRIPT": ai.FormatTranscript(req.Transcript),
	})
	if err != nil {
		return nil, err
	}

	raw, err := i.generator.Generate(ctx, Request{
		System:      prompt.System,
		Prompt:      prompt.User,
		Temperature: assessmentTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	assessment, unused, invalid, err := parseAssessment(raw)
	i.logUnused("assessment", unused)
	if err != nil {
		return nil, err
	}
	if invalid != nil {
		i.logger.Warn("model returned malformed assessment fields, using defaults for them",
			zap.String(logger.FieldAdapter, "assessment"),
			zap.Error(invalid),
		)
	}

	return assessment, nil
}

func (i *Interviewer) logUnused(op string, keys []string) {
	if len(keys) == 0 {
		return
	}
	i.logger.Debug("model returned unexpected keys",
		zap.String(logger.FieldAdapter, op),
		zap.Strings("keys", keys),
	)
}
