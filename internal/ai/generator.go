package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/utils"
)

// Generator wraps a Provider with a bounded wait and deterministic fallbacks.
// Its results are always usable. A non-nil error only reports that a fallback
// was substituted and is always a *GenerationError.
type Generator struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

func NewGenerator(provider Provider, timeout time.Duration, log *zap.Logger) *Generator {
	return &Generator{
		provider: provider,
		timeout:  timeout,
		logger:   logger.WithFields(log, zap.String(logger.FieldProvider, provider.Name())),
	}
}

// GenerateInitial returns a non-empty batch of opening questions.
func (g *Generator) GenerateInitial(ctx context.Context, req InitialRequest) ([]string, error) {
	if strings.TrimSpace(req.CVText) == "" || strings.TrimSpace(req.JDText) == "" {
		return g.initialFallback(ErrMissingDocuments)
	}

	questions, err := utils.CallWithTimeout(ctx, g.timeout, func(ctx context.Context) ([]string, error) {
		return g.provider.InitialQuestions(ctx, req)
	})
	if err != nil {
		return g.initialFallback(err)
	}

	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) == 0 {
		return g.initialFallback(ErrUnparseable)
	}

	return cleaned, nil
}

// GenerateFollowUp returns exactly one non-empty question.
func (g *Generator) GenerateFollowUp(ctx context.Context, req FollowUpRequest) (string, error) {
	question, err := utils.CallWithTimeout(ctx, g.timeout, func(ctx context.Context) (string, error) {
		return g.provider.FollowUp(ctx, req)
	})
	if err == nil {
		question = strings.TrimSpace(question)
		if question == "" {
			err = ErrUnparseable
		}
	}
	if err != nil {
		g.logger.Warn("follow-up generation failed, using fallback question", zap.Error(err))
		return FallbackFollowUp, &GenerationError{Op: "follow_up", Err: err}
	}

	return question, nil
}

// GenerateAssessment returns a normalized assessment with every field set.
func (g *Generator) GenerateAssessment(ctx context.Context, req AssessmentRequest) (interview.Assessment, error) {
	assessment, err := utils.CallWithTimeout(ctx, g.timeout, func(ctx context.Context) (*interview.Assessment, error) {
		return g.provider.Assess(ctx, req)
	})
	if err == nil && assessment == nil {
		err = ErrUnparseable
	}
	if err != nil {
		g.logger.Warn("assessment generation failed, using fallback assessment", zap.Error(err))
		if errors.Is(err, ErrUnparseable) {
			return UnparseableAssessment(), &GenerationError{Op: "assessment", Err: err}
		}
		return FailedAssessment(err), &GenerationError{Op: "assessment", Err: err}
	}

	return assessment.Normalize(), nil
}

func (g *Generator) initialFallback(err error) ([]string, error) {
	g.logger.Warn("initial question generation failed, using fallback question", zap.Error(err))
	return []string{FallbackInitialQuestion}, &GenerationError{Op: "initial_questions", Err: err}
}
