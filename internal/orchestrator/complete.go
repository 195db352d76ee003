package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/channel"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/metrics"
)

// Complete finalizes interview id and reports the outcome on ch, then closes
// ch. The assessment is written at most once: when the reloaded record is
// already completed the stored results are sent again and nothing is written.
func (o *Orchestrator) Complete(ctx context.Context, id string, ch Channel) error {
	log := logger.WithInterview(o.logger, id)

	s, err := o.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("reload interview: %w", err)
	}

	if s.Status == interview.StatusCompleted {
		log.Info("interview already completed, re-sending results")
	} else {
		if err := o.assess(ctx, log, s); err != nil {
			return err
		}
	}

	res, err := s.Results()
	if err != nil {
		return err
	}

	audio := o.speak(ctx, log, closingRemark)
	if err := ch.Send(ctx, channel.Completion(closingRemark, audio)); err != nil {
		return fmt.Errorf("send completion: %w", err)
	}
	if err := ch.Send(ctx, channel.Results(res.Rating, res.Verdict)); err != nil {
		return fmt.Errorf("send results: %w", err)
	}

	o.manager.Unregister(id, ch)
	return ch.Close("interview completed")
}

func (o *Orchestrator) assess(ctx context.Context, log *zap.Logger, s *interview.Session) error {
	cv, jd := o.extract(ctx, log, s.CVPath, s.JDPath)
	assessment, err := o.assessor.GenerateAssessment(ctx, ai.AssessmentRequest{
		Transcript: s.Transcript,
		CVText:     cv,
		JDText:     jd,
	})
	if err != nil {
		o.fallback(log, "assessment", err)
	}

	if err := s.Complete(assessment); err != nil {
		return err
	}
	if err := o.persist(ctx, s); err != nil {
		return err
	}

	metrics.SessionsCompleted.Inc()
	log.Info("interview completed",
		zap.Int("rating", *s.Rating),
		zap.Int("questions_asked", s.QuestionsAsked),
	)
	return nil
}
