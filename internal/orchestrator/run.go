package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/channel"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/metrics"
	"github.com/spigell/interviewer/internal/speech"
)

// run is the state of one RunSession call. Its methods are called from a
// single goroutine.
type run struct {
	o   *Orchestrator
	id  string
	ch  Channel
	s   *interview.Session
	log *zap.Logger
}

func (r *run) drive(ctx context.Context) error {
	fresh := r.s.Status == interview.StatusCreated
	if err := r.s.Start(); err != nil {
		return err
	}
	if err := r.o.persist(ctx, r.s); err != nil {
		return err
	}
	if fresh {
		metrics.SessionsStarted.Inc()
		r.log.Info("interview started")
	}

	if len(r.s.InitialQuestions) == 0 {
		if err := r.resolveInitialQuestions(ctx); err != nil {
			return err
		}
	}

	finished, err := r.open(ctx)
	if err != nil || finished {
		return err
	}

	for {
		resp, err := r.ch.Receive(ctx)
		if err != nil {
			if errors.Is(err, channel.ErrClosed) || ctx.Err() != nil {
				return errDisconnected
			}
			return fmt.Errorf("receive: %w", err)
		}

		if err := r.s.AddAnswer(r.answerText(ctx, resp)); err != nil {
			return err
		}

		finished, err := r.advance(ctx)
		if err != nil || finished {
			return err
		}
	}
}

// resolveInitialQuestions runs at most once per interview since the batch is
// persisted before anything else happens.
func (r *run) resolveInitialQuestions(ctx context.Context) error {
	cv, jd := r.o.extract(ctx, r.log, r.s.CVPath, r.s.JDPath)
	questions, err := r.o.questions.GenerateInitial(ctx, ai.InitialRequest{
		CVText:       cv,
		JDText:       jd,
		SystemPrompt: r.s.SystemPrompt,
		MaxQuestions: r.s.MaxQuestions,
	})
	if err != nil {
		r.o.fallback(r.log, "initial_questions", err)
	}
	if err := r.s.SetInitialQuestions(questions); err != nil {
		return err
	}
	if len(r.s.InitialQuestions) == 0 {
		if err := r.s.SetInitialQuestions([]string{ai.FallbackInitialQuestion}); err != nil {
			return err
		}
	}
	return r.o.persist(ctx, r.s)
}

// open brings the candidate to the point where an answer is expected. A fresh
// interview gets the greeting and the first question. A resumed one gets the
// pending question again without new transcript entries.
func (r *run) open(ctx context.Context) (bool, error) {
	if len(r.s.Transcript) == 0 {
		greeting := fmt.Sprintf(greetingFormat, r.s.InterviewerName)
		audio := r.o.speak(ctx, r.log, greeting)
		if !r.owned() {
			return false, errDisconnected
		}
		if err := r.s.AddInterviewerRemark(greeting); err != nil {
			return false, err
		}
		if err := r.o.persist(ctx, r.s); err != nil {
			return false, err
		}
		if err := r.send(ctx, channel.Greeting(greeting, audio)); err != nil {
			return false, err
		}
	}

	if r.s.QuestionsAsked == 0 {
		return false, r.ask(ctx, r.s.InitialQuestions[0])
	}

	last := r.s.Transcript[len(r.s.Transcript)-1]
	if last.Speaker == interview.SpeakerCandidate {
		r.log.Info("resuming after an unanswered candidate turn")
		return r.advance(ctx)
	}

	r.log.Info("resuming interview", zap.Int("questions_asked", r.s.QuestionsAsked))
	audio := r.o.speak(ctx, r.log, last.Text)
	return false, r.send(ctx, channel.Question(last.Text, audio, r.s.QuestionsAsked))
}

// advance runs after a candidate turn. It either finalizes the interview or
// asks the next question.
func (r *run) advance(ctx context.Context) (bool, error) {
	if err := r.o.persist(ctx, r.s); err != nil {
		return false, err
	}

	if r.s.BudgetExhausted() {
		if !r.owned() {
			return false, errDisconnected
		}
		return true, r.o.Complete(ctx, r.id, r.ch)
	}

	cv, jd := r.o.extract(ctx, r.log, r.s.CVPath, r.s.JDPath)
	question, err := r.o.questions.GenerateFollowUp(ctx, ai.FollowUpRequest{
		Transcript:   r.s.Transcript,
		SystemPrompt: r.s.SystemPrompt,
		CVText:       cv,
		JDText:       jd,
	})
	if err != nil {
		r.o.fallback(r.log, "follow_up", err)
	}

	return false, r.ask(ctx, question)
}

// ask records an interviewer question and sends it once it is durable. A
// question produced after the channel was dropped is never recorded, so
// questions_asked counts only questions the candidate could have seen.
func (r *run) ask(ctx context.Context, question string) error {
	audio := r.o.speak(ctx, r.log, question)

	if !r.owned() {
		r.log.Debug("discarding question generated for a channel that is no longer live")
		return errDisconnected
	}

	n, err := r.s.AskQuestion(question)
	if err != nil {
		return err
	}
	if err := r.o.persist(ctx, r.s); err != nil {
		return err
	}
	if err := r.send(ctx, channel.Question(question, audio, n)); err != nil {
		return err
	}

	metrics.QuestionsSent.Inc()
	r.log.Debug("question sent", zap.Int("question_number", n))
	return nil
}

func (r *run) owned() bool {
	return r.o.manager.Owns(r.id, r.ch)
}

// send drops the message when this run no longer owns the interview.
func (r *run) send(ctx context.Context, msg channel.Message) error {
	if !r.owned() {
		r.log.Debug("discarding message for a channel that is no longer live", zap.String("type", msg.Type))
		return errDisconnected
	}
	if err := r.ch.Send(ctx, msg); err != nil {
		if errors.Is(err, channel.ErrClosed) {
			return errDisconnected
		}
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// answerText turns a candidate response into transcript text. Audio that
// cannot be decoded or transcribed becomes placeholder text.
func (r *run) answerText(ctx context.Context, resp channel.Response) string {
	if !resp.HasAudio() {
		return resp.Text
	}

	audio, err := resp.Audio()
	if err != nil {
		r.o.fallback(r.log, "speech_to_text", fmt.Errorf("decode audio payload: %w", err))
		return speech.FailedAudioText
	}

	text, err := r.o.stt.SpeechToText(ctx, audio)
	if err != nil {
		r.o.fallback(r.log, "speech_to_text", err)
	}
	return text
}
