// Package orchestrator drives interview sessions over a real-time channel.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/channel"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/metrics"
	"github.com/spigell/interviewer/internal/utils"
)

const (
	greetingFormat = "Hello, I'm %s. Thank you for joining this interview. I'll be asking you some questions to learn more about your skills and experience."
	closingRemark  = "Thank you for completing this interview. Your responses have been recorded."

	msgNotFound         = "Interview not found"
	msgAlreadyCompleted = "Interview already completed"
	msgAlreadyActive    = "Interview already in progress"

	// Store and transport details stay in the logs.
	msgInternalError = "An internal error occurred. Please try again later."
)

// errDisconnected ends a run without touching the record.
var errDisconnected = errors.New("candidate disconnected")

// Channel is the duplex connection to one candidate.
type Channel interface {
	Send(ctx context.Context, msg channel.Message) error
	Receive(ctx context.Context) (channel.Response, error)
	Close(reason string) error
}

type Store interface {
	Get(ctx context.Context, id string) (*interview.Session, error)
	Put(ctx context.Context, s *interview.Session) error
}

// QuestionGenerator always returns usable questions. A non-nil error reports
// that fallback content was used.
type QuestionGenerator interface {
	GenerateInitial(ctx context.Context, req ai.InitialRequest) ([]string, error)
	GenerateFollowUp(ctx context.Context, req ai.FollowUpRequest) (string, error)
}

type AssessmentGenerator interface {
	GenerateAssessment(ctx context.Context, req ai.AssessmentRequest) (interview.Assessment, error)
}

type SpeechToText interface {
	SpeechToText(ctx context.Context, audio []byte) (string, error)
}

type TextToSpeech interface {
	TextToSpeech(ctx context.Context, text string) (string, error)
}

// Documents re-reads CV and job description text on every call.
type Documents interface {
	ExtractPair(ctx context.Context, cvPath, jdPath string) (string, string)
}

// Deps are the collaborators of an Orchestrator. Manager, Now, Logger and
// DocumentTimeout are optional. A zero DocumentTimeout leaves extraction unbounded.
type Deps struct {
	Store           Store
	Questions       QuestionGenerator
	Assessor        AssessmentGenerator
	STT             SpeechToText
	TTS             TextToSpeech
	Documents       Documents
	DocumentTimeout time.Duration
	Manager         *SessionManager
	Now             func() time.Time
	Logger          *zap.Logger
}

type Orchestrator struct {
	store       Store
	questions   QuestionGenerator
	assessor    AssessmentGenerator
	stt         SpeechToText
	tts         TextToSpeech
	docs        Documents
	docsTimeout time.Duration
	manager     *SessionManager
	now         func() time.Time
	logger      *zap.Logger
}

func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("orchestrator: store is required")
	case deps.Questions == nil:
		return nil, errors.New("orchestrator: question generator is required")
	case deps.Assessor == nil:
		return nil, errors.New("orchestrator: assessment generator is required")
	case deps.STT == nil:
		return nil, errors.New("orchestrator: speech-to-text is required")
	case deps.TTS == nil:
		return nil, errors.New("orchestrator: text-to-speech is required")
	case deps.Documents == nil:
		return nil, errors.New("orchestrator: document extractor is required")
	}

	if deps.Manager == nil {
		deps.Manager = NewSessionManager()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Orchestrator{
		store:       deps.Store,
		questions:   deps.Questions,
		assessor:    deps.Assessor,
		stt:         deps.STT,
		tts:         deps.TTS,
		docs:        deps.Documents,
		docsTimeout: deps.DocumentTimeout,
		manager:     deps.Manager,
		now:         deps.Now,
		logger:      logger.OrNop(deps.Logger),
	}, nil
}

func (o *Orchestrator) Manager() *SessionManager { return o.manager }

// RunSession drives interview id over ch until it completes, the candidate
// disconnects, or a store or transport failure occurs. The channel is always
// closed on return. A disconnect returns nil and leaves the record as last saved.
func (o *Orchestrator) RunSession(ctx context.Context, id string, ch Channel) error {
	log := logger.WithInterview(o.logger, id)
	defer func() { _ = ch.Close("session ended") }()

	if err := o.manager.Register(id, ch); err != nil {
		log.Warn("rejecting second channel for interview")
		o.sendError(ctx, ch, msgAlreadyActive)
		return err
	}
	defer o.manager.Unregister(id, ch)

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	s, err := o.store.Get(ctx, id)
	switch {
	case errors.Is(err, interview.ErrNotFound):
		o.sendError(ctx, ch, msgNotFound)
		return err
	case err != nil:
		log.Error("loading interview", zap.Error(err))
		o.sendError(ctx, ch, msgInternalError)
		return fmt.Errorf("load interview: %w", err)
	case s.Status == interview.StatusCompleted:
		o.sendError(ctx, ch, msgAlreadyCompleted)
		return interview.ErrAlreadyCompleted
	}

	r := &run{o: o, id: id, ch: ch, s: s, log: log}
	err = r.drive(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errDisconnected), errors.Is(err, channel.ErrClosed):
		log.Info("candidate left the interview", zap.Int("questions_asked", r.s.QuestionsAsked))
		return nil
	default:
		log.Error("interview run failed", zap.Error(err))
		o.sendError(ctx, ch, msgInternalError)
		return err
	}
}

// sendError is best effort: the run is already ending.
func (o *Orchestrator) sendError(ctx context.Context, ch Channel, message string) {
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	_ = ch.Send(ctx, channel.Error(message))
}

// speak synthesizes text. An empty reference means text only.
func (o *Orchestrator) speak(ctx context.Context, log *zap.Logger, text string) string {
	ref, err := o.tts.TextToSpeech(ctx, text)
	if err != nil {
		o.fallback(log, "text_to_speech", err)
		return ""
	}
	return ref
}

// extract reads CV and job description text under the adapter timeout. A
// read that does not finish in time yields empty text.
func (o *Orchestrator) extract(ctx context.Context, log *zap.Logger, cvPath, jdPath string) (string, string) {
	pair, err := utils.CallWithTimeout(ctx, o.docsTimeout, func(ctx context.Context) ([2]string, error) {
		cv, jd := o.docs.ExtractPair(ctx, cvPath, jdPath)
		return [2]string{cv, jd}, nil
	})
	if err != nil {
		o.fallback(log, "documents", err)
		return "", ""
	}
	return pair[0], pair[1]
}

func (o *Orchestrator) fallback(log *zap.Logger, adapter string, err error) {
	metrics.AdapterFallbacks.WithLabelValues(adapter).Inc()
	log.Warn("adapter fallback used", zap.String(logger.FieldAdapter, adapter), zap.Error(err))
}

func (o *Orchestrator) persist(ctx context.Context, s *interview.Session) error {
	s.Touch(o.now())
	if err := o.store.Put(ctx, s); err != nil {
		return fmt.Errorf("persist interview: %w", err)
	}
	return nil
}
