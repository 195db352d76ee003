// Package speech converts candidate audio to text and interviewer text to audio.
package speech

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/utils"
)

const (
	UnclearAudioText = "I couldn't hear your response clearly."
	FailedAudioText  = "I'm sorry, there was an issue processing your audio. Could you please repeat?"
	transcriptionOp  = "speech_to_text"
	synthesisOp      = "text_to_speech"
	unnamedProvider  = "none"
)

// ErrDisabled is returned by the no-op synthesizer.
var ErrDisabled = errors.New("speech synthesis is disabled")

// Transcriber is a concrete speech-to-text backend.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Name() string
}

// Synthesizer is a concrete text-to-speech backend returning a playable reference.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
	Name() string
}

// TranscriptionError reports that placeholder text replaced a transcription.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string { return "transcription failed: " + e.Err.Error() }
func (e *TranscriptionError) Unwrap() error { return e.Err }

// Service applies timeouts and fallbacks around the speech backends.
type Service struct {
	stt     Transcriber
	tts     Synthesizer
	timeout time.Duration
	logger  *zap.Logger
}

func NewService(stt Transcriber, tts Synthesizer, timeout time.Duration, log *zap.Logger) *Service {
	if tts == nil {
		tts = Disabled{}
	}
	return &Service{stt: stt, tts: tts, timeout: timeout, logger: logger.OrNop(log)}
}

// SpeechToText always returns usable candidate text. A non-nil error reports
// that a placeholder was used.
func (s *Service) SpeechToText(ctx context.Context, audio []byte) (string, error) {
	if s.stt == nil {
		return FailedAudioText, &TranscriptionError{Err: errors.New("no transcriber configured")}
	}

	text, err := utils.CallWithTimeout(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.stt.Transcribe(ctx, audio)
	})
	if err != nil {
		s.logger.Warn("transcription failed, using placeholder",
			zap.String(logger.FieldAdapter, transcriptionOp),
			zap.String(logger.FieldProvider, s.stt.Name()),
			zap.Error(err),
		)
		return FailedAudioText, &TranscriptionError{Err: err}
	}

	if text = strings.TrimSpace(text); text == "" {
		return UnclearAudioText, nil
	}
	return text, nil
}

// TextToSpeech returns an audio reference, or an empty one with an error when
// synthesis failed. Callers still send the text.
func (s *Service) TextToSpeech(ctx context.Context, text string) (string, error) {
	ref, err := utils.CallWithTimeout(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.tts.Synthesize(ctx, text)
	})
	if errors.Is(err, ErrDisabled) {
		return "", nil
	}
	if err != nil {
		s.logger.Warn("speech synthesis failed, sending text only",
			zap.String(logger.FieldAdapter, synthesisOp),
			zap.String(logger.FieldProvider, s.tts.Name()),
			zap.Error(err),
		)
		return "", err
	}
	return ref, nil
}

// Disabled is a Synthesizer that never produces audio.
type Disabled struct{}

func (Disabled) Synthesize(context.Context, string) (string, error) { return "", ErrDisabled }
func (Disabled) Name() string                                       { return unnamedProvider }
