package speech

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubTranscriber struct {
	text  string
	err   error
	block chan struct{}
}

func (s *stubTranscriber) Transcribe(ctx context.Context, _ []byte) (string, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

func (s *stubTranscriber) Name() string { return "stub" }

type stubSynthesizer struct {
	ref string
	err error
}

func (s *stubSynthesizer) Synthesize(context.Context, string) (string, error) { return s.ref, s.err }
func (s *stubSynthesizer) Name() string                                        { return "stub" }

func TestSpeechToText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stt     Transcriber
		want    string
		wantErr bool
	}{
		{name: "recognized", stt: &stubTranscriber{text: "  I built APIs  "}, want: "I built APIs"},
		{name: "silence", stt: &stubTranscriber{text: " "}, want: UnclearAudioText},
		{name: "backend failure", stt: &stubTranscriber{err: errors.New("boom")}, want: FailedAudioText, wantErr: true},
		{name: "not configured", stt: nil, want: FailedAudioText, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(tt.stt, nil, time.Second, nil)
			got, err := svc.SpeechToText(context.Background(), []byte("audio"))
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			if tt.wantErr {
				var te *TranscriptionError
				if !errors.As(err, &te) {
					t.Fatalf("expected TranscriptionError, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSpeechToTextTimeout(t *testing.T) {
	stt := &stubTranscriber{block: make(chan struct{})}
	defer close(stt.block)

	svc := NewService(stt, nil, 20*time.Millisecond, nil)
	got, err := svc.SpeechToText(context.Background(), []byte("audio"))
	if got != FailedAudioText {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestTextToSpeech(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tts     Synthesizer
		want    string
		wantErr bool
	}{
		{name: "audio produced", tts: &stubSynthesizer{ref: "/data/audio/a.mp3"}, want: "/data/audio/a.mp3"},
		{name: "disabled", tts: nil, want: ""},
		{name: "failure", tts: &stubSynthesizer{err: errors.New("quota")}, want: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(nil, tt.tts, time.Second, nil)
			got, err := svc.TextToSpeech(context.Background(), "hello")
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
		})
	}
}
