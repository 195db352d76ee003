package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDeepgramTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/listen" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/webm" {
			t.Errorf("unexpected content type %q", got)
		}
		if got := r.URL.Query().Get("smart_format"); got != "true" {
			t.Errorf("expected smart_format, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "raw-audio" {
			t.Errorf("unexpected body %q", body)
		}
		_, _ = io.WriteString(w, `{"results":{"channels":[{"alternatives":[{"transcript":" Hello there ","confidence":0.9}]}]}}`)
	}))
	defer srv.Close()

	dg, err := NewDeepgram(DeepgramConfig{APIKey: "secret"}, nil)
	if err != nil {
		t.Fatalf("new deepgram: %v", err)
	}
	dg.APIURL = srv.URL

	got, err := dg.Transcribe(context.Background(), []byte("raw-audio"))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got != "Hello there" {
		t.Fatalf("unexpected transcript %q", got)
	}
}

func TestDeepgramNoAlternatives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"results":{"channels":[]}}`)
	}))
	defer srv.Close()

	dg, _ := NewDeepgram(DeepgramConfig{APIKey: "secret"}, nil)
	dg.APIURL = srv.URL

	got, err := dg.Transcribe(context.Background(), []byte("x"))
	if err != nil || got != "" {
		t.Fatalf("expected empty transcript, got %q, %v", got, err)
	}
}

func TestDeepgramBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	dg, _ := NewDeepgram(DeepgramConfig{APIKey: "secret"}, nil)
	dg.APIURL = srv.URL

	if _, err := dg.Transcribe(context.Background(), []byte("x")); err == nil || !strings.Contains(err.Error(), "invalid credentials") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestNewDeepgramRequiresKey(t *testing.T) {
	if _, err := NewDeepgram(DeepgramConfig{APIKey: " "}, nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "secret" {
			t.Errorf("unexpected api key %q", got)
		}
		var req synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "Hello" || req.ModelID != defaultElevenLabsModel {
			t.Errorf("unexpected request %+v", req)
		}
		if req.VoiceSettings.Stability != defaultStability || req.VoiceSettings.SimilarityBoost != defaultSimilarityBoost {
			t.Errorf("unexpected voice settings %+v", req.VoiceSettings)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	el, err := NewElevenLabs(ElevenLabsConfig{APIKey: "secret", VoiceID: "voice-1", OutputDir: dir}, nil)
	if err != nil {
		t.Fatalf("new elevenlabs: %v", err)
	}
	el.APIURL = srv.URL

	ref, err := el.Synthesize(context.Background(), " Hello ")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !strings.HasPrefix(ref, "/data/audio/") || !strings.HasSuffix(ref, ".mp3") {
		t.Fatalf("unexpected reference %q", ref)
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(ref)))
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Fatalf("unexpected audio %q", data)
	}
}

func TestElevenLabsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	dir := t.TempDir()
	el, _ := NewElevenLabs(ElevenLabsConfig{APIKey: "secret", OutputDir: dir}, nil)
	el.APIURL = srv.URL

	if _, err := el.Synthesize(context.Background(), "Hello"); err == nil {
		t.Fatalf("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no audio files, got %d", len(entries))
	}
}
