package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/speech"
	"github.com/spigell/interviewer/internal/store"
)

func TestInterviewURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		server string
		want   string
		err    bool
	}{
		{server: "ws://localhost:8000", want: "ws://localhost:8000/api/ws/interview/abc"},
		{server: "http://localhost:8000/", want: "ws://localhost:8000/api/ws/interview/abc"},
		{server: "https://example.com/base", want: "wss://example.com/base/api/ws/interview/abc"},
		{server: "ftp://example.com", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			t.Parallel()
			got, err := interviewURL(tt.server, "abc")
			if tt.err {
				if err == nil {
					t.Fatalf("expected error for %q", tt.server)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetConfigAppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	config, err := getConfig()
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, config.Server.CORSOrigins)
	assert.Equal(t, interview.DefaultMaxQuestions, config.Interview.DefaultMaxQuestions)
	assert.Equal(t, 30*time.Second, config.Interview.AdapterTimeout)
	assert.Equal(t, "nova", config.Speech.STT.Deepgram.Model)
	assert.InDelta(t, 0.8, config.Speech.TTS.ElevenLabs.SimilarityBoost, 0.0001)
}

func TestBuildStore(t *testing.T) {
	ctx := context.Background()
	layout := store.Layout{Root: t.TempDir()}
	require.NoError(t, layout.Ensure())

	fileStore, closeFn, err := buildStore(ctx, &StoreConfig{Driver: "file"}, layout, zap.NewNop())
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &store.FileStore{}, fileStore)

	mr := miniredis.RunT(t)
	redisStore, closeFn, err := buildStore(ctx, &StoreConfig{
		Driver: "redis",
		Redis:  &RedisConfig{Addr: mr.Addr(), Prefix: "test"},
	}, layout, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &store.RedisStore{}, redisStore)

	_, _, err = buildStore(ctx, &StoreConfig{Driver: "redis"}, layout, zap.NewNop())
	assert.Error(t, err)

	_, _, err = buildStore(ctx, &StoreConfig{Driver: "etcd"}, layout, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildSynthesizer(t *testing.T) {
	layout := store.Layout{Root: t.TempDir()}

	tts, err := buildSynthesizer(&TTSConfig{Provider: "none"}, layout, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, speech.Disabled{}, tts)

	tts, err = buildSynthesizer(&TTSConfig{Provider: "elevenlabs"}, layout, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, speech.Disabled{}, tts, "missing api key disables audio")

	tts, err = buildSynthesizer(&TTSConfig{
		Provider:   "elevenlabs",
		ElevenLabs: &ElevenLabsConfig{APIKey: "key"},
	}, layout, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "elevenlabs", tts.Name())

	_, err = buildSynthesizer(&TTSConfig{Provider: "espeak"}, layout, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildTokenIssuer(t *testing.T) {
	issuer, err := buildTokenIssuer(&MediaConfig{LiveKit: &LiveKitConfig{URL: "wss://lk"}}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, issuer)

	issuer, err = buildTokenIssuer(&MediaConfig{LiveKit: &LiveKitConfig{
		APIKey:    "key",
		APISecret: "secret",
		URL:       "wss://lk",
		TokenTTL:  time.Minute,
	}}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, issuer)
	assert.Equal(t, "wss://lk", issuer.URL())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.HasPrefix(out.String(), app+" version: ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
