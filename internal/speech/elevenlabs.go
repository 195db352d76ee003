package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/logger"
)

const (
	elevenLabsAPIURL         = "https://api.elevenlabs.io"
	defaultVoiceID           = "21m00Tcm4TlvDq8ikWAM"
	defaultElevenLabsModel   = "eleven_monolingual_v1"
	defaultStability         = 0.5
	defaultSimilarityBoost   = 0.8
	defaultAudioURLPrefix    = "/data/audio"
	synthesizedAudioFileMode = 0o644
)

// ElevenLabsConfig configures the ElevenLabs text-to-speech API.
type ElevenLabsConfig struct {
	APIKey          string
	VoiceID         string
	Model           string
	Stability       float64
	SimilarityBoost float64
	// OutputDir receives the synthesized mp3 files.
	OutputDir string
	// URLPrefix is the public path OutputDir is served under.
	URLPrefix string
}

// ElevenLabs is a Synthesizer that stores audio files locally and returns their URL.
type ElevenLabs struct {
	cfg    ElevenLabsConfig
	logger *zap.Logger

	HTTPClient *http.Client
	APIURL     string
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func NewElevenLabs(cfg ElevenLabsConfig, log *zap.Logger) (*ElevenLabs, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("elevenlabs api key is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("audio output directory is required")
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultVoiceID
	}
	if cfg.Model == "" {
		cfg.Model = defaultElevenLabsModel
	}
	if cfg.Stability == 0 {
		cfg.Stability = defaultStability
	}
	if cfg.SimilarityBoost == 0 {
		cfg.SimilarityBoost = defaultSimilarityBoost
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = defaultAudioURLPrefix
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}

	return &ElevenLabs{
		cfg:        cfg,
		logger:     logger.WithProvider(log, "elevenlabs", cfg.Model),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIURL:     elevenLabsAPIURL,
	}, nil
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("text must not be empty")
	}

	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: e.cfg.Model,
		VoiceSettings: voiceSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", e.APIURL, e.cfg.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("elevenlabs bad status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read elevenlabs audio: %w", err)
	}
	if len(audio) == 0 {
		return "", errors.New("elevenlabs returned empty audio")
	}

	name := uuid.NewString() + ".mp3"
	if err := os.WriteFile(filepath.Join(e.cfg.OutputDir, name), audio, synthesizedAudioFileMode); err != nil {
		return "", fmt.Errorf("save synthesized audio: %w", err)
	}

	e.logger.Debug("synthesized speech", zap.String("file", name), zap.Int("bytes", len(audio)))

	return path.Join(e.cfg.URLPrefix, name), nil
}
