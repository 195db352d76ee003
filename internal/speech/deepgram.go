package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/logger"
)

const (
	deepgramAPIURL       = "https://api.deepgram.com"
	deepgramDefaultModel = "nova"
	defaultLanguage      = "en-US"
	defaultAudioMIMEType = "audio/webm"
	maxErrorBodyBytes    = 1024
)

// DeepgramConfig configures the Deepgram pre-recorded transcription API.
type DeepgramConfig struct {
	APIKey   string
	Model    string
	Language string
	MIMEType string
}

// Deepgram is a Transcriber backed by the Deepgram listen endpoint.
type Deepgram struct {
	apiKey   string
	model    string
	language string
	mimeType string
	logger   *zap.Logger

	HTTPClient *http.Client
	APIURL     string
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func NewDeepgram(cfg DeepgramConfig, log *zap.Logger) (*Deepgram, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("deepgram api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = deepgramDefaultModel
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.MIMEType == "" {
		cfg.MIMEType = defaultAudioMIMEType
	}

	return &Deepgram{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		language:   cfg.Language,
		mimeType:   cfg.MIMEType,
		logger:     logger.WithProvider(log, "deepgram", cfg.Model),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIURL:     deepgramAPIURL,
	}, nil
}

func (d *Deepgram) Name() string { return "deepgram" }

// Transcribe returns an empty string when Deepgram recognized no speech.
func (d *Deepgram) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	q := url.Values{}
	q.Set("model", d.model)
	q.Set("language", d.language)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.APIURL+"/v1/listen?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", d.mimeType)

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("deepgram bad status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode deepgram response: %w", err)
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}

	best := parsed.Results.Channels[0].Alternatives[0]
	d.logger.Debug("got transcription from deepgram",
		zap.Int("audio_bytes", len(audio)),
		zap.Float64("confidence", best.Confidence),
	)

	return strings.TrimSpace(best.Transcript), nil
}
