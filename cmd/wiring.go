package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/ai/gemini"
	"github.com/spigell/interviewer/internal/ai/prompts"
	"github.com/spigell/interviewer/internal/documents"
	"github.com/spigell/interviewer/internal/intake"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/media"
	"github.com/spigell/interviewer/internal/secrets"
	"github.com/spigell/interviewer/internal/speech"
	"github.com/spigell/interviewer/internal/store"
)

const (
	storeDriverFile  = "file"
	storeDriverRedis = "redis"

	providerGemini     = "gemini"
	providerDeepgram   = "deepgram"
	providerElevenLabs = "elevenlabs"
	providerNone       = "none"
)

// components are the collaborators shared by serve and create.
type components struct {
	layout    store.Layout
	store     store.Store
	generator *ai.Generator
	model     *gemini.Generator
	prompts   *prompts.Set
	documents *documents.Extractor
	close     func()
}

func buildComponents(ctx context.Context, config *Config, logger *zap.Logger) (*components, error) {
	layout := store.Layout{Root: config.DataDir}
	if err := layout.Ensure(); err != nil {
		return nil, fmt.Errorf("preparing data directory: %w", err)
	}

	sessions, closeStore, err := buildStore(ctx, config.Store, layout, logger)
	if err != nil {
		return nil, err
	}

	model, set, err := buildModel(ctx, config.AI, logger)
	if err != nil {
		closeStore()
		return nil, err
	}

	interviewer, err := gemini.NewInterviewer(model, set, logger)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("creating gemini interviewer: %w", err)
	}

	return &components{
		layout:    layout,
		store:     sessions,
		generator: ai.NewGenerator(interviewer, config.Interview.AdapterTimeout, logger),
		model:     model,
		prompts:   set,
		documents: documents.NewExtractor(logger),
		close:     closeStore,
	}, nil
}

func buildStore(ctx context.Context, cfg *StoreConfig, layout store.Layout, logger *zap.Logger) (store.Store, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case "", storeDriverFile:
		fs, err := store.NewFileStore(layout.Results())
		if err != nil {
			return nil, nil, fmt.Errorf("creating file store: %w", err)
		}
		logger.Debug("using file store", zap.String("dir", layout.Results()))
		return fs, func() {}, nil
	case storeDriverRedis:
		if cfg.Redis == nil || cfg.Redis.Addr == "" {
			return nil, nil, errors.New("store.redis.addr is required for the redis store")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Debug("using redis store", zap.String("addr", cfg.Redis.Addr), zap.String("prefix", cfg.Redis.Prefix))
		return store.NewRedisStore(rdb, cfg.Redis.Prefix), func() { rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func buildModel(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*gemini.Generator, *prompts.Set, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, nil, errors.New("ai.gemini configuration is required")
	}
	if cfg.Provider != "" && cfg.Provider != providerGemini {
		return nil, nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, nil, err
	}

	model, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model.SetMaxLogLength(cfg.Gemini.MaxLogLength)

	set, err := prompts.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading prompt templates: %w", err)
	}

	return model, set, nil
}

func (c *components) newIntake(defaults *InterviewConfig, logger *zap.Logger) (*intake.Service, error) {
	return intake.New(intake.Deps{
		Layout: c.layout,
		Defaults: interview.Config{
			InterviewerName: defaults.DefaultInterviewerName,
			MaxQuestions:    defaults.DefaultMaxQuestions,
		},
		Store:     c.store,
		Questions: c.generator,
		Documents: c.documents,
		Logger:    logger,
	})
}

func (c *components) newSpeech(cfg *SpeechConfig, defaults *InterviewConfig, logger *zap.Logger) (*speech.Service, error) {
	stt, err := buildTranscriber(cfg.STT, c, logger)
	if err != nil {
		return nil, err
	}

	tts, err := buildSynthesizer(cfg.TTS, c.layout, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("speech providers",
		zap.String("stt", stt.Name()),
		zap.String("tts", tts.Name()),
	)

	return speech.NewService(stt, tts, defaults.AdapterTimeout, logger), nil
}

func buildTranscriber(cfg *STTConfig, c *components, logger *zap.Logger) (speech.Transcriber, error) {
	deepgram := cfg.Deepgram
	if deepgram == nil {
		deepgram = &DeepgramConfig{}
	}

	switch strings.ToLower(cfg.Provider) {
	case "", providerDeepgram:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "deepgram api key",
			Value: deepgram.APIKey,
			File:  deepgram.APIKeyFile,
		})
		if err != nil {
			return nil, err
		}
		return speech.NewDeepgram(speech.DeepgramConfig{
			APIKey:   apiKey,
			Model:    deepgram.Model,
			Language: deepgram.Language,
		}, logger)
	case providerGemini:
		return gemini.NewTranscriber(c.model, c.prompts, deepgram.Language, "")
	default:
		return nil, fmt.Errorf("unsupported speech-to-text provider %q", cfg.Provider)
	}
}

func buildSynthesizer(cfg *TTSConfig, layout store.Layout, logger *zap.Logger) (speech.Synthesizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case providerNone:
		return speech.Disabled{}, nil
	case "", providerElevenLabs:
		el := cfg.ElevenLabs
		if el == nil {
			el = &ElevenLabsConfig{}
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:     "elevenlabs api key",
			Value:    el.APIKey,
			File:     el.APIKeyFile,
			Optional: true,
		})
		if err != nil {
			return nil, err
		}
		if apiKey == "" {
			logger.Warn("elevenlabs api key is not set, interviewer audio is disabled")
			return speech.Disabled{}, nil
		}
		return speech.NewElevenLabs(speech.ElevenLabsConfig{
			APIKey:          apiKey,
			VoiceID:         el.VoiceID,
			Model:           el.Model,
			Stability:       el.Stability,
			SimilarityBoost: el.SimilarityBoost,
			OutputDir:       layout.Audio(),
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported text-to-speech provider %q", cfg.Provider)
	}
}

// buildTokenIssuer returns nil when the media room is not configured.
func buildTokenIssuer(cfg *MediaConfig, logger *zap.Logger) (*media.TokenIssuer, error) {
	if cfg == nil || cfg.LiveKit == nil {
		return nil, nil
	}

	secret, err := secrets.Load(secrets.Source{
		Name:     "livekit api secret",
		Value:    cfg.LiveKit.APISecret,
		File:     cfg.LiveKit.APISecretFile,
		Optional: true,
	})
	if err != nil {
		return nil, err
	}

	issuer, err := media.NewTokenIssuer(cfg.LiveKit.APIKey, secret, cfg.LiveKit.URL, cfg.LiveKit.TokenTTL)
	if errors.Is(err, media.ErrNotConfigured) {
		logger.Info("livekit is not configured, media tokens are disabled")
		return nil, nil
	}
	return issuer, err
}
