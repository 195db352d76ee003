package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/jobs"
)

const (
	app = "interviewer"
)

type Config struct {
	DataDir   string           `mapstructure:"data-dir"`
	Server    *ServerConfig    `mapstructure:"server"`
	Store     *StoreConfig     `mapstructure:"store"`
	AI        *AIConfig        `mapstructure:"ai"`
	Speech    *SpeechConfig    `mapstructure:"speech"`
	Media     *MediaConfig     `mapstructure:"media"`
	Interview *InterviewConfig `mapstructure:"interview"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	CORSOrigins  []string      `mapstructure:"cors-origins"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle-timeout"`
}

type StoreConfig struct {
	Driver string       `mapstructure:"driver"`
	Redis  *RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type SpeechConfig struct {
	STT *STTConfig `mapstructure:"stt"`
	TTS *TTSConfig `mapstructure:"tts"`
}

type STTConfig struct {
	Provider string          `mapstructure:"provider"`
	Deepgram *DeepgramConfig `mapstructure:"deepgram"`
}

type DeepgramConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	Language   string `mapstructure:"language"`
}

type TTSConfig struct {
	Provider   string            `mapstructure:"provider"`
	ElevenLabs *ElevenLabsConfig `mapstructure:"elevenlabs"`
}

type ElevenLabsConfig struct {
	APIKey          string  `mapstructure:"api-key"`
	APIKeyFile      string  `mapstructure:"api-key-file"`
	VoiceID         string  `mapstructure:"voice-id"`
	Model           string  `mapstructure:"model"`
	Stability       float64 `mapstructure:"stability"`
	SimilarityBoost float64 `mapstructure:"similarity-boost"`
}

type MediaConfig struct {
	LiveKit *LiveKitConfig `mapstructure:"livekit"`
}

type LiveKitConfig struct {
	APIKey        string        `mapstructure:"api-key"`
	APISecret     string        `mapstructure:"api-secret"`
	APISecretFile string        `mapstructure:"api-secret-file"`
	URL           string        `mapstructure:"url"`
	TokenTTL      time.Duration `mapstructure:"token-ttl"`
}

type InterviewConfig struct {
	DefaultInterviewerName string        `mapstructure:"default-interviewer-name"`
	DefaultMaxQuestions    int           `mapstructure:"default-max-questions"`
	AdapterTimeout         time.Duration `mapstructure:"adapter-timeout"`
	AudioRetention         time.Duration `mapstructure:"audio-retention"`
	AudioSweepSchedule     string        `mapstructure:"audio-sweep-schedule"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewer runs AI-led job interviews over a real-time channel",
	}
)

// envBindings maps config keys to the environment variables that may set them.
var envBindings = map[string]string{
	"ai.gemini.api-key":              "GEMINI_API_KEY",
	"ai.gemini.model":                "GEMINI_MODEL",
	"speech.stt.deepgram.api-key":    "DEEPGRAM_API_KEY",
	"speech.tts.elevenlabs.api-key":  "ELEVENLABS_API_KEY",
	"speech.tts.elevenlabs.voice-id": "ELEVENLABS_VOICE_ID",
	"media.livekit.api-key":          "LIVEKIT_API_KEY",
	"media.livekit.api-secret":       "LIVEKIT_API_SECRET",
	"media.livekit.url":              "LIVEKIT_URL",
	"server.port":                    "PORT",
	"server.host":                    "HOST",
	"server.cors-origins":            "CORS_ORIGINS",
	"store.redis.addr":               "REDIS_ADDR",
	"data-dir":                       "INTERVIEWER_DATA_DIR",
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for uploads, prompts, results and audio")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func setDefaults() {
	viper.SetDefault("data-dir", "data")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.cors-origins", []string{"*"})
	viper.SetDefault("server.read-timeout", 30*time.Second)
	viper.SetDefault("server.write-timeout", 60*time.Second)
	viper.SetDefault("server.idle-timeout", 120*time.Second)

	viper.SetDefault("store.driver", "file")
	viper.SetDefault("store.redis.prefix", app)

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-log-length", 2000)

	viper.SetDefault("speech.stt.provider", "deepgram")
	viper.SetDefault("speech.stt.deepgram.model", "nova")
	viper.SetDefault("speech.stt.deepgram.language", "en-US")
	viper.SetDefault("speech.tts.provider", "elevenlabs")
	viper.SetDefault("speech.tts.elevenlabs.voice-id", "21m00Tcm4TlvDq8ikWAM")
	viper.SetDefault("speech.tts.elevenlabs.model", "eleven_monolingual_v1")
	viper.SetDefault("speech.tts.elevenlabs.stability", 0.5)
	viper.SetDefault("speech.tts.elevenlabs.similarity-boost", 0.8)

	viper.SetDefault("media.livekit.token-ttl", time.Hour)

	viper.SetDefault("interview.default-interviewer-name", interview.DefaultInterviewerName)
	viper.SetDefault("interview.default-max-questions", interview.DefaultMaxQuestions)
	viper.SetDefault("interview.adapter-timeout", 30*time.Second)
	viper.SetDefault("interview.audio-retention", 24*time.Hour)
	viper.SetDefault("interview.audio-sweep-schedule", jobs.DefaultSweepSchedule)
}

func initConfig() {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// An explicit config file must parse. The default one may be absent.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
