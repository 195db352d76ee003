package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/channel"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/utils"
)

var candidateCmd = &cobra.Command{
	Use:   "candidate <interview-id>",
	Short: "Take an interview from the terminal by answering questions in text",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		candidate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(candidateCmd)

	candidateCmd.Flags().String("server", "ws://localhost:8000", "base websocket url of the interviewer server")
	candidateCmd.Flags().Int("max-retries", 5, "connection attempts before giving up")
	candidateCmd.Flags().Duration("retry-delay", 2*time.Second, "delay between connection attempts")
}

func candidate(cmd *cobra.Command, id string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	flags := cmd.Flags()
	server, _ := flags.GetString("server")
	retries, _ := flags.GetInt("max-retries")
	delay, _ := flags.GetDuration("retry-delay")

	endpoint, err := interviewURL(server, id)
	if err != nil {
		logger.Fatal("building interview url", zap.Error(err))
	}

	conn, err := dialWithRetry(ctx, endpoint, retries, delay, logger)
	if err != nil {
		logger.Fatal("connecting to the interview", zap.String("url", endpoint), zap.Error(err))
	}
	defer conn.Close()

	if err := converse(conn, logger); err != nil {
		logger.Fatal("interview interrupted", zap.Error(err))
	}
}

func interviewURL(server, id string) (string, error) {
	base, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", err
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	return base.JoinPath("api", "ws", "interview", id).String(), nil
}

func dialWithRetry(ctx context.Context, endpoint string, retries int, delay time.Duration, logger *zap.Logger) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= max(retries, 1); attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		logger.Warn("connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		if err := utils.WaitFor(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// converse prints interviewer messages and answers each question until the
// server closes the channel.
func converse(conn *websocket.Conn, logger *zap.Logger) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("interview closed by server")
				return nil
			}
			return err
		}

		var msg channel.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("skipping malformed message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case channel.TypeGreeting, channel.TypeCompletion:
			logger.Info(msg.Text, zap.String("audio_url", msg.AudioURL))
		case channel.TypeQuestion:
			logger.Info(msg.Text, zap.Int("question", msg.QuestionNumber), zap.String("audio_url", msg.AudioURL))

			answer, err := ask("Your answer", requireText)
			if err != nil {
				return fmt.Errorf("reading answer: %w", err)
			}
			if err := conn.WriteJSON(channel.Response{Type: channel.TypeResponse, Text: answer}); err != nil {
				return fmt.Errorf("sending answer: %w", err)
			}
		case channel.TypeResults:
			logger.Info("interview results", zap.Int("rating", msg.Rating), zap.String("verdict", msg.Verdict))
		case channel.TypeError:
			return errors.New(msg.Message)
		default:
			logger.Debug("ignoring message", zap.String("type", msg.Type))
		}
	}
}
