package cmd

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/api"
	"github.com/spigell/interviewer/internal/jobs"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/orchestrator"
)

const (
	shutdownTimeout = 30 * time.Second
	shutdownReason  = "server shutting down"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview HTTP and WebSocket server",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides server.port)")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interviewer", zap.String("version", version))

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}
	defer c.close()

	intakeSvc, err := c.newIntake(config.Interview, logger)
	if err != nil {
		logger.Fatal("creating intake service", zap.Error(err))
	}

	speechSvc, err := c.newSpeech(config.Speech, config.Interview, logger)
	if err != nil {
		logger.Fatal("creating speech service", zap.Error(err))
	}

	manager := orchestrator.NewSessionManager()
	orch, err := orchestrator.New(orchestrator.Deps{
		Store:           c.store,
		Questions:       c.generator,
		Assessor:        c.generator,
		STT:             speechSvc,
		TTS:             speechSvc,
		Documents:       c.documents,
		DocumentTimeout: config.Interview.AdapterTimeout,
		Manager:         manager,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("creating orchestrator", zap.Error(err))
	}

	deps := api.Deps{
		Store:       c.store,
		Intake:      intakeSvc,
		Sessions:    orch,
		AudioDir:    c.layout.Audio(),
		CORSOrigins: config.Server.CORSOrigins,
		Logger:      logger,
	}

	issuer, err := buildTokenIssuer(config.Media, logger)
	if err != nil {
		logger.Fatal("creating livekit token issuer", zap.Error(err))
	}
	if issuer != nil {
		deps.Tokens = issuer
	}

	router, err := api.NewRouter(deps)
	if err != nil {
		logger.Fatal("creating router", zap.Error(err))
	}

	sweeper, err := jobs.NewAudioSweeper(c.layout.Audio(), config.Interview.AudioRetention, logger)
	if err != nil {
		logger.Fatal("creating audio sweeper", zap.Error(err))
	}
	if err := sweeper.Start(config.Interview.AudioSweepSchedule); err != nil {
		logger.Fatal("starting audio sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port)),
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serving http", zap.Error(err))
		}
		return
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Int("active_sessions", manager.Len()))

	// Hijacked websocket connections are not tracked by Shutdown.
	manager.CloseAll(shutdownReason)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutting down http server", zap.Error(err))
	}
}
