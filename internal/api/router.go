// Package api exposes the interview HTTP and WebSocket surface.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/channel"
	"github.com/spigell/interviewer/internal/intake"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/metrics"
	"github.com/spigell/interviewer/internal/orchestrator"
)

const defaultMaxUploadBytes = 32 << 20

type Store interface {
	Get(ctx context.Context, id string) (*interview.Session, error)
	List(ctx context.Context) ([]*interview.Session, error)
}

type Intake interface {
	Create(ctx context.Context, req intake.CreateRequest) (*interview.Session, error)
	UpdateSystemPrompt(ctx context.Context, id string, upd intake.PromptUpdate) (*interview.Session, error)
}

type Sessions interface {
	RunSession(ctx context.Context, id string, ch orchestrator.Channel) error
}

type TokenIssuer interface {
	Issue(interviewID, participant string) (string, error)
	URL() string
}

// Deps configures the router. Tokens and AudioDir are optional.
type Deps struct {
	Store          Store
	Intake         Intake
	Sessions       Sessions
	Tokens         TokenIssuer
	AudioDir       string
	CORSOrigins    []string
	Channel        channel.Options
	MaxUploadBytes int64
	Logger         *zap.Logger
}

type handlers struct {
	store          Store
	intake         Intake
	sessions       Sessions
	tokens         TokenIssuer
	channelOpts    channel.Options
	maxUploadBytes int64
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

func NewRouter(deps Deps) (http.Handler, error) {
	if deps.Store == nil || deps.Intake == nil || deps.Sessions == nil {
		return nil, errors.New("api: store, intake and sessions are required")
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}

	h := &handlers{
		store:          deps.Store,
		intake:         deps.Intake,
		sessions:       deps.Sessions,
		tokens:         deps.Tokens,
		channelOpts:    deps.Channel,
		maxUploadBytes: deps.MaxUploadBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(deps.CORSOrigins),
		},
		logger: logger.OrNop(deps.Logger),
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(h.logger), middleware.Recoverer, metrics.Middleware)

	r.Get("/health", h.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin/interviews", func(r chi.Router) {
			r.Post("/", h.createInterview)
			r.Post("/{id}/system-prompt", h.updateSystemPrompt)
		})
		r.Route("/candidate/interviews/{id}", func(r chi.Router) {
			r.Get("/join", h.joinInterview)
			r.Post("/livekit-token", h.liveKitToken)
		})
		r.Route("/interviews", func(r chi.Router) {
			r.Get("/", h.listInterviews)
			r.Get("/{id}", h.getInterview)
			r.Get("/{id}/results", h.getResults)
		})
		r.Get("/ws/interview/{id}", h.interviewSocket)
	})

	if deps.AudioDir != "" {
		r.Handle("/data/audio/*", http.StripPrefix("/data/audio/", http.FileServer(http.Dir(deps.AudioDir))))
	}

	return r, nil
}

// requestLogger logs one line per request with zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Info("request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}
