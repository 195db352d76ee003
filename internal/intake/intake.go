// Package intake creates interview sessions from uploaded documents and
// updates their configuration before the candidate joins.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/documents"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/store"
)

type Store interface {
	Get(ctx context.Context, id string) (*interview.Session, error)
	Put(ctx context.Context, s *interview.Session) error
	Exists(ctx context.Context, id string) (bool, error)
}

type QuestionGenerator interface {
	GenerateInitial(ctx context.Context, req ai.InitialRequest) ([]string, error)
}

type Documents interface {
	ExtractPair(ctx context.Context, cvPath, jdPath string) (string, string)
}

// Upload is a named document stream.
type Upload struct {
	Name   string
	Reader io.Reader
}

type CreateRequest struct {
	CV              Upload
	JD              Upload
	SystemPrompt    string
	InterviewerName string
	MaxQuestions    int
}

// PromptUpdate replaces the system prompt. Empty name and zero budget keep the
// current values.
type PromptUpdate struct {
	SystemPrompt    string `json:"system_prompt"`
	InterviewerName string `json:"interviewer_name,omitempty"`
	MaxQuestions    int    `json:"max_questions,omitempty"`
}

// promptFile is the per-interview prompt configuration kept next to the record.
type promptFile struct {
	SystemPrompt    string `json:"system_prompt"`
	InterviewerName string `json:"interviewer_name"`
	MaxQuestions    int    `json:"max_questions"`
}

// Deps are the collaborators of a Service. Defaults fills an empty interviewer
// name and a zero question budget in create requests.
type Deps struct {
	Layout    store.Layout
	Defaults  interview.Config
	Store     Store
	Questions QuestionGenerator
	Documents Documents
	Now       func() time.Time
	NewID     func() string
	Logger    *zap.Logger
}

type Service struct {
	layout    store.Layout
	defaults  interview.Config
	store     Store
	questions QuestionGenerator
	docs      Documents
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

func New(deps Deps) (*Service, error) {
	if deps.Store == nil || deps.Questions == nil || deps.Documents == nil {
		return nil, errors.New("intake: store, question generator and documents are required")
	}
	if deps.Layout.Root == "" {
		return nil, errors.New("intake: data directory is required")
	}
	if err := deps.Layout.Ensure(); err != nil {
		return nil, err
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	return &Service{
		layout:    deps.Layout,
		defaults:  deps.Defaults,
		store:     deps.Store,
		questions: deps.Questions,
		docs:      deps.Documents,
		now:       deps.Now,
		newID:     deps.NewID,
		logger:    logger.OrNop(deps.Logger),
	}, nil
}

// Create stores the documents, records a new interview in the created status
// and pre-generates its opening questions.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*interview.Session, error) {
	cfg := interview.Config{
		SystemPrompt:    req.SystemPrompt,
		InterviewerName: req.InterviewerName,
		MaxQuestions:    req.MaxQuestions,
	}
	if strings.TrimSpace(cfg.InterviewerName) == "" {
		cfg.InterviewerName = s.defaults.InterviewerName
	}
	if cfg.MaxQuestions == 0 {
		cfg.MaxQuestions = s.defaults.MaxQuestions
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, u := range []Upload{req.CV, req.JD} {
		if u.Reader == nil {
			return nil, fmt.Errorf("%w: cv and job description files are required", interview.ErrInvalidConfig)
		}
		if !documents.Supported(u.Name) {
			return nil, fmt.Errorf("%w: unsupported document %q", interview.ErrInvalidConfig, u.Name)
		}
	}

	id := s.newID()
	log := logger.WithInterview(s.logger, id)

	taken, err := s.store.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check interview id: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("interview %s already exists", id)
	}

	cvPath, err := saveUpload(s.layout.CV(), id, req.CV)
	if err != nil {
		return nil, err
	}
	jdPath, err := saveUpload(s.layout.JD(), id, req.JD)
	if err != nil {
		return nil, err
	}

	session, err := interview.New(id, cvPath, jdPath, cfg, s.now())
	if err != nil {
		return nil, err
	}
	if session.PromptPath, err = s.savePrompt(session); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("persist interview: %w", err)
	}

	if err := s.pregenerate(ctx, log, session); err != nil {
		return nil, err
	}

	log.Info("interview created",
		zap.String("interviewer_name", session.InterviewerName),
		zap.Int("max_questions", session.MaxQuestions),
		zap.Int("initial_questions", len(session.InitialQuestions)),
	)
	return session, nil
}

// UpdateSystemPrompt reconfigures an interview that has not started yet and
// regenerates its opening questions.
func (s *Service) UpdateSystemPrompt(ctx context.Context, id string, upd PromptUpdate) (*interview.Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	cfg := session.Config()
	cfg.SystemPrompt = upd.SystemPrompt
	if strings.TrimSpace(upd.InterviewerName) != "" {
		cfg.InterviewerName = upd.InterviewerName
	}
	if upd.MaxQuestions != 0 {
		cfg.MaxQuestions = upd.MaxQuestions
	}
	if err := session.Configure(cfg); err != nil {
		return nil, err
	}

	if session.PromptPath, err = s.savePrompt(session); err != nil {
		return nil, err
	}

	log := logger.WithInterview(s.logger, id)
	if err := s.pregenerate(ctx, log, session); err != nil {
		return nil, err
	}

	log.Info("system prompt updated")
	return session, nil
}

func (s *Service) pregenerate(ctx context.Context, log *zap.Logger, session *interview.Session) error {
	cv, jd := s.docs.ExtractPair(ctx, session.CVPath, session.JDPath)
	questions, err := s.questions.GenerateInitial(ctx, ai.InitialRequest{
		CVText:       cv,
		JDText:       jd,
		SystemPrompt: session.SystemPrompt,
		MaxQuestions: session.MaxQuestions,
	})
	if err != nil {
		log.Warn("initial questions fell back to a generic question", zap.Error(err))
	}
	if err := session.SetInitialQuestions(questions); err != nil {
		return err
	}

	session.Touch(s.now())
	if err := s.store.Put(ctx, session); err != nil {
		return fmt.Errorf("persist interview: %w", err)
	}
	return nil
}

func (s *Service) savePrompt(session *interview.Session) (string, error) {
	data, err := json.MarshalIndent(promptFile{
		SystemPrompt:    session.SystemPrompt,
		InterviewerName: session.InterviewerName,
		MaxQuestions:    session.MaxQuestions,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.layout.Prompts(), session.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save prompt configuration: %w", err)
	}
	return path, nil
}

func saveUpload(dir, id string, u Upload) (string, error) {
	path := filepath.Join(dir, id+strings.ToLower(filepath.Ext(u.Name)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if _, err := io.Copy(f, u.Reader); err != nil {
		return "", fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return path, f.Sync()
}
