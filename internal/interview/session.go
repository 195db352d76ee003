package interview

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultInterviewerName = "AI Interviewer"
	DefaultMaxQuestions    = 10
)

// Speaker tags who produced a transcript turn.
type Speaker string

const (
	SpeakerAI        Speaker = "ai"
	SpeakerCandidate Speaker = "candidate"
)

// Turn is one transcript entry.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Config holds the settings that may change while an interview is still created.
type Config struct {
	SystemPrompt    string
	InterviewerName string
	MaxQuestions    int
}

func (c Config) withDefaults() Config {
	c.SystemPrompt = strings.TrimSpace(c.SystemPrompt)
	c.InterviewerName = strings.TrimSpace(c.InterviewerName)
	if c.InterviewerName == "" {
		c.InterviewerName = DefaultInterviewerName
	}
	if c.MaxQuestions == 0 {
		c.MaxQuestions = DefaultMaxQuestions
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.SystemPrompt == "" {
		return fmt.Errorf("%w: system prompt is required", ErrInvalidConfig)
	}
	if c.MaxQuestions < 1 {
		return fmt.Errorf("%w: max questions must be at least 1, got %d", ErrInvalidConfig, c.MaxQuestions)
	}
	return nil
}

// Session is the persisted aggregate for one interview. Mutations go through
// its methods so the status machine and the question budget hold.
type Session struct {
	ID               string    `json:"id"`
	Status           Status    `json:"status"`
	CVPath           string    `json:"cv_path"`
	JDPath           string    `json:"jd_path"`
	PromptPath       string    `json:"prompt_path,omitempty"`
	SystemPrompt     string    `json:"system_prompt"`
	InterviewerName  string    `json:"interviewer_name"`
	MaxQuestions     int       `json:"max_questions"`
	InitialQuestions []string  `json:"initial_questions"`
	QuestionsAsked   int       `json:"questions_asked"`
	Transcript       []Turn    `json:"transcript"`
	Rating           *int      `json:"rating,omitempty"`
	Verdict          string    `json:"verdict,omitempty"`
	DetailedFeedback *Feedback `json:"detailed_feedback,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// New creates a session in the created status.
func New(id, cvPath, jdPath string, cfg Config, now time.Time) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	return &Session{
		ID:               id,
		Status:           StatusCreated,
		CVPath:           cvPath,
		JDPath:           jdPath,
		SystemPrompt:     cfg.SystemPrompt,
		InterviewerName:  cfg.InterviewerName,
		MaxQuestions:     cfg.MaxQuestions,
		InitialQuestions: []string{},
		Transcript:       []Turn{},
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}, nil
}

// Transition moves the session to next. It is the only place status changes.
func (s *Session) Transition(next Status) error {
	if !s.Status.CanTransition(next) {
		return &TransitionError{From: s.Status, To: next}
	}
	s.Status = next
	return nil
}

// Start marks the session as in progress. Calling it again while in progress is a no-op.
func (s *Session) Start() error {
	return s.Transition(StatusInProgress)
}

// Configure replaces the interview configuration. Only legal while created.
func (s *Session) Configure(cfg Config) error {
	if s.Status != StatusCreated {
		return fmt.Errorf("%w: cannot update configuration of a %s interview", ErrInvalidState, s.Status)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	s.SystemPrompt = cfg.SystemPrompt
	s.InterviewerName = cfg.InterviewerName
	s.MaxQuestions = cfg.MaxQuestions
	return nil
}

// Config returns the current configuration.
func (s *Session) Config() Config {
	return Config{
		SystemPrompt:    s.SystemPrompt,
		InterviewerName: s.InterviewerName,
		MaxQuestions:    s.MaxQuestions,
	}
}

// SetInitialQuestions caches the pre-generated question batch.
func (s *Session) SetInitialQuestions(questions []string) error {
	if s.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	s.InitialQuestions = cleaned
	return nil
}

// AddInterviewerRemark appends an ai turn that is not a question, such as the greeting.
func (s *Session) AddInterviewerRemark(text string) error {
	if s.Status != StatusInProgress {
		return s.notInProgress()
	}
	s.Transcript = append(s.Transcript, Turn{Speaker: SpeakerAI, Text: text})
	return nil
}

// AskQuestion appends an interviewer question and returns its ordinal number.
func (s *Session) AskQuestion(text string) (int, error) {
	if s.Status != StatusInProgress {
		return 0, s.notInProgress()
	}
	if s.BudgetExhausted() {
		return 0, ErrBudgetExhausted
	}
	s.Transcript = append(s.Transcript, Turn{Speaker: SpeakerAI, Text: text})
	s.QuestionsAsked++
	return s.QuestionsAsked, nil
}

// AddAnswer appends a candidate turn.
func (s *Session) AddAnswer(text string) error {
	if s.Status != StatusInProgress {
		return s.notInProgress()
	}
	s.Transcript = append(s.Transcript, Turn{Speaker: SpeakerCandidate, Text: text})
	return nil
}

// BudgetExhausted reports whether no more questions may be asked.
func (s *Session) BudgetExhausted() bool {
	return s.QuestionsAsked >= s.MaxQuestions
}

// Complete finalizes the session with an assessment. It succeeds once.
func (s *Session) Complete(a Assessment) error {
	if err := s.Transition(StatusCompleted); err != nil {
		return err
	}
	a = a.Normalize()
	rating := a.Rating
	feedback := a.Feedback
	s.Rating = &rating
	s.Verdict = a.Verdict
	s.DetailedFeedback = &feedback
	return nil
}

// Results returns the completed-only view.
func (s *Session) Results() (*Results, error) {
	if s.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: interview is %s", ErrInvalidState, s.Status)
	}
	res := &Results{
		InterviewID: s.ID,
		Transcript:  append([]Turn(nil), s.Transcript...),
		Verdict:     s.Verdict,
	}
	if s.Rating != nil {
		res.Rating = *s.Rating
	}
	if s.DetailedFeedback != nil {
		res.DetailedFeedback = *s.DetailedFeedback
	}
	return res, nil
}

// Touch records a modification time.
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) notInProgress() error {
	if s.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	return fmt.Errorf("%w: interview is %s", ErrInvalidState, s.Status)
}
