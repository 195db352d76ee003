package intake

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/documents"
	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/store"
)

type recordingQuestions struct {
	requests []ai.InitialRequest
}

func (r *recordingQuestions) GenerateInitial(_ context.Context, req ai.InitialRequest) ([]string, error) {
	r.requests = append(r.requests, req)
	return []string{"Question for: " + req.SystemPrompt}, nil
}

func newTestService(t *testing.T) (*Service, *store.FileStore, *recordingQuestions) {
	t.Helper()

	layout := store.Layout{Root: t.TempDir()}
	fs, err := store.NewFileStore(layout.Results())
	require.NoError(t, err)

	questions := &recordingQuestions{}
	svc, err := New(Deps{
		Layout:    layout,
		Store:     fs,
		Questions: questions,
		Documents: documents.NewExtractor(nil),
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
		NewID:     func() string { return "fixed-id" },
	})
	require.NoError(t, err)
	return svc, fs, questions
}

func validRequest() CreateRequest {
	return CreateRequest{
		CV:           Upload{Name: "resume.TXT", Reader: strings.NewReader("Seven years of Go")},
		JD:           Upload{Name: "role.md", Reader: strings.NewReader("Senior backend engineer")},
		SystemPrompt: "Focus on distributed systems",
		MaxQuestions: 3,
	}
}

func TestCreate(t *testing.T) {
	svc, fs, questions := newTestService(t)

	session, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", session.ID)
	assert.Equal(t, interview.StatusCreated, session.Status)
	assert.Equal(t, interview.DefaultInterviewerName, session.InterviewerName)
	assert.Equal(t, []string{"Question for: Focus on distributed systems"}, session.InitialQuestions)
	assert.True(t, strings.HasSuffix(session.CVPath, "fixed-id.txt"))

	require.Len(t, questions.requests, 1)
	assert.Equal(t, "Seven years of Go", questions.requests[0].CVText)
	assert.Equal(t, "Senior backend engineer", questions.requests[0].JDText)
	assert.Equal(t, 3, questions.requests[0].MaxQuestions)

	stored, err := fs.Get(context.Background(), "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, session.InitialQuestions, stored.InitialQuestions)

	raw, err := os.ReadFile(session.PromptPath)
	require.NoError(t, err)
	var prompt promptFile
	require.NoError(t, json.Unmarshal(raw, &prompt))
	assert.Equal(t, promptFile{SystemPrompt: "Focus on distributed systems", InterviewerName: "AI Interviewer", MaxQuestions: 3}, prompt)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _, questions := newTestService(t)

	noPrompt := validRequest()
	noPrompt.SystemPrompt = " "

	badBudget := validRequest()
	badBudget.MaxQuestions = -2

	badFile := validRequest()
	badFile.CV.Name = "photo.png"

	missingFile := validRequest()
	missingFile.JD.Reader = nil

	for name, req := range map[string]CreateRequest{
		"no prompt":    noPrompt,
		"bad budget":   badBudget,
		"bad file":     badFile,
		"missing file": missingFile,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), req)
			require.ErrorIs(t, err, interview.ErrInvalidConfig)
		})
	}
	assert.Empty(t, questions.requests)
}

func TestUpdateSystemPrompt(t *testing.T) {
	svc, fs, questions := newTestService(t)
	_, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateSystemPrompt(context.Background(), "fixed-id", PromptUpdate{
		SystemPrompt:    "Focus on databases",
		InterviewerName: "Ada",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", updated.InterviewerName)
	assert.Equal(t, 3, updated.MaxQuestions)
	assert.Equal(t, []string{"Question for: Focus on databases"}, updated.InitialQuestions)
	assert.Len(t, questions.requests, 2)

	stored, err := fs.Get(context.Background(), "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "Focus on databases", stored.SystemPrompt)
}

func TestUpdateSystemPromptRequiresCreatedStatus(t *testing.T) {
	svc, fs, _ := newTestService(t)
	session, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, session.Start())
	require.NoError(t, fs.Put(context.Background(), session))

	_, err = svc.UpdateSystemPrompt(context.Background(), "fixed-id", PromptUpdate{SystemPrompt: "late"})
	require.ErrorIs(t, err, interview.ErrInvalidState)
}

func TestUpdateSystemPromptUnknownInterview(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.UpdateSystemPrompt(context.Background(), "nope", PromptUpdate{SystemPrompt: "x"})
	require.ErrorIs(t, err, interview.ErrNotFound)
}

func TestCreateAppliesConfiguredDefaults(t *testing.T) {
	layout := store.Layout{Root: t.TempDir()}
	fs, err := store.NewFileStore(layout.Results())
	require.NoError(t, err)

	svc, err := New(Deps{
		Layout:    layout,
		Defaults:  interview.Config{InterviewerName: "Grace", MaxQuestions: 6},
		Store:     fs,
		Questions: &recordingQuestions{},
		Documents: documents.NewExtractor(nil),
	})
	require.NoError(t, err)

	req := validRequest()
	req.MaxQuestions = 0
	session, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Grace", session.InterviewerName)
	assert.Equal(t, 6, session.MaxQuestions)
}

func TestCreateRejectsIDCollision(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
