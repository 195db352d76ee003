package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/channel"
	"github.com/spigell/interviewer/internal/interview"
)

type fakeChannel struct {
	inbound chan channel.Response
	done    chan struct{}

	mu     sync.Mutex
	sent   []channel.Message
	closed bool
	onSend func(channel.Message)
}

func newFakeChannel(responses ...channel.Response) *fakeChannel {
	ch := &fakeChannel{
		inbound: make(chan channel.Response, len(responses)+1),
		done:    make(chan struct{}),
	}
	for _, r := range responses {
		ch.inbound <- r
	}
	return ch
}

func textAnswer(text string) channel.Response {
	return channel.Response{Type: channel.TypeResponse, Text: text}
}

func (c *fakeChannel) Send(_ context.Context, msg channel.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return channel.ErrClosed
	}
	if c.onSend != nil {
		c.onSend(msg)
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) Receive(ctx context.Context) (channel.Response, error) {
	select {
	case r, ok := <-c.inbound:
		if !ok {
			return channel.Response{}, channel.ErrClosed
		}
		return r, nil
	case <-c.done:
		return channel.Response{}, channel.ErrClosed
	case <-ctx.Done():
		return channel.Response{}, ctx.Err()
	}
}

func (c *fakeChannel) Close(string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *fakeChannel) messages() []channel.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]channel.Message(nil), c.sent...)
}

func (c *fakeChannel) types() []string {
	var out []string
	for _, m := range c.messages() {
		out = append(out, m.Type)
	}
	return out
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// memStore keeps JSON copies so callers never share memory with the store.
type memStore struct {
	mu      sync.Mutex
	records map[string][]byte
	puts    int
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, id string) (*interview.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.records[id]
	if !ok {
		return nil, interview.ErrNotFound
	}
	var s interview.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memStore) Put(_ context.Context, s *interview.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.records[s.ID] = data
	m.puts++
	return nil
}

func (m *memStore) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *memStore) mustGet(t *testing.T, id string) *interview.Session {
	t.Helper()
	s, err := m.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

type stubQuestions struct {
	mu       sync.Mutex
	initial  []string
	follow   int
	calls    int
	onFollow func()
}

func (s *stubQuestions) GenerateInitial(context.Context, ai.InitialRequest) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.initial, nil
}

func (s *stubQuestions) GenerateFollowUp(context.Context, ai.FollowUpRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follow++
	if s.onFollow != nil {
		s.onFollow()
	}
	return "Follow-up " + string(rune('A'+s.follow-1)), nil
}

type stubAssessor struct {
	mu     sync.Mutex
	result interview.Assessment
	calls  int
}

func (s *stubAssessor) GenerateAssessment(context.Context, ai.AssessmentRequest) (interview.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, nil
}

func (s *stubAssessor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubSTT struct{ text string }

func (s stubSTT) SpeechToText(context.Context, []byte) (string, error) { return s.text, nil }

type stubTTS struct{}

func (stubTTS) TextToSpeech(context.Context, string) (string, error) {
	return "/data/audio/clip.mp3", nil
}

// failingTTS reports a fallback the way the speech service does.
type failingTTS struct{}

func (failingTTS) TextToSpeech(context.Context, string) (string, error) {
	return "", errors.New("synthesis unavailable")
}

// brokenStore fails every read.
type brokenStore struct{ err error }

func (b brokenStore) Get(context.Context, string) (*interview.Session, error) { return nil, b.err }

func (b brokenStore) Put(context.Context, *interview.Session) error { return b.err }

// hungDocs ignores its context and blocks until released.
type hungDocs struct {
	once    sync.Once
	blocked chan struct{}
}

func newHungDocs() *hungDocs {
	return &hungDocs{blocked: make(chan struct{})}
}

func (h *hungDocs) ExtractPair(context.Context, string, string) (string, string) {
	<-h.blocked
	return "late cv", "late jd"
}

func (h *hungDocs) release() {
	h.once.Do(func() { close(h.blocked) })
}

type stubDocs struct{}

func (stubDocs) ExtractPair(context.Context, string, string) (string, string) {
	return "Go developer", "Backend engineer"
}

// failingProvider makes every generation call fail.
type failingProvider struct{}

func (failingProvider) InitialQuestions(context.Context, ai.InitialRequest) ([]string, error) {
	return nil, context.DeadlineExceeded
}

func (failingProvider) FollowUp(context.Context, ai.FollowUpRequest) (string, error) {
	return "", context.DeadlineExceeded
}

func (failingProvider) Assess(context.Context, ai.AssessmentRequest) (*interview.Assessment, error) {
	return nil, context.DeadlineExceeded
}

func (failingProvider) Name() string { return "failing" }

type fixture struct {
	store     *memStore
	questions *stubQuestions
	assessor  *stubAssessor
	orch      *Orchestrator
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()

	f := &fixture{
		store:     newMemStore(),
		questions: &stubQuestions{initial: []string{"Tell me about yourself.", "Unused"}},
		assessor:  &stubAssessor{result: interview.Assessment{Rating: 8, Verdict: "Strong hire"}},
	}

	deps := Deps{
		Store:     f.store,
		Questions: f.questions,
		Assessor:  f.assessor,
		STT:       stubSTT{text: "spoken answer"},
		TTS:       stubTTS{},
		Documents: stubDocs{},
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	}
	if mutate != nil {
		mutate(&deps)
	}

	orch, err := New(deps)
	require.NoError(t, err)
	f.orch = orch
	return f
}

func (f *fixture) seed(t *testing.T, id string, maxQuestions int) *interview.Session {
	t.Helper()
	s, err := interview.New(id, "cv.txt", "jd.txt", interview.Config{SystemPrompt: "Be thorough", MaxQuestions: maxQuestions}, time.Unix(1600000000, 0))
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), s))
	f.store.puts = 0
	return s
}
