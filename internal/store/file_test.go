package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spigell/interviewer/internal/interview"
)

func newSession(t *testing.T, id string, created time.Time) *interview.Session {
	t.Helper()
	s, err := interview.New(id, "cv.pdf", "jd.pdf", interview.Config{SystemPrompt: "prompt", MaxQuestions: 3}, created)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	s := newSession(t, "one", time.Unix(100, 0))
	if err := fs.Put(ctx, s); err != nil {
		t.Fatalf("put: %v", err)
	}

	_ = s.Start()
	_ = s.AddInterviewerRemark("hello")
	if err := fs.Put(ctx, s); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := fs.Get(ctx, "one")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != interview.StatusInProgress {
		t.Fatalf("expected latest write to win, got %s", got.Status)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Text != "hello" {
		t.Fatalf("unexpected transcript %+v", got.Transcript)
	}

	ok, err := fs.Exists(ctx, "one")
	if err != nil || !ok {
		t.Fatalf("expected session to exist, got %v %v", ok, err)
	}
}

func TestFileStoreNotFound(t *testing.T) {
	ctx := context.Background()
	fs, _ := NewFileStore(t.TempDir())

	for _, id := range []string{"missing", "../escape", "", ".hidden"} {
		if _, err := fs.Get(ctx, id); !errors.Is(err, interview.ErrNotFound) {
			t.Fatalf("id %q: expected ErrNotFound, got %v", id, err)
		}
		if ok, _ := fs.Exists(ctx, id); ok {
			t.Fatalf("id %q: expected not to exist", id)
		}
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, _ := NewFileStore(dir)

	s := newSession(t, "concurrent", time.Unix(1, 0))
	_ = s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			snapshot := *s
			snapshot.QuestionsAsked = n
			if err := fs.Put(ctx, &snapshot); err != nil {
				t.Errorf("put: %v", err)
			}
		}(i % 3)
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "concurrent.json" {
		t.Fatalf("expected a single record file, got %v", entries)
	}

	if _, err := fs.Get(ctx, "concurrent"); err != nil {
		t.Fatalf("record corrupted: %v", err)
	}
}

func TestFileStoreListSortedByCreation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, _ := NewFileStore(dir)

	_ = fs.Put(ctx, newSession(t, "b", time.Unix(200, 0)))
	_ = fs.Put(ctx, newSession(t, "a", time.Unix(300, 0)))
	_ = fs.Put(ctx, newSession(t, "c", time.Unix(100, 0)))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sessions, err := fs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	var ids []string
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "b" || ids[2] != "a" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestLayoutEnsure(t *testing.T) {
	l := Layout{Root: filepath.Join(t.TempDir(), "data")}
	if err := l.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, dir := range []string{l.CV(), l.JD(), l.Prompts(), l.Results(), l.Audio()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}

func TestFileStoreRejectsUnknownStatus(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	record := []byte(`{"id":"odd","status":"paused","transcript":[]}`)
	if err := os.WriteFile(filepath.Join(dir, "odd.json"), record, 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}

	_, err = fs.Get(context.Background(), "odd")
	if err == nil {
		t.Fatalf("expected an error for an unknown status")
	}
	if errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("corrupt record must not look missing: %v", err)
	}
}
