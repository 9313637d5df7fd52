package worker

import (
	"errors"
	"testing"
	"time"

	"cabinetquote/internal/model"
)

type memoryStore struct {
	saved []model.Message
	err   error
}

func (m *memoryStore) Create(msg *model.Message) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *msg)
	return nil
}

func TestPersist(t *testing.T) {
	store := &memoryStore{}
	w := NewTranscriptWorker(nil, store, "q")

	body := []byte(`{"id":42,"session_key":"default","role":"user","content":"kitchen for Jane","created_at":"2026-01-02T03:04:05Z"}`)
	if err := w.persist(body); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved %d messages", len(store.saved))
	}
	got := store.saved[0]
	if got.ID != 0 || got.SessionKey != "default" || got.Content != "kitchen for Jane" {
		t.Errorf("saved = %+v", got)
	}
	if !got.CreatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("created_at = %v", got.CreatedAt)
	}
}

func TestPersist_Errors(t *testing.T) {
	if err := NewTranscriptWorker(nil, &memoryStore{}, "q").persist([]byte("{")); err == nil {
		t.Error("bad json should fail")
	}
	failing := &memoryStore{err: errors.New("db down")}
	if err := NewTranscriptWorker(nil, failing, "q").persist([]byte(`{"role":"user"}`)); err == nil {
		t.Error("store failure should surface")
	}
}
