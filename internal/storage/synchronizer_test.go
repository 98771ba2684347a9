package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"yumetv/internal/models"
)

type memStore struct {
	mu      sync.Mutex
	doc     Document
	hasDoc  bool
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(ctx context.Context) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return Document{}, m.loadErr
	}
	if !m.hasDoc {
		return Document{}, ErrDocumentNotFound
	}
	return m.doc, nil
}

func (m *memStore) Save(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = doc
	m.hasDoc = true
	m.saves++
	return nil
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func addUser(t *testing.T, sync *Synchronizer, id int) {
	t.Helper()
	err := sync.Update(func(doc Document) (Document, error) {
		users := append(append([]models.User{}, doc.Users...), models.User{ID: id, Username: "user"})
		doc.Users = users
		return doc, nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestSynchronizerLoadFallsBackToEmptyDocument(t *testing.T) {
	store := &memStore{loadErr: errors.New("connection refused")}
	sync := NewSynchronizer(store)
	if err := sync.Load(context.Background()); err != nil {
		t.Fatalf("load should never fail, got %v", err)
	}
	doc := sync.Read()
	if !doc.Empty() {
		t.Fatal("fallback document should be empty")
	}
	if doc.Settings != models.DefaultSettings() {
		t.Fatal("fallback document should carry default settings")
	}
}

func TestSynchronizerReadReflectsUpdateImmediately(t *testing.T) {
	store := &memStore{}
	sync := NewSynchronizer(store, WithDebounce(time.Hour))
	sync.Load(context.Background())

	addUser(t, sync, 1)

	if len(sync.Read().Users) != 1 {
		t.Fatal("update not visible before persistence")
	}
	if store.saveCount() != 0 {
		t.Fatal("persist should still be pending inside the debounce window")
	}
}

func TestSynchronizerCoalescesBurstsIntoOneSave(t *testing.T) {
	store := &memStore{}
	done := make(chan error, 8)
	sync := NewSynchronizer(store,
		WithDebounce(30*time.Millisecond),
		WithPersistHook(func(err error) { done <- err }))
	sync.Load(context.Background())

	for i := 1; i <= 5; i++ {
		addUser(t, sync, i)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("persist failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("persist never ran")
	}

	if got := store.saveCount(); got != 1 {
		t.Fatalf("expected one coalesced save, got %d", got)
	}
	if len(store.doc.Users) != 5 {
		t.Fatalf("persisted document should hold all updates, got %d users", len(store.doc.Users))
	}
}

func TestSynchronizerNeverPersistsEmptyDocument(t *testing.T) {
	store := &memStore{}
	sync := NewSynchronizer(store, WithDebounce(10*time.Millisecond))
	sync.Load(context.Background())

	err := sync.Update(func(doc Document) (Document, error) {
		doc.Settings.SiteName = "still empty"
		return doc, nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if store.saveCount() != 0 {
		t.Fatal("empty document must not be written")
	}
}

func TestSynchronizerUpdateErrorLeavesDocumentUntouched(t *testing.T) {
	store := &memStore{}
	sync := NewSynchronizer(store, WithDebounce(time.Hour))
	sync.Load(context.Background())
	addUser(t, sync, 1)

	boom := errors.New("boom")
	err := sync.Update(func(doc Document) (Document, error) {
		return Document{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transform error, got %v", err)
	}
	if len(sync.Read().Users) != 1 {
		t.Fatal("failed transform must not change the document")
	}
}

func TestSynchronizerSaveFailureIsSwallowed(t *testing.T) {
	store := &memStore{saveErr: errors.New("remote down")}
	done := make(chan error, 1)
	sync := NewSynchronizer(store,
		WithDebounce(10*time.Millisecond),
		WithPersistHook(func(err error) { done <- err }))
	sync.Load(context.Background())

	addUser(t, sync, 1)

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected persist error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("persist never ran")
	}

	// State stays live and readable after the failed write.
	if len(sync.Read().Users) != 1 {
		t.Fatal("in-memory state lost after failed persist")
	}
	addUser(t, sync, 2)
	if len(sync.Read().Users) != 2 {
		t.Fatal("updates after a failed persist must still apply")
	}
}

func TestSynchronizerFlushWritesPendingState(t *testing.T) {
	store := &memStore{}
	sync := NewSynchronizer(store, WithDebounce(time.Hour))
	sync.Load(context.Background())

	addUser(t, sync, 1)

	if err := sync.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if store.saveCount() != 1 {
		t.Fatalf("expected flush to save once, got %d", store.saveCount())
	}
	if err := sync.Flush(context.Background()); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if store.saveCount() != 1 {
		t.Fatal("flush without pending changes must not save again")
	}
}
