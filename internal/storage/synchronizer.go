package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultDebounce is the quiet period after the last update before the
	// document is written back to the remote store.
	DefaultDebounce = 1500 * time.Millisecond

	defaultSaveTimeout = 30 * time.Second
)

// Synchronizer owns the in-memory application document. It loads the
// document once at startup, serves non-blocking reads, applies transforms
// synchronously, and persists the result back to the remote store on a
// debounce timer. Persistence is fire-and-forget: a failed write is logged
// and counted, never retried, and never rolls back the in-memory state.
type Synchronizer struct {
	store       DocumentStore
	logger      *slog.Logger
	debounce    time.Duration
	saveTimeout time.Duration
	persistHook func(error)

	mu  sync.RWMutex
	doc Document

	timerMu sync.Mutex
	timer   *time.Timer

	saving sync.WaitGroup
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithLogger installs the logger used for persistence outcomes.
func WithLogger(logger *slog.Logger) SyncOption {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebounce overrides the persistence debounce window.
func WithDebounce(d time.Duration) SyncOption {
	return func(s *Synchronizer) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithSaveTimeout bounds each remote write.
func WithSaveTimeout(d time.Duration) SyncOption {
	return func(s *Synchronizer) {
		if d > 0 {
			s.saveTimeout = d
		}
	}
}

// WithPersistHook registers a callback invoked after every persist attempt
// with its outcome. Used for metrics and by tests to observe the debounce.
func WithPersistHook(hook func(error)) SyncOption {
	return func(s *Synchronizer) {
		s.persistHook = hook
	}
}

// NewSynchronizer builds a Synchronizer over the given store. Call Load
// before serving traffic.
func NewSynchronizer(store DocumentStore, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		store:       store,
		logger:      slog.Default(),
		debounce:    DefaultDebounce,
		saveTimeout: defaultSaveTimeout,
		doc:         NewDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the document from the remote store. A missing document or a
// transport failure degrades to the empty document so startup never fails on
// the store; the condition is logged.
func (s *Synchronizer) Load(ctx context.Context) error {
	doc, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			s.logger.Warn("document store empty, starting from default state")
		} else {
			s.logger.Warn("document load failed, starting from default state", "error", err)
		}
		doc = NewDocument()
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Read returns the current in-memory document. It always reflects the latest
// applied transform, persisted or not. The returned value shares structure
// with the live document; callers must treat it as read-only.
func (s *Synchronizer) Read() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Update applies the transform to the in-memory document immediately and
// schedules a debounced persist. A transform error leaves the document
// untouched and nothing is scheduled. Transforms must build new collections
// along the mutated path rather than aliasing the input.
func (s *Synchronizer) Update(transform func(Document) (Document, error)) error {
	s.mu.Lock()
	next, err := transform(s.doc)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next.ensureInitialized()
	s.doc = next
	empty := next.Empty()
	s.mu.Unlock()

	// An empty document is never written: it would clobber remote data
	// that a slow or failed load could not see.
	if !empty {
		s.schedulePersist()
	}
	return nil
}

func (s *Synchronizer) schedulePersist() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Reset(s.debounce)
		return
	}
	s.timer = time.AfterFunc(s.debounce, s.persist)
}

func (s *Synchronizer) persist() {
	s.saving.Add(1)
	defer s.saving.Done()

	doc := s.Read()
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	err := s.store.Save(ctx, doc)
	if err != nil {
		s.logger.Error("failed to save document state", "error", err)
	} else {
		s.logger.Debug("document state saved",
			"users", len(doc.Users), "media", len(doc.Media), "posts", len(doc.Posts))
	}
	if s.persistHook != nil {
		s.persistHook(err)
	}
}

// Flush stops any pending debounce timer and writes the current document
// immediately when it is non-empty. Called on shutdown so the last debounce
// window is not lost.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.timerMu.Lock()
	pending := false
	if s.timer != nil {
		pending = s.timer.Stop()
	}
	s.timerMu.Unlock()

	s.saving.Wait()
	if !pending {
		return nil
	}
	doc := s.Read()
	if doc.Empty() {
		return nil
	}
	err := s.store.Save(ctx, doc)
	if s.persistHook != nil {
		s.persistHook(err)
	}
	return err
}
