package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDocumentNotFound indicates the store holds no document yet. The
// Synchronizer treats it as a signal to start from the empty document rather
// than an error.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore abstracts the remote JSON resource: read the whole document,
// overwrite the whole document. There are no partial updates and no
// concurrency control; the last writer wins at document granularity.
type DocumentStore interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

const defaultHTTPStoreTimeout = 15 * time.Second

// HTTPStoreConfig configures the hosted JSON document endpoint.
type HTTPStoreConfig struct {
	// URL addresses the document; the path segment is the only access
	// control the hosted store provides.
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

type httpStore struct {
	url    string
	client *http.Client
}

// NewHTTPStore returns a DocumentStore backed by a hosted JSON resource that
// supports GET and PUT of the full document.
func NewHTTPStore(cfg HTTPStoreConfig) (DocumentStore, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("document url is required")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPStoreTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &httpStore{url: url, client: client}, nil
}

func (s *httpStore) Load(ctx context.Context) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build document request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Document{}, ErrDocumentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Document{}, fmt.Errorf("fetch document: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("read document body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return Document{}, ErrDocumentNotFound
	}
	return DecodeDocument(body)
}

func (s *httpStore) Save(ctx context.Context, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build document request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("put document: unexpected status %d", resp.StatusCode)
	}
	return nil
}
