package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

type fileStore struct {
	path string
}

// NewFileStore returns a DocumentStore persisting the document to a local
// JSON file, for development and the operator tools. Writes go through a
// temp file and rename so a crash never leaves a torn document behind.
func NewFileStore(path string) (DocumentStore, error) {
	if path == "" {
		return nil, fmt.Errorf("data path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &fileStore{path: path}, nil
}

func (s *fileStore) Load(ctx context.Context) (Document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, ErrDocumentNotFound
	} else if err != nil {
		return Document{}, fmt.Errorf("open store file: %w", err)
	}
	if len(raw) == 0 {
		return Document{}, ErrDocumentNotFound
	}
	return DecodeDocument(raw)
}

func (s *fileStore) Save(ctx context.Context, doc Document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "document-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}
