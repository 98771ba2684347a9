package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yumetv/internal/models"
)

func newHTTPStoreFor(t *testing.T, handler http.HandlerFunc) DocumentStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	store, err := NewHTTPStore(HTTPStoreConfig{URL: server.URL + "/v1/documents/yumetv"})
	if err != nil {
		t.Fatalf("new http store: %v", err)
	}
	return store
}

func TestHTTPStoreLoadMissingDocument(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"404": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"empty body": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
		"json null": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "null\n")
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			store := newHTTPStoreFor(t, handler)
			if _, err := store.Load(context.Background()); !errors.Is(err, ErrDocumentNotFound) {
				t.Fatalf("expected ErrDocumentNotFound, got %v", err)
			}
		})
	}
}

func TestHTTPStoreLoadDecodesDocument(t *testing.T) {
	store := newHTTPStoreFor(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		io.WriteString(w, `{"users":[{"id":3,"username":"aya"}],"pendingUsers":[{"username":"rin","tokenExpires":"2025-03-01T12:00:00.000Z"}]}`)
	})

	doc, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Users) != 1 || doc.Users[0].ID != 3 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	want := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	if len(doc.PendingUsers) != 1 || !doc.PendingUsers[0].TokenExpires.Equal(want) {
		t.Fatalf("timestamp not revived: %+v", doc.PendingUsers)
	}
}

func TestHTTPStoreLoadSurfacesServerErrors(t *testing.T) {
	store := newHTTPStoreFor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	if _, err := store.Load(context.Background()); err == nil || errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected a transport error, got %v", err)
	}
}

func TestHTTPStoreSavePutsWholeDocument(t *testing.T) {
	var received Document
	var method, contentType string
	store := newHTTPStoreFor(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	doc := NewDocument()
	doc.Users = append(doc.Users, models.User{ID: 1, Username: "aya"})
	if err := store.Save(context.Background(), doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if method != http.MethodPut {
		t.Fatalf("method = %s, want PUT", method)
	}
	if contentType != "application/json" {
		t.Fatalf("content type = %q", contentType)
	}
	if len(received.Users) != 1 || received.Users[0].Username != "aya" {
		t.Fatalf("unexpected payload: %+v", received)
	}
}

func TestHTTPStoreSaveRejectedByServer(t *testing.T) {
	store := newHTTPStoreFor(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "read only", http.StatusForbidden)
	})
	if err := store.Save(context.Background(), NewDocument()); err == nil {
		t.Fatal("expected an error for a rejected PUT")
	}
}

func TestNewHTTPStoreRequiresURL(t *testing.T) {
	if _, err := NewHTTPStore(HTTPStoreConfig{URL: "  "}); err == nil {
		t.Fatal("expected an error for a blank url")
	}
}
