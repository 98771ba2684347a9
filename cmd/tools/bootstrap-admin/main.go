// Command bootstrap-admin seeds or promotes an administrator account in the
// document store. It writes directly, without the debounced synchronizer, so
// it must not run against a live server sharing a file store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"yumetv/internal/models"
	"yumetv/internal/storage"
)

func main() {
	var (
		dataPath    string
		postgresDSN string
		documentURL string
		username    string
		email       string
		password    string
	)

	flag.StringVar(&dataPath, "data", "", "path to the JSON document file")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&documentURL, "document-url", "", "remote document store URL")
	flag.StringVar(&username, "username", "", "username for the admin account")
	flag.StringVar(&email, "email", "", "email for the admin account (required when creating)")
	flag.StringVar(&password, "password", "", "password for the admin account (required when creating)")
	flag.Parse()

	if countNonEmpty(dataPath, postgresDSN, documentURL) != 1 {
		fatalf("exactly one of --data, --postgres-dsn, or --document-url must be provided")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		fatalf("--username is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := openStore(ctx, dataPath, postgresDSN, documentURL)
	if err != nil {
		fatalf("open document store: %v", err)
	}
	defer closeStore()

	doc, err := store.Load(ctx)
	if err != nil {
		if err != storage.ErrDocumentNotFound {
			fatalf("load document: %v", err)
		}
		doc = storage.NewDocument()
	}

	promoted := false
	for i, user := range doc.Users {
		if strings.EqualFold(user.Username, username) {
			doc.Users[i].Role = models.RoleAdmin
			promoted = true
			break
		}
	}

	if !promoted {
		email = strings.TrimSpace(email)
		if email == "" {
			fatalf("--email is required to create a new admin account")
		}
		if len(password) < 8 {
			fatalf("--password must be at least 8 characters")
		}
		nextID := 1
		for _, user := range doc.Users {
			if user.ID >= nextID {
				nextID = user.ID + 1
			}
		}
		doc.Users = append(doc.Users, models.User{
			ID:              nextID,
			Username:        username,
			Email:           email,
			Password:        password,
			Role:            models.RoleAdmin,
			RecentlyWatched: []models.WatchedItem{},
		})
	}

	if err := store.Save(ctx, doc); err != nil {
		fatalf("save document: %v", err)
	}

	if promoted {
		fmt.Printf("promoted %s to admin\n", username)
	} else {
		fmt.Printf("created admin account %s\n", username)
	}
}

func openStore(ctx context.Context, dataPath, postgresDSN, documentURL string) (storage.DocumentStore, func(), error) {
	switch {
	case postgresDSN != "":
		store, err := storage.NewPostgresStore(ctx, storage.PostgresStoreConfig{
			DSN:             postgresDSN,
			ApplicationName: "yumetv-bootstrap-admin",
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
		}, nil
	case documentURL != "":
		store, err := storage.NewHTTPStore(storage.HTTPStoreConfig{URL: documentURL})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		store, err := storage.NewFileStore(dataPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func countNonEmpty(values ...string) int {
	count := 0
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			count++
		}
	}
	return count
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
