// Package testutil provides shared test helpers for setting up tracker
// stores and stub tracker servers.
package testutil

import (
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/treesync/internal/api"
	"github.com/starford/treesync/internal/store"
	"github.com/starford/treesync/internal/trackerservice"
)

// TestStore creates a temporary SQLite tracker store that is automatically
// cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "treesync-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTracker starts a stub tracker with its API under /api/v1 and returns
// the server and its API base URL. An empty token disables auth.
func TestTracker(t *testing.T, token string) (*httptest.Server, string) {
	t.Helper()
	svc := trackerservice.NewService(TestStore(t), nil)

	r := chi.NewRouter()
	r.Mount("/api/v1", api.NewRouter(svc, token != "", token, nil))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, srv.URL + "/api/v1"
}
