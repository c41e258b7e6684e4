package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-app/inkwell/internal/auth"
	"github.com/inkwell-app/inkwell/internal/repository"
)

func newEntryRouter(t *testing.T) (*gin.Engine, *repository.SQLiteRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := repository.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ec := NewEntryController(repo)

	router := gin.New()
	router.Use(auth.NewStaticProvider("alice").Middleware())
	router.GET("/entries", ec.List)
	router.GET("/entry/:id", ec.Get)
	router.DELETE("/entry/:id", ec.Delete)
	return router, repo
}

func seedEntry(t *testing.T, repo *repository.SQLiteRepository, owner, kind, title string) string {
	t.Helper()
	id, err := repo.Create(context.Background(), &repository.Entry{
		OwnerID: owner,
		Kind:    kind,
		Title:   title,
		Draft:   true,
	})
	if err != nil {
		t.Fatalf("failed to seed entry: %v", err)
	}
	return id
}

func TestEntryController_List(t *testing.T) {
	router, repo := newEntryRouter(t)

	seedEntry(t, repo, "alice", repository.KindJournal, "monday")
	seedEntry(t, repo, "alice", repository.KindLifeStory, "childhood")
	seedEntry(t, repo, "bob", repository.KindJournal, "not yours")

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedCount  int
	}{
		{name: "all own entries", url: "/entries", expectedStatus: http.StatusOK, expectedCount: 2},
		{name: "filtered by kind", url: "/entries?kind=journal", expectedStatus: http.StatusOK, expectedCount: 1},
		{name: "unknown kind rejected", url: "/entries?kind=poem", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var entries []repository.Entry
			if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if len(entries) != tt.expectedCount {
				t.Errorf("expected %d entries, got %d", tt.expectedCount, len(entries))
			}
			for _, e := range entries {
				if e.OwnerID != "alice" {
					t.Errorf("leaked entry owned by %q", e.OwnerID)
				}
			}
		})
	}
}

func TestEntryController_Get(t *testing.T) {
	router, repo := newEntryRouter(t)

	own := seedEntry(t, repo, "alice", repository.KindJournal, "mine")
	foreign := seedEntry(t, repo, "bob", repository.KindJournal, "theirs")

	tests := []struct {
		name           string
		id             string
		expectedStatus int
	}{
		{name: "own entry", id: own, expectedStatus: http.StatusOK},
		{name: "foreign entry looks missing", id: foreign, expectedStatus: http.StatusNotFound},
		{name: "unknown id", id: "nope", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/entry/"+tt.id, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				var e repository.Entry
				if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
					t.Fatalf("failed to parse response: %v", err)
				}
				if e.Title != "mine" {
					t.Errorf("expected title 'mine', got %q", e.Title)
				}
			}
		})
	}
}

func TestEntryController_Delete(t *testing.T) {
	router, repo := newEntryRouter(t)

	own := seedEntry(t, repo, "alice", repository.KindJournal, "mine")
	foreign := seedEntry(t, repo, "bob", repository.KindJournal, "theirs")

	req, _ := http.NewRequest(http.MethodDelete, "/entry/"+own, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	// Deleted entries are gone.
	req, _ = http.NewRequest(http.MethodGet, "/entry/"+own, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}

	// Foreign entries cannot be deleted, and the failure looks like a miss.
	req, _ = http.NewRequest(http.MethodDelete, "/entry/"+foreign, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign delete, got %d", w.Code)
	}
	if _, err := repo.Get(context.Background(), foreign); err != nil {
		t.Errorf("foreign entry should still exist: %v", err)
	}
}
