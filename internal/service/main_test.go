package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/storage"
	"taskboard/internal/storage/sqlite"
	"taskboard/internal/supabase"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	tokens := auth.NewTokens("test-secret", time.Minute, time.Hour)
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "board.db"), tokens, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newBoard(t *testing.T, store storage.Store, opts ...func(*Options)) *Board {
	t.Helper()
	o := Options{Logger: discardLogger(), RetryBase: time.Millisecond}
	for _, fn := range opts {
		fn(&o)
	}
	return New(store, o)
}

func register(t *testing.T, b *Board, email string) models.User {
	t.Helper()
	user, err := b.CreateOrFetchUser(context.Background(), email, "password1")
	require.NoError(t, err)
	return user
}

// countingStore records how often the enrichment lookups are called.
type countingStore struct {
	storage.Store

	mu             sync.Mutex
	usersByID      int
	categoriesByID int
	usersErr       error
}

func (s *countingStore) UsersByID(ctx context.Context, ids ...string) ([]models.User, error) {
	s.mu.Lock()
	s.usersByID++
	err := s.usersErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.UsersByID(ctx, ids...)
}

func (s *countingStore) CategoriesByID(ctx context.Context, ids ...string) ([]models.Category, error) {
	s.mu.Lock()
	s.categoriesByID++
	s.mu.Unlock()
	return s.Store.CategoriesByID(ctx, ids...)
}

// flakyStore fails the task cascade step a fixed number of times.
type flakyStore struct {
	storage.Store

	taskFailures int
	taskErr      error
	taskCalls    int
}

func (s *flakyStore) DeleteProjectTasks(ctx context.Context, projectID string) error {
	s.taskCalls++
	if s.taskCalls <= s.taskFailures {
		return s.taskErr
	}
	return s.Store.DeleteProjectTasks(ctx, projectID)
}

func transientErr() error {
	return &supabase.UpstreamError{Status: 503, Message: "Service Unavailable"}
}

// mapLookup is an in-memory cache.Lookup.
type mapLookup struct {
	mu      sync.Mutex
	entries map[string]string
	reads   int
}

func newMapLookup() *mapLookup {
	return &mapLookup{entries: map[string]string{}}
}

func (l *mapLookup) GetMany(_ context.Context, kind string, ids []string) (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	out := map[string]string{}
	for _, id := range ids {
		if v, ok := l.entries[kind+":"+id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (l *mapLookup) SetMany(_ context.Context, kind string, values map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, v := range values {
		l.entries[kind+":"+id] = v
	}
	return nil
}

func (l *mapLookup) Close() error { return nil }
