package localstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/classpulse/quiz-session-engine/internal/models"
)

func newTestRedisStore(t *testing.T) Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "test:")
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	entry := models.OutboxEntry{IdempotencyKey: "s1-q1-100"}
	if err := store.Set(ctx, OutboxKey, []models.OutboxEntry{entry}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var entries []models.OutboxEntry
	if err := store.Get(ctx, OutboxKey, &entries); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 1 || entries[0].IdempotencyKey != "s1-q1-100" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestRedisStore_GetMissingKey(t *testing.T) {
	store := newTestRedisStore(t)

	var dest int
	err := store.Get(context.Background(), "missing", &dest)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	scope := models.SessionScope{QuizID: "q1", StudentID: "s1", PostID: "p1"}
	for _, key := range ScopeKeys(scope) {
		if err := store.Set(ctx, key, 2); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := store.Delete(ctx, ScopeKeys(scope)...); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	for _, key := range ScopeKeys(scope) {
		var dest int
		if err := store.Get(ctx, key, &dest); !errors.Is(err, ErrNotFound) {
			t.Errorf("key %s: expected ErrNotFound after delete, got %v", key, err)
		}
	}
}

func TestRedisStore_NilClient(t *testing.T) {
	store := NewRedisStore(nil, "")

	var dest int
	if err := store.Get(context.Background(), "key", &dest); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}
	if err := store.Set(context.Background(), "key", 1); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "counter", 3); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var count int
	if err := store.Get(ctx, "counter", &count); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3, got %d", count)
	}
}

func TestMemoryStore_FailNextOp(t *testing.T) {
	store := NewMemoryStore()
	wantErr := errors.New("disk full")
	store.FailNextOp(wantErr)

	if err := store.Set(context.Background(), "key", 1); !errors.Is(err, wantErr) {
		t.Errorf("expected injected error, got %v", err)
	}

	// Next op succeeds again.
	if err := store.Set(context.Background(), "key", 1); err != nil {
		t.Errorf("expected nil after injected failure consumed, got %v", err)
	}
}

func TestGetCounter_MissingIsZero(t *testing.T) {
	store := NewMemoryStore()
	scope := models.SessionScope{QuizID: "q1", StudentID: "s1", PostID: "p1"}

	count, err := GetCounter(context.Background(), store, WarningCounterKey(scope))
	if err != nil {
		t.Fatalf("GetCounter failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 for missing counter, got %d", count)
	}
}

func TestScopeKeys(t *testing.T) {
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "stu-9", PostID: "post-4"}

	want := map[string]bool{
		"quizWarnings:quiz-1:stu-9:post-4":    false,
		"devToolWarnings:quiz-1:stu-9:post-4": false,
		"quizShuffle:quiz-1:stu-9:post-4":     false,
	}
	for _, key := range ScopeKeys(scope) {
		if _, ok := want[key]; !ok {
			t.Errorf("unexpected scope key %q", key)
		}
		want[key] = true
	}
	for key, seen := range want {
		if !seen {
			t.Errorf("missing scope key %q", key)
		}
	}
}
