package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jsahoo/recall/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

func TestStoreAndRetrieveLongTerm(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.StoreLongTerm(ctx, LongTermParams{
		Key: "favorite_color", Value: "blue", UserID: "alice",
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty memory id")
	}

	got, err := s.RetrieveLongTerm(ctx, LongTermQuery{Key: "favorite_color"})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Value != "blue" {
		t.Errorf("expected 'blue', got %v", got[0].Value)
	}
	if got[0].MemoryType != model.TypeFact {
		t.Errorf("expected default type fact, got %q", got[0].MemoryType)
	}
	if got[0].Importance != model.DefaultImportance {
		t.Errorf("expected default importance, got %v", got[0].Importance)
	}
}

func TestLongTermValueTypes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	values := map[string]any{
		"str":  "plain text",
		"num":  42.0,
		"bool": true,
		"list": []any{"a", "b"},
		"map":  map[string]any{"nested": "yes"},
	}
	for key, val := range values {
		if _, err := s.StoreLongTerm(ctx, LongTermParams{Key: key, Value: val}); err != nil {
			t.Fatalf("store %s: %v", key, err)
		}
	}

	for key, want := range values {
		got, err := s.RetrieveLongTerm(ctx, LongTermQuery{Key: key})
		if err != nil || len(got) != 1 {
			t.Fatalf("retrieve %s: %v (%d results)", key, err, len(got))
		}
		switch key {
		case "str", "num", "bool":
			if got[0].Value != want {
				t.Errorf("%s: expected %v, got %v", key, want, got[0].Value)
			}
		case "list":
			lst, ok := got[0].Value.([]any)
			if !ok || len(lst) != 2 || lst[0] != "a" {
				t.Errorf("list: got %v", got[0].Value)
			}
		case "map":
			m, ok := got[0].Value.(map[string]any)
			if !ok || m["nested"] != "yes" {
				t.Errorf("map: got %v", got[0].Value)
			}
		}
	}
}

func TestLongTermAccessTracking(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.StoreLongTerm(ctx, LongTermParams{Key: "k", Value: "v"})

	// Returned rows carry the pre-increment count.
	first, _ := s.RetrieveLongTerm(ctx, LongTermQuery{Key: "k"})
	if first[0].AccessCount != 0 {
		t.Errorf("first read: expected access_count 0, got %d", first[0].AccessCount)
	}
	second, _ := s.RetrieveLongTerm(ctx, LongTermQuery{Key: "k"})
	if second[0].AccessCount != 1 {
		t.Errorf("second read: expected access_count 1, got %d", second[0].AccessCount)
	}
	third, _ := s.RetrieveLongTerm(ctx, LongTermQuery{Key: "k"})
	if third[0].AccessCount != 2 {
		t.Errorf("third read: expected access_count 2, got %d", third[0].AccessCount)
	}
}

func TestLongTermUserScoping(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.StoreLongTerm(ctx, LongTermParams{Key: "diet", Value: "vegetarian", UserID: "alice"})
	s.StoreLongTerm(ctx, LongTermParams{Key: "diet", Value: "vegan", UserID: "bob"})
	s.StoreLongTerm(ctx, LongTermParams{Key: "diet", Value: "anything"}) // global

	got, err := s.RetrieveLongTerm(ctx, LongTermQuery{Key: "diet", UserID: "alice"})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	// Alice sees her own memory plus the unowned one, never Bob's.
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	for _, m := range got {
		if m.UserID == "bob" {
			t.Error("another user's memory leaked into the result")
		}
	}
}

func TestLongTermImportanceOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.StoreLongTerm(ctx, LongTermParams{Key: "low", Value: "x", Importance: floatPtr(0.2)})
	s.StoreLongTerm(ctx, LongTermParams{Key: "high", Value: "x", Importance: floatPtr(0.9)})
	s.StoreLongTerm(ctx, LongTermParams{Key: "mid", Value: "x", Importance: floatPtr(0.5)})

	got, _ := s.RetrieveLongTerm(ctx, LongTermQuery{})
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	if got[0].Key != "high" || got[1].Key != "mid" || got[2].Key != "low" {
		t.Errorf("expected importance-descending order, got %s %s %s", got[0].Key, got[1].Key, got[2].Key)
	}

	filtered, _ := s.RetrieveLongTerm(ctx, LongTermQuery{MinImportance: 0.5})
	if len(filtered) != 2 {
		t.Errorf("expected 2 at min importance 0.5, got %d", len(filtered))
	}
}

func TestLongTermImportanceValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.StoreLongTerm(ctx, LongTermParams{Key: "k", Value: "v", Importance: floatPtr(1.5)})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for importance 1.5, got %v", err)
	}
	_, err = s.StoreLongTerm(ctx, LongTermParams{Key: "k", Value: "v", Importance: floatPtr(-0.1)})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for negative importance, got %v", err)
	}
	_, err = s.StoreLongTerm(ctx, LongTermParams{Value: "v"})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for missing key, got %v", err)
	}
}

func TestUpdateImportance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, _ := s.StoreLongTerm(ctx, LongTermParams{Key: "k", Value: "v"})

	if err := s.UpdateImportance(ctx, id, 0.9); err != nil {
		t.Fatalf("update importance: %v", err)
	}
	got, _ := s.RetrieveLongTerm(ctx, LongTermQuery{Key: "k"})
	if got[0].Importance != 0.9 {
		t.Errorf("expected importance 0.9, got %v", got[0].Importance)
	}

	if err := s.UpdateImportance(ctx, id, 2.0); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
	if err := s.UpdateImportance(ctx, "ghost", 0.5); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreAndRetrieveShortTerm(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.StoreShortTerm(ctx, ShortTermParams{
		SessionID: "sess-1", Key: "scratch", Value: map[string]any{"step": 3.0},
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty memory id")
	}

	got, err := s.RetrieveShortTerm(ctx, ShortTermQuery{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].MemoryType != model.TypeContext {
		t.Errorf("expected default type context, got %q", got[0].MemoryType)
	}
	if got[0].ExpiresAt == nil {
		t.Error("expected default TTL to set expires_at")
	}
	m, ok := got[0].Value.(map[string]any)
	if !ok || m["step"] != 3.0 {
		t.Errorf("value round trip failed: %v", got[0].Value)
	}
}

func TestShortTermSessionIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "a", Key: "k", Value: "va"})
	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "b", Key: "k", Value: "vb"})

	got, _ := s.RetrieveShortTerm(ctx, ShortTermQuery{SessionID: "a"})
	if len(got) != 1 || got[0].Value != "va" {
		t.Errorf("expected only session a's memory, got %+v", got)
	}

	if _, err := s.RetrieveShortTerm(ctx, ShortTermQuery{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid without session id, got %v", err)
	}
}

func TestShortTermZeroTTLExpiresImmediately(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "s", Key: "gone", Value: "x", TTLHours: floatPtr(0)})
	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "s", Key: "kept", Value: "y", NoExpiry: true})

	got, _ := s.RetrieveShortTerm(ctx, ShortTermQuery{SessionID: "s"})
	if len(got) != 1 || got[0].Key != "kept" {
		t.Fatalf("expected only the unexpiring memory, got %+v", got)
	}
	if got[0].ExpiresAt != nil {
		t.Error("NoExpiry memory should have nil expires_at")
	}

	// The expired row is filtered, not deleted, until cleanup runs.
	var count int
	s.db.QueryRow(`SELECT COUNT(*) FROM short_term_memory WHERE session_id = 's'`).Scan(&count)
	if count != 2 {
		t.Errorf("expected 2 physical rows before cleanup, got %d", count)
	}
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "s", Key: "a", Value: "x", TTLHours: floatPtr(0)})
	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "s", Key: "b", Value: "y", TTLHours: floatPtr(0)})
	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "s", Key: "c", Value: "z"})

	n, err := s.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}

	again, _ := s.CleanupExpired(ctx)
	if again != 0 {
		t.Errorf("expected 0 on second cleanup, got %d", again)
	}

	got, _ := s.RetrieveShortTerm(ctx, ShortTermQuery{SessionID: "s"})
	if len(got) != 1 || got[0].Key != "c" {
		t.Errorf("expected the live memory to survive cleanup, got %+v", got)
	}
}

func TestShortTermRecencyOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "s", Key: "first", Value: "1"})
	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "s", Key: "second", Value: "2"})
	s.StoreShortTerm(ctx, ShortTermParams{SessionID: "s", Key: "third", Value: "3"})

	got, _ := s.RetrieveShortTerm(ctx, ShortTermQuery{SessionID: "s"})
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	if got[0].Key != "third" || got[2].Key != "first" {
		t.Errorf("expected most recent first, got %s %s %s", got[0].Key, got[1].Key, got[2].Key)
	}

	limited, _ := s.RetrieveShortTerm(ctx, ShortTermQuery{SessionID: "s", Limit: 2})
	if len(limited) != 2 || limited[0].Key != "third" {
		t.Errorf("limit should keep the newest entries, got %+v", limited)
	}
}

func TestExportImportLongTerm(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.StoreLongTerm(ctx, LongTermParams{Key: "a", Value: "1", UserID: "alice", Importance: floatPtr(0.8)})
	s.StoreLongTerm(ctx, LongTermParams{Key: "b", Value: "2", UserID: "bob"})

	exported, err := s.ExportLongTerm(ctx, "alice")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported) != 1 || exported[0].Key != "a" {
		t.Fatalf("expected alice's single memory, got %+v", exported)
	}

	dest := newTestStore(t)
	n, err := dest.ImportLongTerm(ctx, exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 imported, got %d", n)
	}

	got, _ := dest.RetrieveLongTerm(ctx, LongTermQuery{Key: "a"})
	if len(got) != 1 || got[0].Importance != 0.8 {
		t.Errorf("imported memory mismatch: %+v", got)
	}
	if got[0].ID == exported[0].ID {
		t.Error("import should mint a fresh id")
	}
	if got[0].AccessCount != 0 {
		t.Errorf("import should reset access counters, got %d", got[0].AccessCount)
	}
}
