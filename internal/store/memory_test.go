package store

import (
	"context"
	"sync"
	"testing"
)

func TestStore_GetCachedTranslation_Miss(t *testing.T) {
	s := newTestStore(t)

	text, found, err := s.GetCachedTranslation(context.Background(), "Hello", "en", "uk")
	if err != nil {
		t.Errorf("GetCachedTranslation failed: %v", err)
	}
	if found {
		t.Error("expected not found for uncached translation")
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestStore_GetCachedTranslation_Hit(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveToMemory(context.Background(), "Hello", "en", "uk", "Привіт", "", "google")
	if err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}

	// Lookup keys are normalized the same way as saved keys.
	text, found, err := s.GetCachedTranslation(context.Background(), "  Hello\n", "en", "uk")
	if err != nil {
		t.Errorf("GetCachedTranslation failed: %v", err)
	}
	if !found {
		t.Error("expected to find cached translation")
	}
	if text != "Привіт" {
		t.Errorf("expected 'Привіт', got %q", text)
	}

	entries, err := s.ListMemory(context.Background())
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) != 1 || entries[0].UsageCount != 2 || entries[0].ServiceUsed != "google" {
		t.Errorf("unexpected memory entries %+v", entries)
	}
}

func TestStore_SaveToMemory_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Hello", "en", "uk", "Привіт", "", "google")
	s.SaveToMemory(ctx, "Hello", "en", "uk", "Вітаю", "", "llm")

	text, found, _ := s.GetCachedTranslation(ctx, "Hello", "en", "uk")
	if !found || text != "Вітаю" {
		t.Errorf("expected replaced translation, got found=%v %q", found, text)
	}
	stats, _ := s.Stats(ctx)
	if stats.TotalEntries != 1 {
		t.Errorf("expected 1 entry after replace, got %d", stats.TotalEntries)
	}
}

func TestStore_GetCachedTranslation_Invalidated(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveToMemory(context.Background(), "Hello", "en", "uk", "Привіт", "", "google")
	if err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}

	entries, err := s.ListMemory(context.Background())
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one entry")
	}

	err = s.InvalidateMemory(context.Background(), entries[0].ID)
	if err != nil {
		t.Fatalf("InvalidateMemory failed: %v", err)
	}

	text, found, err := s.GetCachedTranslation(context.Background(), "Hello", "en", "uk")
	if err != nil {
		t.Errorf("GetCachedTranslation failed: %v", err)
	}
	if found {
		t.Error("expected not found for invalidated translation")
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.InvalidEntries != 1 || stats.ActiveEntries != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Errorf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 0 {
		t.Errorf("expected 0 total entries, got %d", stats.TotalEntries)
	}

	s.SaveToMemory(context.Background(), "Hello", "en", "uk", "Привіт", "", "google")
	s.SaveToMemory(context.Background(), "World", "en", "uk", "Світ", "", "google")

	stats, err = s.Stats(context.Background())
	if err != nil {
		t.Errorf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 2 {
		t.Errorf("expected 2 total entries, got %d", stats.TotalEntries)
	}
	if stats.ActiveEntries != 2 {
		t.Errorf("expected 2 active entries, got %d", stats.ActiveEntries)
	}
	if stats.TotalUsage != 2 {
		t.Errorf("expected total usage 2, got %d", stats.TotalUsage)
	}
}

func TestStore_DeleteMemory(t *testing.T) {
	s := newTestStore(t)

	s.SaveToMemory(context.Background(), "Hello", "en", "uk", "Привіт", "", "google")

	entries, err := s.ListMemory(context.Background())
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one entry")
	}

	err = s.DeleteMemory(context.Background(), entries[0].ID)
	if err != nil {
		t.Errorf("DeleteMemory failed: %v", err)
	}

	entries, err = s.ListMemory(context.Background())
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries after delete, got %d", len(entries))
	}
}

func TestStore_ClearMemory(t *testing.T) {
	s := newTestStore(t)

	s.SaveToMemory(context.Background(), "Hello", "en", "uk", "Привіт", "", "google")
	s.SaveToMemory(context.Background(), "World", "en", "uk", "Світ", "", "google")

	count, err := s.ClearMemory(context.Background())
	if err != nil {
		t.Errorf("ClearMemory failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 cleared, got %d", count)
	}

	entries, err := s.ListMemory(context.Background())
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries after clear, got %d", len(entries))
	}
}

func TestStore_MultipleLanguagePairs(t *testing.T) {
	s := newTestStore(t)

	s.SaveToMemory(context.Background(), "Hello", "en", "uk", "Привіт", "", "google")
	s.SaveToMemory(context.Background(), "Hello", "en", "de", "Hallo", "", "google")
	s.SaveToMemory(context.Background(), "Hello", "en", "fr", "Bonjour", "", "google")

	text, found, _ := s.GetCachedTranslation(context.Background(), "Hello", "en", "uk")
	if !found || text != "Привіт" {
		t.Errorf("en->uk: expected found=true and 'Привіт', got found=%v and %q", found, text)
	}

	text, found, _ = s.GetCachedTranslation(context.Background(), "Hello", "en", "de")
	if !found || text != "Hallo" {
		t.Errorf("en->de: expected found=true and 'Hallo', got found=%v and %q", found, text)
	}

	text, found, _ = s.GetCachedTranslation(context.Background(), "Hello", "en", "fr")
	if !found || text != "Bonjour" {
		t.Errorf("en->fr: expected found=true and 'Bonjour', got found=%v and %q", found, text)
	}

	_, found, _ = s.GetCachedTranslation(context.Background(), "Hello", "en", "es")
	if found {
		t.Error("en->es: expected not found")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	words := []string{"one", "two", "three", "four", "five", "six", "seven", "eight"}
	var wg sync.WaitGroup
	for _, w := range words {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.SaveToMemory(ctx, w, "en", "uk", w+"-uk", "", "google"); err != nil {
				t.Errorf("SaveToMemory(%q) failed: %v", w, err)
			}
			if _, _, err := s.GetCachedTranslation(ctx, w, "en", "uk"); err != nil {
				t.Errorf("GetCachedTranslation(%q) failed: %v", w, err)
			}
		}()
	}
	wg.Wait()

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != len(words) {
		t.Errorf("expected %d entries, got %d", len(words), stats.TotalEntries)
	}
}
