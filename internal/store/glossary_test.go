package store

import (
	"context"
	"testing"
)

func TestStore_Glossary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddGlossaryTerm(ctx, "en", "uk", "Vault", "Сейф"); err != nil {
		t.Fatalf("AddGlossaryTerm failed: %v", err)
	}
	s.AddGlossaryTerm(ctx, "en", "uk", "Vault", "Сховище")
	s.AddGlossaryTerm(ctx, "en", "uk", "Kubernetes", "Kubernetes")
	s.AddGlossaryTerm(ctx, "en", "de", "Vault", "Tresor")

	terms, err := s.GetGlossaryTerms(ctx, "en", "uk")
	if err != nil {
		t.Fatalf("GetGlossaryTerms failed: %v", err)
	}
	if len(terms) != 2 || terms["Vault"] != "Сховище" {
		t.Errorf("unexpected terms %v", terms)
	}

	all, err := s.ListGlossaryTerms(ctx, "", "")
	if err != nil {
		t.Fatalf("ListGlossaryTerms failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].TargetLang != "de" {
		t.Errorf("expected entries ordered by language pair, got %+v", all[0])
	}

	german, _ := s.ListGlossaryTerms(ctx, "", "de")
	if len(german) != 1 || german[0].TargetTerm != "Tresor" {
		t.Errorf("unexpected target filter result %+v", german)
	}

	if err := s.DeleteGlossaryTerm(ctx, german[0].ID); err != nil {
		t.Fatalf("DeleteGlossaryTerm failed: %v", err)
	}
	terms, _ = s.GetGlossaryTerms(ctx, "en", "de")
	if len(terms) != 0 {
		t.Errorf("expected no terms after delete, got %v", terms)
	}
}
