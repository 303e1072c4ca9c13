package claimindex

import (
	"testing"

	"github.com/fra-atlas/backend/models"
)

func TestAddAndSearch(t *testing.T) {
	ix, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	recs := []models.ClaimRecord{
		{ID: 1, PattaHolderName: "Ram Singh", VillageName: "Bhamragad", District: "Gadchiroli", State: "Maharashtra"},
		{ID: 2, PattaHolderName: "Sita Devi", VillageName: "Korchi", District: "Gadchiroli", State: "Maharashtra"},
		{ID: 3, PattaHolderName: "Budhram Majhi", VillageName: "Rayagada", District: "Rayagada", State: "Odisha"},
	}
	for _, rec := range recs {
		if err := ix.Add(rec); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	ids, err := ix.Search("bhamragad", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("unexpected ids: %v", ids)
	}

	ids, err = ix.Search("gadchiroli", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 hits for district, got %v", ids)
	}
}

func TestRebuild(t *testing.T) {
	ix, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ix.Add(models.ClaimRecord{ID: 1, VillageName: "Old Village"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err = ix.Rebuild([]models.ClaimRecord{{ID: 2, VillageName: "Fresh Village"}})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	ids, err := ix.Search("old", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("rebuilt index should drop old docs: %v", ids)
	}

	ids, err = ix.Search("fresh", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
