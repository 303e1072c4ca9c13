// Package claimindex keeps an in-memory full-text index over claim
// records for the free-text search parameter. The index is advisory:
// Postgres stays the source of truth and search degrades to ILIKE when
// the index is unavailable.
package claimindex

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/fra-atlas/backend/models"
)

// claimDoc is the indexed projection of a claim.
type claimDoc struct {
	PattaHolderName string `json:"patta_holder_name"`
	VillageName     string `json:"village_name"`
	District        string `json:"district"`
	State           string `json:"state"`
	ClaimID         string `json:"claim_id"`
}

// Index is a mutex-guarded bleve memory index keyed by claim row id.
type Index struct {
	mu    sync.Mutex
	index bleve.Index
}

// New creates an empty memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create claim index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Add indexes (or re-indexes) one claim.
func (ix *Index) Add(rec models.ClaimRecord) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Index(strconv.FormatInt(rec.ID, 10), claimDoc{
		PattaHolderName: rec.PattaHolderName,
		VillageName:     rec.VillageName,
		District:        rec.District,
		State:           rec.State,
		ClaimID:         rec.ClaimID,
	})
}

// Rebuild replaces the index contents with recs.
func (ix *Index) Rebuild(recs []models.ClaimRecord) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("rebuild claim index: %w", err)
	}
	batch := idx.NewBatch()
	for _, rec := range recs {
		if err := batch.Index(strconv.FormatInt(rec.ID, 10), claimDoc{
			PattaHolderName: rec.PattaHolderName,
			VillageName:     rec.VillageName,
			District:        rec.District,
			State:           rec.State,
			ClaimID:         rec.ClaimID,
		}); err != nil {
			return err
		}
	}
	if err := idx.Batch(batch); err != nil {
		return err
	}
	old := ix.index
	ix.index = idx
	_ = old.Close()
	return nil
}

// Search returns claim row ids ranked by relevance, at most limit.
func (ix *Index) Search(query string, limit int) ([]int64, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("claim index search: %w", err)
	}
	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
