// Package eligibility decides whether a claim record satisfies a scheme's
// criteria. Only criteria that are present constrain; an empty rule set
// matches everything.
package eligibility

import (
	"strings"

	"github.com/fra-atlas/backend/internal/normalize"
	"github.com/fra-atlas/backend/models"
)

// Matches reports whether rec satisfies every present criterion in c.
// Age bounds fail when the record has no parseable age.
func Matches(rec models.ClaimRecord, c models.EligibilityCriteria) bool {
	if c.MinAge != nil || c.MaxAge != nil {
		age, ok := normalize.FirstInt(rec.Age)
		if !ok {
			return false
		}
		if c.MinAge != nil && age < *c.MinAge {
			return false
		}
		if c.MaxAge != nil && age > *c.MaxAge {
			return false
		}
	}
	if c.State != "" {
		if !strings.EqualFold(strings.TrimSpace(rec.State), strings.TrimSpace(c.State)) {
			return false
		}
	}
	if c.Gender != "" {
		if normalize.Gender(rec.Gender) != normalize.Gender(c.Gender) {
			return false
		}
	}
	if c.MinLandAreaAcres != nil {
		if normalize.ToAcres(rec.TotalAreaClaimed) < *c.MinLandAreaAcres {
			return false
		}
	}
	return true
}

// Filter returns the subset of records matching c, preserving order.
func Filter(records []models.ClaimRecord, c models.EligibilityCriteria) []models.ClaimRecord {
	out := make([]models.ClaimRecord, 0, len(records))
	for _, rec := range records {
		if Matches(rec, c) {
			out = append(out, rec)
		}
	}
	return out
}
