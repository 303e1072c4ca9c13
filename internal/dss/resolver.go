// Package dss answers natural-language eligibility questions: it resolves
// the question into a scheme and location, fetches candidate claims, runs
// the criteria matcher, and logs the evaluation for audit.
package dss

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/fra-atlas/backend/models"
	"github.com/fra-atlas/backend/provider"
)

// SchemeCatalog lists the known schemes; used to canonicalize scheme
// mentions found in the query.
type SchemeCatalog interface {
	ListSchemes(ctx context.Context) ([]models.Scheme, error)
}

// locationRe pulls the token after "in" as a village guess, e.g.
// "eligible for PM-KISAN in Bhamragad".
var locationRe = regexp.MustCompile(`\bin ([A-Za-z]+)`)

// Resolver turns a free-text DSS question into a ParsedIntent. The LLM
// stage is best-effort; the regex and catalog stages always run.
type Resolver struct {
	Catalog SchemeCatalog
	LLM     provider.Provider
	Logger  *log.Logger
}

// Resolve never fails: it returns a possibly empty intent when nothing
// can be extracted.
func (r *Resolver) Resolve(ctx context.Context, query string) models.ParsedIntent {
	var intent models.ParsedIntent

	if r.LLM != nil {
		got, err := r.LLM.ExtractIntent(ctx, query)
		if err != nil {
			r.logf("llm intent extraction failed, using fallback: %v", err)
		} else {
			intent = got
		}
	}

	if intent.Location.Empty() {
		if m := locationRe.FindStringSubmatch(query); m != nil {
			intent.Location.Village = m[1]
		}
	}

	// Canonicalize against the catalog: a scheme name appearing verbatim in
	// the query (case-insensitive) beats whatever the LLM guessed, and the
	// first scheme in insertion order wins when several match.
	if r.Catalog != nil {
		schemes, err := r.Catalog.ListSchemes(ctx)
		if err != nil {
			r.logf("scheme catalog unavailable: %v", err)
		} else {
			lower := strings.ToLower(query)
			for _, sc := range schemes {
				if sc.Name != "" && strings.Contains(lower, strings.ToLower(sc.Name)) {
					intent.Scheme = sc.Name
					break
				}
			}
		}
	}

	return intent
}

func (r *Resolver) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
