package dss

import (
	"context"
	"fmt"
	"log"

	"github.com/fra-atlas/backend/internal/eligibility"
	"github.com/fra-atlas/backend/models"
)

// sampleLimit caps how many matching records a response carries.
const sampleLimit = 5

// RecordStore is the storage surface the orchestrator needs.
type RecordStore interface {
	FetchCandidates(ctx context.Context, f models.LocationFilter) ([]models.ClaimRecord, error)
	GetSchemeByName(ctx context.Context, name string) (models.Scheme, error)
	AppendDssLog(ctx context.Context, entry models.DssAuditEntry) error
}

// CheckResponse is the DSS answer envelope.
type CheckResponse struct {
	Status   string                `json:"status"`
	Message  string                `json:"message"`
	Scheme   string                `json:"scheme,omitempty"`
	Location models.LocationFilter `json:"location"`
	Count    int                   `json:"count"`
	Results  []models.ClaimRecord  `json:"results"`
	Widened  bool                  `json:"widened,omitempty"`
}

// Orchestrator runs one DSS evaluation end to end.
type Orchestrator struct {
	Store    RecordStore
	Resolver *Resolver
	Logger   *log.Logger
}

// Check evaluates the question. The error return carries user-visible
// failures (unresolved scheme, unknown scheme, storage trouble); the audit
// write is best-effort and never fails the call.
func (o *Orchestrator) Check(ctx context.Context, query string) (CheckResponse, error) {
	intent := o.Resolver.Resolve(ctx, query)

	if intent.Scheme == "" {
		o.audit(ctx, query, intent, nil, 0, nil)
		return CheckResponse{}, fmt.Errorf("could not extract scheme name from query")
	}

	scheme, err := o.Store.GetSchemeByName(ctx, intent.Scheme)
	if err != nil {
		if err == models.ErrSchemeNotFound {
			o.audit(ctx, query, intent, nil, 0, nil)
			return CheckResponse{}, fmt.Errorf("scheme '%s' not found", intent.Scheme)
		}
		return CheckResponse{}, fmt.Errorf("database error: %v", err)
	}

	candidates, err := o.Store.FetchCandidates(ctx, intent.Location)
	if err != nil {
		return CheckResponse{}, fmt.Errorf("database error: %v", err)
	}
	matches := eligibility.Filter(candidates, scheme.Eligibility)

	widened := false
	message := "Success"

	// A location filter that matched nothing gets one unfiltered retry so
	// the caller sees whether the scheme matches anywhere at all.
	if len(matches) == 0 && !intent.Location.Empty() {
		all, err := o.Store.FetchCandidates(ctx, models.LocationFilter{})
		if err != nil {
			return CheckResponse{}, fmt.Errorf("database error: %v", err)
		}
		matches = eligibility.Filter(all, scheme.Eligibility)
		widened = true
		message = fmt.Sprintf("no records matched in the requested location; showing %d match(es) for %s across all locations",
			len(matches), scheme.Name)
	}

	sample := matches
	if len(sample) > sampleLimit {
		sample = sample[:sampleLimit]
	}

	o.audit(ctx, query, intent, &scheme.ID, len(matches), sample)

	return CheckResponse{
		Status:   "ok",
		Message:  message,
		Scheme:   scheme.Name,
		Location: intent.Location,
		Count:    len(matches),
		Results:  sample,
		Widened:  widened,
	}, nil
}

// audit records the evaluation and only logs failures.
func (o *Orchestrator) audit(ctx context.Context, query string, intent models.ParsedIntent, schemeID *int64, count int, sample []models.ClaimRecord) {
	err := o.Store.AppendDssLog(ctx, models.DssAuditEntry{
		UserQuery:   query,
		Parsed:      intent,
		SchemeID:    schemeID,
		ResultCount: count,
		Sample:      sample,
	})
	if err != nil && o.Logger != nil {
		o.Logger.Printf("dss audit write failed: %v", err)
	}
}
