package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fra-atlas/backend/internal/claimindex"
	"github.com/fra-atlas/backend/internal/store"
	"github.com/fra-atlas/backend/models"
)

// searchSampleLimit caps the sample recorded in the audit log.
const searchSampleLimit = 3

// SearchHandler serves structured + free-text claim search. Free-text
// queries go through the in-memory index for ranking when it is available
// and fall back to plain ILIKE otherwise.
type SearchHandler struct {
	Store  *store.Store
	Index  *claimindex.Index
	Logger *log.Logger
}

func (h *SearchHandler) Register(g *echo.Group) {
	g.GET("", h.search)
}

func (h *SearchHandler) search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	filter := store.SearchFilter{
		Status:   strings.TrimSpace(c.QueryParam("status")),
		State:    strings.TrimSpace(c.QueryParam("state")),
		District: strings.TrimSpace(c.QueryParam("district")),
	}

	indexed := false
	if q != "" && h.Index != nil {
		ids, err := h.Index.Search(q, 100)
		if err != nil {
			h.logf("index search %q failed, falling back to sql: %v", q, err)
		} else if len(ids) > 0 {
			filter.IDs = ids
			indexed = true
		}
	}
	if !indexed {
		filter.Query = q
	}

	results, err := h.Store.SearchClaims(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if results == nil {
		results = []models.ClaimRecord{}
	}

	// Search queries feed the same audit trail as DSS checks; failures
	// never affect the response.
	if q != "" {
		sample := results
		if len(sample) > searchSampleLimit {
			sample = sample[:searchSampleLimit]
		}
		if err := h.Store.AppendDssLog(c.Request().Context(), models.DssAuditEntry{
			UserQuery:   q,
			ResultCount: len(results),
			Sample:      sample,
		}); err != nil {
			h.logf("search audit write failed: %v", err)
		}
	}

	return c.JSON(http.StatusOK, SearchResponse{Count: len(results), Results: results})
}

func (h *SearchHandler) logf(format string, args ...interface{}) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}
