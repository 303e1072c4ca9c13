package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/fra-atlas/backend/internal/claimindex"
	"github.com/fra-atlas/backend/internal/store"
	"github.com/fra-atlas/backend/models"
)

func TestSearchStructuredFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`status ILIKE \$1 AND district ILIKE \$2`).
		WithArgs("%approved%", "%Gadchiroli%").
		WillReturnRows(sqlmock.NewRows(testClaimRows).
			AddRow(testClaimRow(5, "45", "Korchi")...))

	h := &SearchHandler{Store: &store.Store{DB: db}}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/search?status=approved&district=Gadchiroli", nil)
	rec := httptest.NewRecorder()

	if err := h.search(e.NewContext(req, rec)); err != nil {
		t.Fatalf("search: %v", err)
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].ID != 5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchFreeTextWithoutIndexFallsBackToILIKE(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`patta_holder_name ILIKE \$1`).
		WithArgs("%korchi%").
		WillReturnRows(sqlmock.NewRows(testClaimRows).
			AddRow(testClaimRow(7, "45", "Korchi")...))
	// Free-text searches are audited, best-effort.
	mock.ExpectExec(`INSERT INTO dss_logs`).WillReturnResult(sqlmock.NewResult(1, 1))

	h := &SearchHandler{Store: &store.Store{DB: db}}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=korchi", nil)
	rec := httptest.NewRecorder()

	if err := h.search(e.NewContext(req, rec)); err != nil {
		t.Fatalf("search: %v", err)
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].ID != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchFreeTextUsesIndexIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	ix, err := claimindex.New()
	if err != nil {
		t.Fatalf("claimindex.New: %v", err)
	}
	if err := ix.Add(models.ClaimRecord{ID: 3, VillageName: "Bhamragad"}); err != nil {
		t.Fatalf("index add: %v", err)
	}

	// The index supplied ids, so the SQL filter is id = ANY, not ILIKE.
	mock.ExpectQuery(`id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows(testClaimRows).
			AddRow(testClaimRow(3, "45", "Bhamragad")...))
	mock.ExpectExec(`INSERT INTO dss_logs`).WillReturnResult(sqlmock.NewResult(1, 1))

	h := &SearchHandler{Store: &store.Store{DB: db}, Index: ix}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=bhamragad", nil)
	rec := httptest.NewRecorder()

	if err := h.search(e.NewContext(req, rec)); err != nil {
		t.Fatalf("search: %v", err)
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].ID != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchAuditFailureIsNonFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`patta_holder_name ILIKE`).
		WillReturnRows(sqlmock.NewRows(testClaimRows))
	mock.ExpectExec(`INSERT INTO dss_logs`).
		WillReturnError(errors.New("disk full"))

	h := &SearchHandler{Store: &store.Store{DB: db}}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=anything", nil)
	rec := httptest.NewRecorder()

	if err := h.search(e.NewContext(req, rec)); err != nil {
		t.Fatalf("audit failure must not fail search: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
}
