package server

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fra-atlas/backend/internal/claimindex"
	"github.com/fra-atlas/backend/internal/extract"
	"github.com/fra-atlas/backend/internal/ocr"
	"github.com/fra-atlas/backend/internal/store"
)

// UploadHandler runs the document intake pipeline: OCR, structuring,
// normalization, insert, index update.
type UploadHandler struct {
	Store      *store.Store
	OCR        ocr.Engine
	Normalizer *extract.Normalizer
	Index      *claimindex.Index
	MaxSize    int64
	Logger     *log.Logger
}

func (h *UploadHandler) Register(g *echo.Group) {
	g.POST("", h.upload)
}

func (h *UploadHandler) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}
	if h.MaxSize > 0 && fh.Size > h.MaxSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()
	image, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	text, err := h.OCR.ExtractText(ctx, image)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "ocr failed: "+err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "no text found in document")
	}

	fields := h.Normalizer.Process(ctx, text)
	rec := extract.ToRecord(fields)

	id, err := h.Store.InsertClaim(ctx, rec)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	rec.ID = id
	documentsIngested.Inc()

	// Index update is advisory; search falls back to SQL when it lags.
	if h.Index != nil {
		if err := h.Index.Add(rec); err != nil {
			h.logf("index update for claim %d failed: %v", id, err)
		}
	}

	return c.JSON(http.StatusCreated, UploadResponse{
		Status: "ok",
		DocID:  id,
		Data:   fields,
	})
}

func (h *UploadHandler) logf(format string, args ...interface{}) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}
