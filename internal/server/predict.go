package server

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fra-atlas/backend/internal/imagery"
)

// LandCoverClassifier is the piece of the imagery stack the handler needs;
// satisfied by *imagery.Classifier.
type LandCoverClassifier interface {
	Classify(imageBytes []byte) (imagery.Prediction, error)
}

// PredictHandler turns claim geometry into a satellite thumbnail and a
// land-cover prediction.
type PredictHandler struct {
	Fetcher    *imagery.Fetcher
	Classifier LandCoverClassifier
	SavedDir   string
	Logger     *log.Logger
}

func (h *PredictHandler) Register(g *echo.Group) {
	g.POST("/predict", h.predict)
}

// PredictResponse carries the AOI geometry and the classifier verdict.
type PredictResponse struct {
	Polygon    [][2]float64       `json:"polygon"`
	BBox       imagery.BBox       `json:"bbox"`
	Prediction imagery.Prediction `json:"prediction"`
	Thumbnail  string             `json:"thumbnail,omitempty"`
}

func (h *PredictHandler) predict(c echo.Context) error {
	var req PredictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	lat, lon, err := imagery.ParseCoordinate(req.Coordinates)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	areaM2 := imagery.AreaToSquareMeters(req.TotalAreaClaimed)
	if areaM2 <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "claimed area is missing or unparseable")
	}

	ring, box := imagery.SquarePolygon(lat, lon, areaM2)

	thumb, err := h.Fetcher.Fetch(c.Request().Context(), box)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "thumbnail fetch failed: "+err.Error())
	}

	pred, err := h.Classifier.Classify(thumb)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "classification failed: "+err.Error())
	}

	// Keeping the thumbnail on disk is best-effort; prediction still returns.
	saved := ""
	if h.SavedDir != "" {
		name := uuid.NewString() + ".png"
		if err := os.WriteFile(filepath.Join(h.SavedDir, name), thumb, 0o644); err != nil {
			h.logf("saving thumbnail failed: %v", err)
		} else {
			saved = name
		}
	}

	return c.JSON(http.StatusOK, PredictResponse{
		Polygon:    ring,
		BBox:       box,
		Prediction: pred,
		Thumbnail:  saved,
	})
}

func (h *PredictHandler) logf(format string, args ...interface{}) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}
