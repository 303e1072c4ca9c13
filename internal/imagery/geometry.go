// Package imagery turns a claim's coordinates and claimed area into a
// square area of interest, fetches a satellite thumbnail for it, and runs
// the land-cover classifier over the pixels.
package imagery

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	sqMetersPerAcre    = 4046.8564224
	sqMetersPerHectare = 10000.0
	metersPerDegreeLat = 111000.0
)

var coordPairRe = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)$`)

// ParseCoordinate parses "lat, lon". Documents sometimes record the pair
// the other way around; when the first number cannot be a latitude but the
// second can, the two are swapped.
func ParseCoordinate(s string) (lat, lon float64, err error) {
	m := coordPairRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid coordinate pair %q", s)
	}
	a, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, err
	}
	if math.Abs(a) > 90 && math.Abs(b) <= 90 {
		a, b = b, a
	}
	return a, b, nil
}

var areaNumRe = regexp.MustCompile(`([\d.]+)\s*([a-zA-Z ]+)?`)

// AreaToSquareMeters converts a free-text claimed area to square meters.
// Unknown or missing units are read as acres; "sq m" style units pass
// through unchanged. No parseable number yields 0.
func AreaToSquareMeters(s string) float64 {
	m := areaNumRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	unit := strings.ToLower(strings.TrimSpace(m[2]))
	switch {
	case strings.Contains(unit, "acre"):
		return value * sqMetersPerAcre
	case strings.Contains(unit, "hect") || strings.HasPrefix(unit, "ha"):
		return value * sqMetersPerHectare
	case strings.Contains(unit, "m"):
		return value
	default:
		return value * sqMetersPerAcre
	}
}

// BBox is a lon/lat bounding box.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// SquarePolygon builds a square of the given area centered on the point,
// as a closed lon/lat ring. The longitude delta is corrected for latitude.
func SquarePolygon(lat, lon, areaM2 float64) ([][2]float64, BBox) {
	halfSide := math.Sqrt(areaM2) / 2
	dLat := halfSide / metersPerDegreeLat
	dLon := halfSide / (metersPerDegreeLat * math.Cos(lat*math.Pi/180))

	box := BBox{
		MinLon: lon - dLon,
		MinLat: lat - dLat,
		MaxLon: lon + dLon,
		MaxLat: lat + dLat,
	}
	ring := [][2]float64{
		{box.MinLon, box.MinLat},
		{box.MaxLon, box.MinLat},
		{box.MaxLon, box.MaxLat},
		{box.MinLon, box.MaxLat},
		{box.MinLon, box.MinLat},
	}
	return ring, box
}
