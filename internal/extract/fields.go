// Package extract turns raw OCR text into a structured claim record.
// The LLM pass is best-effort; a per-field labeled-line regex fallback
// fills whatever it leaves empty, and a layered geocoding chain recovers
// coordinates when the document has none.
package extract

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/fra-atlas/backend/internal/normalize"
	"github.com/fra-atlas/backend/models"
	"github.com/fra-atlas/backend/provider"
)

// Geocoder resolves an address to "lat, lon"; "" means no result.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (string, error)
}

// coordsRe is the strict "lat, lon" shape a document coordinate must have.
var coordsRe = regexp.MustCompile(`^-?\d+\.\d+,\s*-?\d+\.\d+$`)

// ValidCoordinates reports whether s is a usable "lat, lon" pair.
func ValidCoordinates(s string) bool {
	return coordsRe.MatchString(strings.TrimSpace(s))
}

var pincodeRe = regexp.MustCompile(`\b\d{6}\b`)

// fieldPatterns are the labeled-line fallbacks, one per document field.
// They only fire for fields the LLM pass left empty.
var fieldPatterns = map[string]*regexp.Regexp{
	"Patta Holder Name":   regexp.MustCompile(`(?i)Patta Holder(?: Name)?[:\-]?\s*(.+)`),
	"Father/Husband Name": regexp.MustCompile(`(?i)(?:Father|Husband)(?:\s*/\s*Husband)?(?:'s)?\s*Name[:\-]?\s*(.+)`),
	"Age":                 regexp.MustCompile(`(?i)Age[:\-]?\s*(\d+)`),
	"Gender":              regexp.MustCompile(`(?i)Gender[:\-]?\s*([A-Za-z]+)`),
	"Address":             regexp.MustCompile(`(?i)Address[:\-]?\s*(.+)`),
	"Village Name":        regexp.MustCompile(`(?i)Village(?: Name)?[:\-]?\s*(.+)`),
	"Block":               regexp.MustCompile(`(?i)Block[:\-]?\s*(.+)`),
	"District":            regexp.MustCompile(`(?i)District[:\-]?\s*(.+)`),
	"State":               regexp.MustCompile(`(?i)State[:\-]?\s*(.+)`),
	"Total Area Claimed":  regexp.MustCompile(`(?i)(?:Total\s+)?Area(?: Claimed)?[:\-]?\s*(.+)`),
	"Coordinates":         regexp.MustCompile(`(?i)Coordinates?[:\-]?\s*(-?\d+\.\d+,\s*-?\d+\.\d+)`),
	"Land Use":            regexp.MustCompile(`(?i)Land Use[:\-]?\s*(.+)`),
	"Claim ID":            regexp.MustCompile(`(?i)Claim (?:ID|No)[.:\-]?\s*(\S+)`),
	"Date of Application": regexp.MustCompile(`(?i)Date of Application[:\-]?\s*(.+)`),
	"Water Bodies":        regexp.MustCompile(`(?i)Water Bod(?:y|ies)[:\-]?\s*(.+)`),
	"Forest Cover":        regexp.MustCompile(`(?i)Forest Cover[:\-]?\s*(.+)`),
	"Homestead":           regexp.MustCompile(`(?i)Homestead[:\-]?\s*(.+)`),
}

// Normalizer runs the full OCR-text-to-fields pipeline. LLM and Geo may be
// nil; the regex fallback then does all the work.
type Normalizer struct {
	LLM    provider.Provider
	Geo    Geocoder
	Logger *log.Logger
}

// Process structures ocrText into a label→value map covering every
// document field.
func (n *Normalizer) Process(ctx context.Context, ocrText string) map[string]string {
	fields := map[string]string{}
	if n.LLM != nil {
		got, err := n.LLM.StructureDocument(ctx, ocrText)
		if err != nil {
			n.logf("llm structuring failed, using regex fallback: %v", err)
		} else {
			fields = got
		}
	}

	for _, label := range provider.FieldLabels {
		if strings.TrimSpace(fields[label]) != "" {
			fields[label] = strings.TrimSpace(fields[label])
			continue
		}
		fields[label] = fallbackField(label, ocrText)
	}

	fields["Total Area Claimed"] = normalize.FormatAcres(fields["Total Area Claimed"])
	fields["Coordinates"] = n.resolveCoordinates(ctx, fields)
	return fields
}

func fallbackField(label, text string) string {
	re, ok := fieldPatterns[label]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// resolveCoordinates keeps a valid document coordinate pair, otherwise
// walks the geocoding chain: full address, then district+state, then a
// 6-digit pincode. Every stage is best-effort.
func (n *Normalizer) resolveCoordinates(ctx context.Context, fields map[string]string) string {
	if coords := strings.TrimSpace(fields["Coordinates"]); ValidCoordinates(coords) {
		return coords
	}
	if n.Geo == nil {
		return ""
	}

	full := joinNonEmpty(fields["Address"], fields["Village Name"], fields["Block"],
		fields["District"], fields["State"], "India")
	if coords := n.lookup(ctx, full); coords != "" {
		return coords
	}

	coarse := joinNonEmpty(fields["District"], fields["State"], "India")
	if coords := n.lookup(ctx, coarse); coords != "" {
		return coords
	}

	if pin := pincodeRe.FindString(fields["Address"]); pin != "" {
		if coords := n.lookup(ctx, pin+", India"); coords != "" {
			return coords
		}
	}
	return ""
}

func (n *Normalizer) lookup(ctx context.Context, address string) string {
	if strings.TrimSpace(address) == "" || address == "India" {
		return ""
	}
	coords, err := n.Geo.Lookup(ctx, address)
	if err != nil {
		n.logf("geocode %q failed: %v", address, err)
		return ""
	}
	return coords
}

func joinNonEmpty(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			keep = append(keep, strings.TrimSpace(p))
		}
	}
	return strings.Join(keep, ", ")
}

func (n *Normalizer) logf(format string, args ...interface{}) {
	if n.Logger != nil {
		n.Logger.Printf(format, args...)
	}
}

// ToRecord maps the label→value form into a claim record ready for insert.
func ToRecord(fields map[string]string) models.ClaimRecord {
	return models.ClaimRecord{
		PattaHolderName:     fields["Patta Holder Name"],
		FatherOrHusbandName: fields["Father/Husband Name"],
		Age:                 fields["Age"],
		Gender:              fields["Gender"],
		Address:             fields["Address"],
		VillageName:         fields["Village Name"],
		Block:               fields["Block"],
		District:            fields["District"],
		State:               fields["State"],
		TotalAreaClaimed:    fields["Total Area Claimed"],
		Coordinates:         fields["Coordinates"],
		LandUse:             fields["Land Use"],
		ClaimID:             fields["Claim ID"],
		DateOfApplication:   fields["Date of Application"],
		WaterBodies:         fields["Water Bodies"],
		ForestCover:         fields["Forest Cover"],
		Homestead:           fields["Homestead"],
		Status:              "pending",
	}
}
