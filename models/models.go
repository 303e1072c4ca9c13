package models

import (
	"errors"
	"time"
)

// ErrSchemeNotFound is returned when a scheme lookup by name finds nothing.
var ErrSchemeNotFound = errors.New("scheme not found")

// ClaimRecord is one ingested land-claim document (a fra_documents row).
// Every textual field may be empty: OCR output is unreliable by nature and
// the matching logic tolerates absence.
type ClaimRecord struct {
	ID                  int64  `json:"id"`
	PattaHolderName     string `json:"patta_holder_name"`
	FatherOrHusbandName string `json:"father_or_husband_name"`
	Age                 string `json:"age"`
	Gender              string `json:"gender"`
	Address             string `json:"address"`
	VillageName         string `json:"village_name"`
	Block               string `json:"block"`
	District            string `json:"district"`
	State               string `json:"state"`
	TotalAreaClaimed    string `json:"total_area_claimed"`
	Coordinates         string `json:"coordinates"`
	LandUse             string `json:"land_use"`
	ClaimID             string `json:"claim_id"`
	DateOfApplication   string `json:"date_of_application"`
	WaterBodies         string `json:"water_bodies"`
	ForestCover         string `json:"forest_cover"`
	Homestead           string `json:"homestead"`
	Status              string `json:"status"`
}

// EligibilityCriteria is the structured rule set attached to a scheme.
// A nil pointer or empty string means the criterion is unconstrained.
type EligibilityCriteria struct {
	MinAge           *int     `json:"min_age,omitempty"`
	MaxAge           *int     `json:"max_age,omitempty"`
	State            string   `json:"state,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	MinLandAreaAcres *float64 `json:"min_land_area_acres,omitempty"`
}

// Scheme is a government program with an eligibility rule set.
type Scheme struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Eligibility EligibilityCriteria `json:"eligibility"`
}

// LocationFilter restricts candidate fetches; empty fields impose no constraint.
// Matching is case-insensitive substring so partial location queries work.
type LocationFilter struct {
	Village  string `json:"village,omitempty"`
	District string `json:"district,omitempty"`
	State    string `json:"state,omitempty"`
}

// Empty reports whether no location constraint is set.
func (f LocationFilter) Empty() bool {
	return f.Village == "" && f.District == "" && f.State == ""
}

// ParsedIntent is the ephemeral result of resolving a DSS question.
// Either part may be absent; callers decide how to degrade.
type ParsedIntent struct {
	Scheme   string         `json:"scheme,omitempty"`
	Location LocationFilter `json:"location"`
}

// DssAuditEntry records one DSS query evaluation. Entries are append-only
// and never read back by the query path.
type DssAuditEntry struct {
	UserQuery   string        `json:"user_query"`
	Parsed      ParsedIntent  `json:"parsed"`
	SchemeID    *int64        `json:"scheme_id,omitempty"`
	ResultCount int           `json:"result_count"`
	Sample      []ClaimRecord `json:"sample"`
	CreatedAt   time.Time     `json:"created_at,omitempty"`
}
