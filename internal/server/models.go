package server

import "github.com/fra-atlas/backend/models"

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// UploadResponse is returned after a document is ingested.
type UploadResponse struct {
	Status string            `json:"status"`
	DocID  int64             `json:"doc_id"`
	Data   map[string]string `json:"data"`
}

// CreateSchemeRequest represents a new scheme payload.
type CreateSchemeRequest struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Eligibility models.EligibilityCriteria `json:"eligibility"`
}

// IDResponse is a generic id response wrapper.
type IDResponse struct {
	ID int64 `json:"id"`
}

// SearchResponse wraps a claim search result set.
type SearchResponse struct {
	Count   int                  `json:"count"`
	Results []models.ClaimRecord `json:"results"`
}

// PredictRequest carries the claim geometry inputs for land-cover prediction.
type PredictRequest struct {
	Coordinates      string `json:"coordinates"`
	TotalAreaClaimed string `json:"total_area_claimed"`
}
