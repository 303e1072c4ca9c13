package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/fra-atlas/backend/models"
)

// Store wraps the Postgres connection. All SQL for claims, schemes,
// DSS audit logs and users lives here.
type Store struct {
	DB *sql.DB
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

const claimColumns = `id, patta_holder_name, father_or_husband_name, age, gender, address,
village_name, block, district, state, total_area_claimed, coordinates, land_use,
claim_id, date_of_application, water_bodies, forest_cover, homestead, status`

func scanClaim(row interface{ Scan(...interface{}) error }) (models.ClaimRecord, error) {
	var rec models.ClaimRecord
	err := row.Scan(&rec.ID, &rec.PattaHolderName, &rec.FatherOrHusbandName, &rec.Age,
		&rec.Gender, &rec.Address, &rec.VillageName, &rec.Block, &rec.District,
		&rec.State, &rec.TotalAreaClaimed, &rec.Coordinates, &rec.LandUse,
		&rec.ClaimID, &rec.DateOfApplication, &rec.WaterBodies, &rec.ForestCover,
		&rec.Homestead, &rec.Status)
	return rec, err
}

// Claim operations

// InsertClaim stores a structured document and returns its row id.
func (s *Store) InsertClaim(ctx context.Context, rec models.ClaimRecord) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO fra_documents (patta_holder_name, father_or_husband_name, age, gender, address,
	village_name, block, district, state, total_area_claimed, coordinates, land_use,
	claim_id, date_of_application, water_bodies, forest_cover, homestead, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
RETURNING id`,
		rec.PattaHolderName, rec.FatherOrHusbandName, rec.Age, rec.Gender, rec.Address,
		rec.VillageName, rec.Block, rec.District, rec.State, rec.TotalAreaClaimed,
		rec.Coordinates, rec.LandUse, rec.ClaimID, rec.DateOfApplication,
		rec.WaterBodies, rec.ForestCover, rec.Homestead, rec.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert claim: %w", err)
	}
	return id, nil
}

// GetClaimByID fetches one claim; the bool reports existence.
func (s *Store) GetClaimByID(ctx context.Context, id int64) (models.ClaimRecord, bool, error) {
	rec, err := scanClaim(s.DB.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM fra_documents WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ClaimRecord{}, false, nil
		}
		return models.ClaimRecord{}, false, err
	}
	return rec, true, nil
}

// FetchCandidates returns claims matching the location filter. Empty filter
// fields impose no constraint; matching is case-insensitive substring. The
// query is read-only and safe to run twice in one request.
func (s *Store) FetchCandidates(ctx context.Context, f models.LocationFilter) ([]models.ClaimRecord, error) {
	var conds []string
	var args []interface{}
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, "%"+v+"%")
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
	}
	add("village_name", f.Village)
	add("district", f.District)
	add("state", f.State)

	q := `SELECT ` + claimColumns + ` FROM fra_documents`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id"

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	defer rows.Close()

	var out []models.ClaimRecord
	for rows.Next() {
		rec, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SearchFilter restricts SearchClaims. IDs, when non-empty, limits the scan
// to those row ids (used when a ranked index supplies candidates first).
type SearchFilter struct {
	Query    string
	Status   string
	State    string
	District string
	IDs      []int64
}

// SearchClaims runs the structured claim search. The free-text query is
// matched by ILIKE across holder name, village, district, state and claim id.
func (s *Store) SearchClaims(ctx context.Context, f SearchFilter) ([]models.ClaimRecord, error) {
	var conds []string
	var args []interface{}

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(patta_holder_name ILIKE $%d OR village_name ILIKE $%d OR district ILIKE $%d OR state ILIKE $%d OR claim_id ILIKE $%d)",
			n, n, n, n, n))
	}
	// Structured filters are substring matches too, so "gadchi" finds
	// Gadchiroli the same way the free-text path would.
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, "%"+v+"%")
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
	}
	add("status", f.Status)
	add("state", f.State)
	add("district", f.District)
	if len(f.IDs) > 0 {
		args = append(args, pq.Array(f.IDs))
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	q := `SELECT ` + claimColumns + ` FROM fra_documents`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id"

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search claims: %w", err)
	}
	defer rows.Close()

	var out []models.ClaimRecord
	for rows.Next() {
		rec, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Scheme operations

// InsertScheme stores a scheme with its eligibility criteria as JSONB.
func (s *Store) InsertScheme(ctx context.Context, sc models.Scheme) (int64, error) {
	criteria, err := json.Marshal(sc.Eligibility)
	if err != nil {
		return 0, fmt.Errorf("marshal criteria: %w", err)
	}
	var id int64
	err = s.DB.QueryRowContext(ctx, `
INSERT INTO schemes (name, description, eligibility)
VALUES ($1,$2,$3)
RETURNING id`, sc.Name, sc.Description, criteria).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert scheme: %w", err)
	}
	return id, nil
}

// GetSchemeByName fetches a scheme by exact case-insensitive name; no
// pattern characters, so a "%" in a scheme name stays literal.
// Returns models.ErrSchemeNotFound when nothing matches.
func (s *Store) GetSchemeByName(ctx context.Context, name string) (models.Scheme, error) {
	var sc models.Scheme
	var criteria []byte
	err := s.DB.QueryRowContext(ctx, `
SELECT id, name, description, eligibility FROM schemes WHERE lower(name) = lower($1)`, name).
		Scan(&sc.ID, &sc.Name, &sc.Description, &criteria)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Scheme{}, models.ErrSchemeNotFound
		}
		return models.Scheme{}, fmt.Errorf("get scheme: %w", err)
	}
	if err := json.Unmarshal(criteria, &sc.Eligibility); err != nil {
		return models.Scheme{}, fmt.Errorf("decode criteria: %w", err)
	}
	return sc, nil
}

// ListSchemes returns every scheme in insertion order. The order is what
// makes substring intent matching deterministic.
func (s *Store) ListSchemes(ctx context.Context) ([]models.Scheme, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, description, eligibility FROM schemes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	defer rows.Close()

	var out []models.Scheme
	for rows.Next() {
		var sc models.Scheme
		var criteria []byte
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Description, &criteria); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(criteria, &sc.Eligibility); err != nil {
			return nil, fmt.Errorf("decode criteria: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// DSS audit log

// AppendDssLog records one DSS or search evaluation. Callers treat the
// returned error as advisory.
func (s *Store) AppendDssLog(ctx context.Context, entry models.DssAuditEntry) error {
	parsed, err := json.Marshal(entry.Parsed)
	if err != nil {
		return fmt.Errorf("marshal parsed intent: %w", err)
	}
	sample, err := json.Marshal(entry.Sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	var schemeID sql.NullInt64
	if entry.SchemeID != nil {
		schemeID = sql.NullInt64{Int64: *entry.SchemeID, Valid: true}
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO dss_logs (user_query, parsed, scheme_id, result_count, sample)
VALUES ($1,$2,$3,$4,$5)`,
		entry.UserQuery, parsed, schemeID, entry.ResultCount, sample)
	if err != nil {
		return fmt.Errorf("append dss log: %w", err)
	}
	return nil
}

// User operations

func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}
