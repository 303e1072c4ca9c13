package store_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fra-atlas/backend/internal/store"
	"github.com/fra-atlas/backend/models"
)

func startPostgres(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "fraatlas",
			"POSTGRES_PASSWORD": "fraatlas",
			"POSTGRES_DB":       "fraatlas",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(1).WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		_ = pg.Terminate(ctx)
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host, err := pg.Host(ctx)
	if err != nil {
		_ = pg.Terminate(ctx)
		t.Fatalf("failed to get host: %v", err)
	}
	dsn := fmt.Sprintf("postgres://fraatlas:fraatlas@%s:%s/fraatlas?sslmode=disable", host, port.Port())
	return pg, dsn
}

func findMigrationsDir(t *testing.T) string {
	t.Helper()
	cwd, _ := os.Getwd()
	for i := 0; i < 6; i++ {
		candidate := filepath.Join(cwd, "migrations")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return "file://" + candidate
		}
		cwd = filepath.Dir(cwd)
	}
	t.Fatalf("could not locate migrations directory from test cwd")
	return ""
}

func migrateUp(t *testing.T, dsn string) {
	t.Helper()
	var err error
	for i := 0; i < 6; i++ {
		var m *migrate.Migrate
		m, err = migrate.New(findMigrationsDir(t), dsn)
		if err == nil {
			err = m.Up()
			_, _ = m.Close()
		}
		if err == nil || err == migrate.ErrNoChange {
			return
		}
		time.Sleep(300 * time.Millisecond)
	}
	t.Fatalf("migrate up failed after retries: %v", err)
}

func TestStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	pg, dsn := startPostgres(t, ctx)
	defer func() { _ = pg.Terminate(ctx) }()

	migrateUp(t, dsn)

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.DB.Close()

	id, err := st.InsertClaim(ctx, models.ClaimRecord{
		PattaHolderName:  "Ram Singh",
		Age:              "45",
		Gender:           "male",
		VillageName:      "Bhamragad",
		District:         "Gadchiroli",
		State:            "Maharashtra",
		TotalAreaClaimed: "2.00 acres",
		Status:           "pending",
	})
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero claim id")
	}

	rec, ok, err := st.GetClaimByID(ctx, id)
	if err != nil || !ok {
		t.Fatalf("GetClaimByID: ok=%v err=%v", ok, err)
	}
	if rec.PattaHolderName != "Ram Singh" {
		t.Fatalf("unexpected holder: %q", rec.PattaHolderName)
	}

	// Substring location match, case-insensitive.
	got, err := st.FetchCandidates(ctx, models.LocationFilter{Village: "bhamra"})
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("unexpected candidates: %+v", got)
	}

	minAge := 18
	schemeID, err := st.InsertScheme(ctx, models.Scheme{
		Name:        "PM-KISAN",
		Description: "Income support for farmers",
		Eligibility: models.EligibilityCriteria{MinAge: &minAge, State: "Maharashtra"},
	})
	if err != nil {
		t.Fatalf("InsertScheme: %v", err)
	}

	sc, err := st.GetSchemeByName(ctx, "pm-kisan")
	if err != nil {
		t.Fatalf("GetSchemeByName: %v", err)
	}
	if sc.ID != schemeID || sc.Eligibility.MinAge == nil || *sc.Eligibility.MinAge != 18 {
		t.Fatalf("unexpected scheme: %+v", sc)
	}

	if _, err := st.GetSchemeByName(ctx, "No Such Scheme"); err != models.ErrSchemeNotFound {
		t.Fatalf("expected ErrSchemeNotFound, got %v", err)
	}

	schemes, err := st.ListSchemes(ctx)
	if err != nil || len(schemes) != 1 {
		t.Fatalf("ListSchemes: %v %+v", err, schemes)
	}

	if err := st.AppendDssLog(ctx, models.DssAuditEntry{
		UserQuery:   "pm-kisan in Bhamragad",
		Parsed:      models.ParsedIntent{Scheme: "PM-KISAN", Location: models.LocationFilter{Village: "Bhamragad"}},
		SchemeID:    &schemeID,
		ResultCount: 1,
		Sample:      []models.ClaimRecord{rec},
	}); err != nil {
		t.Fatalf("AppendDssLog: %v", err)
	}

	found, err := st.SearchClaims(ctx, store.SearchFilter{Query: "gadchi", Status: "pending"})
	if err != nil {
		t.Fatalf("SearchClaims: %v", err)
	}
	if len(found) != 1 || found[0].ID != id {
		t.Fatalf("unexpected search result: %+v", found)
	}
}
