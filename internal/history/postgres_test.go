package history_test

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/accentor/internal/history"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if ACCENTOR_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("ACCENTOR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ACCENTOR_TEST_POSTGRES_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh history.Postgres with a clean attempts table.
// It calls t.Cleanup to close the store when the test finishes.
func newTestStore(t *testing.T) *history.Postgres {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS attempts"); err != nil {
		t.Fatalf("drop attempts: %v", err)
	}

	store, err := history.NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestPostgres_SaveAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := history.New("en", sampleResult())
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Recent(ctx, history.Filter{})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent: got %d attempts, want 1", len(got))
	}

	a := got[0]
	if a.ID != want.ID || a.Language != want.Language {
		t.Errorf("identity: got (%q, %q), want (%q, %q)", a.ID, a.Language, want.ID, want.Language)
	}
	if a.Reference != want.Reference || a.Transcript != want.Transcript {
		t.Errorf("texts: got (%q, %q), want (%q, %q)",
			a.Reference, a.Transcript, want.Reference, want.Transcript)
	}
	if a.Accuracy != want.Accuracy {
		t.Errorf("Accuracy: got %v, want %v", a.Accuracy, want.Accuracy)
	}
	// Words survive the JSONB round trip intact.
	if !reflect.DeepEqual(a.Words, want.Words) {
		t.Errorf("Words:\n got %+v\nwant %+v", a.Words, want.Words)
	}
	// TIMESTAMPTZ keeps microsecond precision.
	if diff := a.CreatedAt.Sub(want.CreatedAt); diff.Abs() > time.Millisecond {
		t.Errorf("CreatedAt drift: %v", diff)
	}
}

func TestPostgres_RecentOrderAndFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var enIDs []string
	for _, lang := range []string{"en", "de", "en", "fr", "en"} {
		attempt := history.New(lang, sampleResult())
		if lang == "en" {
			enIDs = append(enIDs, attempt.ID)
		}
		if err := store.Save(ctx, attempt); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := store.Recent(ctx, history.Filter{})
	if err != nil {
		t.Fatalf("Recent all: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Recent all: got %d, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID < all[i].ID {
			t.Errorf("order: %q before %q, want newest first", all[i-1].ID, all[i].ID)
		}
	}

	en, err := store.Recent(ctx, history.Filter{Language: "en"})
	if err != nil {
		t.Fatalf("Recent en: %v", err)
	}
	if len(en) != 3 {
		t.Fatalf("Recent en: got %d, want 3", len(en))
	}
	if en[0].ID != enIDs[2] || en[2].ID != enIDs[0] {
		t.Errorf("en order: got [%q %q %q], want reverse of %v", en[0].ID, en[1].ID, en[2].ID, enIDs)
	}

	limited, err := store.Recent(ctx, history.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("Recent limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Recent limit 2: got %d", len(limited))
	}
}

func TestPostgres_MigrateIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// A second store against the same database must not fail on the
	// already-existing table.
	again, err := history.NewPostgres(ctx, testDSN(t))
	if err != nil {
		t.Fatalf("NewPostgres second: %v", err)
	}
	t.Cleanup(again.Close)

	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
