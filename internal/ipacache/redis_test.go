package ipacache_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/MrWong99/accentor/internal/ipacache"
)

// newTestRedis connects to the Redis server named by ACCENTOR_TEST_REDIS_URL,
// or skips the test when it is not set.
func newTestRedis(t *testing.T) *ipacache.Redis {
	t.Helper()
	url := os.Getenv("ACCENTOR_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ACCENTOR_TEST_REDIS_URL not set; skipping Redis integration tests")
	}
	store, err := ipacache.NewRedis(url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedis_RoundTrip(t *testing.T) {
	store := newTestRedis(t)
	ctx := context.Background()

	// Unique per run so stale entries from earlier runs cannot satisfy Get.
	word := fmt.Sprintf("roundtrip-%d", time.Now().UnixNano())

	if _, ok, err := store.Get(ctx, "en", word); err != nil || ok {
		t.Fatalf("Get before Set: got ok=%v err=%v, want miss", ok, err)
	}
	if err := store.Set(ctx, "en", word, "ˈtɛst"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := store.Get(ctx, "en", word)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got != "ˈtɛst" {
		t.Errorf("Get: got (%q, %v), want (%q, true)", got, ok, "ˈtɛst")
	}

	// Same word under a different language is its own entry.
	if _, ok, _ := store.Get(ctx, "de", word); ok {
		t.Error("entry leaked across languages")
	}
}

func TestRedis_Ping(t *testing.T) {
	store := newTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	t.Parallel()
	if _, err := ipacache.NewRedis("://not-a-url", 0); err == nil {
		t.Error("NewRedis with malformed URL: expected error, got nil")
	}
}
