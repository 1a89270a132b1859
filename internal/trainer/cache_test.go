package trainer_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/accentor/internal/trainer"
	asrmock "github.com/MrWong99/accentor/pkg/provider/asr/mock"
)

func newFactory(constructions *atomic.Int32) trainer.Factory {
	return func(_ context.Context, language string) (*trainer.Trainer, error) {
		if constructions != nil {
			constructions.Add(1)
		}
		return trainer.New(language,
			trainer.WithASR(&asrmock.Provider{}),
			trainer.WithTranscriber(newPhonemes()),
		)
	}
}

func TestCache_GetOrCreate_ReturnsSameInstance(t *testing.T) {
	t.Parallel()

	cache := trainer.NewCache(newFactory(nil))
	first, err := cache.GetOrCreate(context.Background(), "en")
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	second, err := cache.GetOrCreate(context.Background(), "en")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if first != second {
		t.Error("GetOrCreate returned different instances for the same language")
	}
}

func TestCache_ConcurrentFirstRequests_ConstructOnce(t *testing.T) {
	t.Parallel()

	var constructions atomic.Int32
	slowFactory := func(ctx context.Context, language string) (*trainer.Trainer, error) {
		// Widen the race window so racing callers really overlap.
		time.Sleep(20 * time.Millisecond)
		return newFactory(&constructions)(ctx, language)
	}
	cache := trainer.NewCache(slowFactory)

	const callers = 16
	results := make([]*trainer.Trainer, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr, err := cache.GetOrCreate(context.Background(), "de")
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			results[i] = tr
		}(i)
	}
	wg.Wait()

	if n := constructions.Load(); n != 1 {
		t.Errorf("factory ran %d times; want 1", n)
	}
	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d received a different trainer instance", i)
		}
	}
}

func TestCache_FailedConstruction_NotCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	wantErr := errors.New("provider unavailable")
	factory := func(ctx context.Context, language string) (*trainer.Trainer, error) {
		if calls.Add(1) == 1 {
			return nil, wantErr
		}
		return newFactory(nil)(ctx, language)
	}
	cache := trainer.NewCache(factory)

	if _, err := cache.GetOrCreate(context.Background(), "fr"); !errors.Is(err, wantErr) {
		t.Fatalf("first GetOrCreate error = %v; want errors.Is(..., %v)", err, wantErr)
	}
	tr, err := cache.GetOrCreate(context.Background(), "fr")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v (failed construction must not be cached)", err)
	}
	if tr == nil {
		t.Fatal("second GetOrCreate returned nil trainer")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("factory ran %d times; want 2", n)
	}
}

func TestCache_Languages_SortedSnapshot(t *testing.T) {
	t.Parallel()

	cache := trainer.NewCache(newFactory(nil))
	for _, lang := range []string{"fr", "en", "de"} {
		if _, err := cache.GetOrCreate(context.Background(), lang); err != nil {
			t.Fatalf("GetOrCreate(%q): %v", lang, err)
		}
	}

	got := cache.Languages()
	want := []string{"de", "en", "fr"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Languages() = %v; want %v", got, want)
	}
}

func TestCache_Reset_RebuildsOnNextUse(t *testing.T) {
	t.Parallel()

	var constructions atomic.Int32
	cache := trainer.NewCache(newFactory(&constructions))

	first, err := cache.GetOrCreate(context.Background(), "en")
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	cache.Reset()
	if langs := cache.Languages(); len(langs) != 0 {
		t.Errorf("Languages() after Reset = %v; want empty", langs)
	}

	second, err := cache.GetOrCreate(context.Background(), "en")
	if err != nil {
		t.Fatalf("GetOrCreate after Reset: %v", err)
	}
	if first == second {
		t.Error("GetOrCreate after Reset returned the cached instance")
	}
	if n := constructions.Load(); n != 2 {
		t.Errorf("factory ran %d times; want 2", n)
	}
}
