package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

func newTestTCGdex(t *testing.T, handler http.HandlerFunc) (*TCGdexService, *int32) {
	t.Helper()
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	s := NewTCGdexService()
	s.baseURL = srv.URL
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	return s, &requests
}

func TestTCGdex_FetchSetByIDCaches(t *testing.T) {
	s, requests := newTestTCGdex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ja/sets/sv1" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"id":"sv1","name":"Scarlet ex","cards":[{"id":"sv1-001","localId":"001","name":"Pineco"}]}`))
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		set, err := s.FetchSetByID(ctx, "sv1", models.LanguageJapanese)
		if err != nil {
			t.Fatalf("FetchSetByID() error = %v", err)
		}
		if set.Name != "Scarlet ex" || len(set.Cards) != 1 || !set.Cards[0].IsBrief() {
			t.Errorf("FetchSetByID() = %+v, want Scarlet ex with one brief card", set)
		}
	}
	if got := atomic.LoadInt32(requests); got != 1 {
		t.Errorf("requests = %d, want 1 (cached)", got)
	}

	s.ClearCache()
	if _, err := s.FetchSetByID(ctx, "sv1", models.LanguageJapanese); err != nil {
		t.Fatalf("FetchSetByID() after ClearCache error = %v", err)
	}
	if got := atomic.LoadInt32(requests); got != 2 {
		t.Errorf("requests after ClearCache = %d, want 2", got)
	}
}

func TestTCGdex_FetchCardsBySetNotFound(t *testing.T) {
	s, _ := newTestTCGdex(t, http.NotFound)

	_, err := s.FetchCardsBySet(context.Background(), "nope", models.LanguageEnglish)
	if !errors.Is(err, ErrSetNotFound) {
		t.Errorf("FetchCardsBySet() error = %v, want ErrSetNotFound", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchCardsBySet() error = %v, want it to match ErrNotFound", err)
	}
}

func TestTCGdex_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, func(err error) bool { return errors.Is(err, ErrNotFound) }},
		{"server error", http.StatusInternalServerError, func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusInternalServerError
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestTCGdex(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := s.FetchCardByID(context.Background(), "base1-4", models.LanguageEnglish)
			if err == nil || !tt.check(err) {
				t.Errorf("FetchCardByID() error = %v", err)
			}
		})
	}
}

func TestSeedSets_ReadsCurrentSetDetails(t *testing.T) {
	var total int32 = 100
	s, _ := newTestTCGdex(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/en/sets":
			w.Write([]byte(`[{"id":"sv1","name":"Scarlet & Violet"}]`))
		case "/en/sets/sv1":
			fmt.Fprintf(w, `{"id":"sv1","name":"Scarlet & Violet","cardCount":{"total":%d,"official":%d}}`, atomic.LoadInt32(&total), atomic.LoadInt32(&total))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()
	st := store.NewMemoryStore()
	seeder := NewSeeder(st, s)

	for _, want := range []int32{100, 120} {
		atomic.StoreInt32(&total, want)
		if _, err := seeder.SeedSets(ctx, models.LanguageEnglish); err != nil {
			t.Fatalf("SeedSets() error = %v", err)
		}
		sets, err := queryAs[models.Set](ctx, st, store.NewQuery(models.SetCollection(models.LanguageEnglish)))
		if err != nil {
			t.Fatalf("query sets: %v", err)
		}
		if len(sets) != 1 || sets[0].TotalCards != int(want) {
			t.Errorf("stored sets = %+v, want one set with totalCards %d", sets, want)
		}
	}
}
