package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"
)

func newTestPokemonTCG(t *testing.T, handler http.HandlerFunc) *PokemonTCGService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewPokemonTCGService("test-key")
	svc.baseURL = server.URL
	svc.retryDelay = 0
	svc.pageLimiter = rate.NewLimiter(rate.Inf, 1)
	return svc
}

func writeCardPage(w http.ResponseWriter, page, count, total int) {
	cards := make([]PokemonTCGCard, count)
	for i := range cards {
		n := (page-1)*pokemonTCGPageSize + i + 1
		cards[i] = PokemonTCGCard{ID: fmt.Sprintf("sv1-%d", n), Name: fmt.Sprintf("Card %d", n), Number: strconv.Itoa(n)}
	}
	_ = json.NewEncoder(w).Encode(CardPage{Data: cards, Page: page, PageSize: pokemonTCGPageSize, Count: count, TotalCount: total})
}

func TestFetchAllCardsBySet_Paginates(t *testing.T) {
	sizes := []int{50, 50, 23}
	var requests int32
	svc := newTestPokemonTCG(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("X-Api-Key = %q, want test-key", r.Header.Get("X-Api-Key"))
		}
		if q := r.URL.Query().Get("q"); q != "set.id:sv1" {
			t.Errorf("q = %q, want set.id:sv1", q)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 || page > len(sizes) {
			http.NotFound(w, r)
			return
		}
		writeCardPage(w, page, sizes[page-1], 123)
	})

	cards, err := svc.FetchAllCardsBySet(context.Background(), "sv1")
	if err != nil {
		t.Fatalf("FetchAllCardsBySet() error = %v", err)
	}
	if len(cards) != 123 {
		t.Errorf("FetchAllCardsBySet() returned %d cards, want 123", len(cards))
	}
	if got := atomic.LoadInt32(&requests); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestFetchAllCardsBySet_NotFound(t *testing.T) {
	tests := []struct {
		name      string
		firstPage bool
		wantCards int
		wantErr   error
	}{
		{"first page is set not found", false, 0, ErrSetNotFound},
		{"later page ends pagination", true, 50, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestPokemonTCG(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.firstPage && r.URL.Query().Get("page") == "1" {
					// No totalCount, so the client has to ask for page 2.
					writeCardPage(w, 1, 50, 0)
					return
				}
				http.NotFound(w, r)
			})

			cards, err := svc.FetchAllCardsBySet(context.Background(), "sv1")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FetchAllCardsBySet() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchAllCardsBySet() error = %v", err)
			}
			if len(cards) != tt.wantCards {
				t.Errorf("FetchAllCardsBySet() returned %d cards, want %d", len(cards), tt.wantCards)
			}
		})
	}
}

func TestFetchAllCardsBySet_RetriesServerErrors(t *testing.T) {
	var requests int32
	svc := newTestPokemonTCG(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		writeCardPage(w, 1, 10, 10)
	})

	cards, err := svc.FetchAllCardsBySet(context.Background(), "sv1")
	if err != nil {
		t.Fatalf("FetchAllCardsBySet() error = %v", err)
	}
	if len(cards) != 10 || atomic.LoadInt32(&requests) != 2 {
		t.Errorf("got %d cards in %d requests, want 10 in 2", len(cards), requests)
	}
}

func TestFetchAllCardsBySet_GivesUpAfterRetries(t *testing.T) {
	var requests int32
	svc := newTestPokemonTCG(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	})

	_, err := svc.FetchAllCardsBySet(context.Background(), "sv1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("FetchAllCardsBySet() error = %v, want APIError 500", err)
	}
	if got := atomic.LoadInt32(&requests); got != pokemonTCGPageRetries {
		t.Errorf("requests = %d, want %d", got, pokemonTCGPageRetries)
	}
}

func TestFetchMetadata(t *testing.T) {
	var requests int32
	svc := newTestPokemonTCG(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Path != "/rarities" {
			t.Errorf("path = %q, want /rarities", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":["Common","Rare Holo"]}`))
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := svc.FetchMetadata(ctx, "rarities")
		if err != nil {
			t.Fatalf("FetchMetadata() error = %v", err)
		}
		if len(got) != 2 || got[1] != "Rare Holo" {
			t.Errorf("FetchMetadata() = %v", got)
		}
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests = %d, want 1 (second call cached)", got)
	}

	var vErr *ValidationError
	if _, err := svc.FetchMetadata(ctx, "pokemon"); !errors.As(err, &vErr) {
		t.Errorf("FetchMetadata(pokemon) error = %v, want ValidationError", err)
	}
}
