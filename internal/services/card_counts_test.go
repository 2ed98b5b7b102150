package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

// flakyStore fails every query while failing is set.
type flakyStore struct {
	store.DocumentStore
	failing bool
}

func (f *flakyStore) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	if f.failing {
		return nil, errors.New("connection reset")
	}
	return f.DocumentStore.Query(ctx, q)
}

func addCard(t *testing.T, st store.DocumentStore, lang models.Language, id string, dex int) {
	t.Helper()
	card := models.Card{ID: id, Name: id, NationalDexNumber: dex}
	if _, err := st.Create(context.Background(), models.CardCollection(lang), id, card); err != nil {
		t.Fatalf("Create(%s) error = %v", id, err)
	}
}

func TestGetCardCountsByDexNumber(t *testing.T) {
	st := store.NewMemoryStore()
	addCard(t, st, models.LanguageEnglish, "base1-4", 6)
	addCard(t, st, models.LanguageEnglish, "base1-58", 25)
	addCard(t, st, models.LanguageEnglish, "base1-96", 0)
	addCard(t, st, models.LanguageJapanese, "SV1-4", 6)

	tests := []struct {
		lang models.Language
		want map[int]int
	}{
		{models.LanguageEnglish, map[int]int{6: 1, 25: 1}},
		{models.LanguageJapanese, map[int]int{6: 1}},
		{models.LanguageAll, map[int]int{6: 2, 25: 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			svc := NewCardCountService(st, nil)
			got, err := svc.GetCardCountsByDexNumber(context.Background(), tt.lang, false)
			if err != nil {
				t.Fatalf("GetCardCountsByDexNumber(%q) error = %v", tt.lang, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("GetCardCountsByDexNumber(%q) = %v, want %v", tt.lang, got, tt.want)
			}
			for dex, n := range tt.want {
				if got[dex] != n {
					t.Errorf("GetCardCountsByDexNumber(%q)[%d] = %d, want %d", tt.lang, dex, got[dex], n)
				}
			}
		})
	}
}

func TestCardCountCache_ServesStaleOnFailedRefresh(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	addCard(t, mem, models.LanguageEnglish, "base1-4", 6)
	st := &flakyStore{DocumentStore: mem}
	svc := NewCardCountService(st, nil)

	first, err := svc.GetCardCountsByDexNumber(ctx, models.LanguageEnglish, false)
	if err != nil || first[6] != 1 {
		t.Fatalf("initial counts = %v, %v; want map[6:1]", first, err)
	}

	st.failing = true
	got, err := svc.GetCardCountsByDexNumber(ctx, models.LanguageEnglish, true)
	if err != nil {
		t.Fatalf("forced refresh error = %v, want stale data", err)
	}
	if got[6] != 1 {
		t.Errorf("forced refresh = %v, want stale map[6:1]", got)
	}

	empty, err := svc.GetCardCountsByDexNumber(ctx, models.LanguageJapanese, true)
	if err != nil {
		t.Fatalf("refresh without cache error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("refresh without cache = %v, want empty map", empty)
	}
}

func TestCardCountCache_TTL(t *testing.T) {
	cache := NewCardCountCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if _, ok := cache.Get(models.LanguageEnglish); ok {
		t.Fatal("Get() on empty cache returned ok")
	}

	cache.Set(models.LanguageEnglish, map[int]int{25: 3})
	if got, ok := cache.Get(models.LanguageEnglish); !ok || got[25] != 3 {
		t.Errorf("Get() = %v, %v; want map[25:3], true", got, ok)
	}

	now = now.Add(30 * time.Second)
	if age, ok := cache.Age(models.LanguageEnglish); !ok || age != 30*time.Second {
		t.Errorf("Age() = %v, %v; want 30s, true", age, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := cache.Get(models.LanguageEnglish); ok {
		t.Error("Get() after TTL returned ok")
	}
	if _, ok := cache.stale(models.LanguageEnglish); !ok {
		t.Error("stale() after TTL lost the entry")
	}

	cache.Invalidate("")
	if _, ok := cache.Age(models.LanguageEnglish); ok {
		t.Error("Age() after Invalidate returned ok")
	}
}

func TestCardCountService_UsesCache(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	addCard(t, mem, models.LanguageEnglish, "base1-4", 6)
	st := &flakyStore{DocumentStore: mem}
	svc := NewCardCountService(st, nil)

	if _, err := svc.GetCardCountsByDexNumber(ctx, models.LanguageEnglish, false); err != nil {
		t.Fatalf("GetCardCountsByDexNumber() error = %v", err)
	}
	addCard(t, mem, models.LanguageEnglish, "base1-5", 6)

	got, _ := svc.GetCardCountsByDexNumber(ctx, models.LanguageEnglish, false)
	if got[6] != 1 {
		t.Errorf("cached counts = %v, want map[6:1]", got)
	}
	got, _ = svc.GetCardCountsByDexNumber(ctx, models.LanguageEnglish, true)
	if got[6] != 2 {
		t.Errorf("forced counts = %v, want map[6:2]", got)
	}
}
