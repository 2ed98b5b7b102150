package services

import (
	"context"
	"errors"
	"testing"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello, World!", "hello-world"},
		{"  Top 10 Charizard Cards  ", "top-10-charizard-cards"},
		{"snake_case and--dashes", "snake-case-and-dashes"},
		{"Pokémon 151 Review", "pokmon-151-review"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := GenerateSlug(tt.title); got != tt.want {
				t.Errorf("GenerateSlug(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestCreatePost_UniqueSlugs(t *testing.T) {
	ctx := context.Background()
	svc := NewBlogService(store.NewMemoryStore())
	author := models.BlogAuthor{UID: "admin", Email: "admin@example.com"}

	want := []string{"set-review", "set-review-1", "set-review-2"}
	for _, slug := range want {
		post, err := svc.CreatePost(ctx, models.BlogPost{Title: "Set Review", Excerpt: "short"}, author)
		if err != nil {
			t.Fatalf("CreatePost() error = %v", err)
		}
		if post.Slug != slug {
			t.Errorf("CreatePost() slug = %q, want %q", post.Slug, slug)
		}
		if post.MetaDescription != "short" {
			t.Errorf("CreatePost() metaDescription = %q, want excerpt", post.MetaDescription)
		}
		if post.Author == nil || post.Author.DisplayName != "admin@example.com" {
			t.Errorf("CreatePost() author = %+v, want display name from email", post.Author)
		}
		if post.PublishedAt != nil {
			t.Errorf("CreatePost() draft has publishedAt %v", post.PublishedAt)
		}
	}
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()
	svc := NewBlogService(store.NewMemoryStore())
	author := models.BlogAuthor{UID: "admin"}

	first, err := svc.CreatePost(ctx, models.BlogPost{Title: "First"}, author)
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	second, err := svc.CreatePost(ctx, models.BlogPost{Title: "Second"}, author)
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	taken := first.Slug
	if _, err := svc.UpdatePost(ctx, second.ID, models.BlogPostUpdate{Slug: &taken}); !errors.Is(err, ErrSlugExists) {
		t.Errorf("UpdatePost() with taken slug error = %v, want ErrSlugExists", err)
	}

	same := first.Slug
	title := "First, edited"
	published := true
	updated, err := svc.UpdatePost(ctx, first.ID, models.BlogPostUpdate{Slug: &same, Title: &title, Published: &published})
	if err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	if updated.Title != title || !updated.Published || updated.PublishedAt == nil {
		t.Errorf("UpdatePost() = %+v, want edited, published post", updated)
	}
	if updated.Slug != "first" {
		t.Errorf("UpdatePost() slug = %q, want first", updated.Slug)
	}
}

func TestGetPost_ByIDOrSlug(t *testing.T) {
	ctx := context.Background()
	svc := NewBlogService(store.NewMemoryStore())
	post, err := svc.CreatePost(ctx, models.BlogPost{Title: "Evolving Skies", Published: true}, models.BlogAuthor{UID: "admin"})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	for _, key := range []string{post.ID, "evolving-skies"} {
		got, err := svc.GetPost(ctx, key)
		if err != nil {
			t.Errorf("GetPost(%q) error = %v", key, err)
			continue
		}
		if got.ID != post.ID {
			t.Errorf("GetPost(%q) id = %q, want %q", key, got.ID, post.ID)
		}
	}
	if _, err := svc.GetPost(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPost(missing) error = %v, want ErrNotFound", err)
	}

	if err := svc.IncrementViews(ctx, post.ID); err != nil {
		t.Fatalf("IncrementViews() error = %v", err)
	}
	got, _ := svc.GetPost(ctx, post.ID)
	if got.Views != 1 {
		t.Errorf("views = %d, want 1", got.Views)
	}
}

func TestListPosts_PublishedOnly(t *testing.T) {
	ctx := context.Background()
	svc := NewBlogService(store.NewMemoryStore())
	author := models.BlogAuthor{UID: "admin"}
	for _, p := range []models.BlogPost{
		{Title: "Draft"},
		{Title: "Live", Published: true},
		{Title: "Featured", Published: true, Featured: true},
	} {
		if _, err := svc.CreatePost(ctx, p, author); err != nil {
			t.Fatalf("CreatePost(%s) error = %v", p.Title, err)
		}
	}

	published, err := svc.ListPosts(ctx, ListPostsOptions{PublishedOnly: true})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(published) != 2 {
		t.Errorf("ListPosts(published) = %d posts, want 2", len(published))
	}

	featured, err := svc.ListPosts(ctx, ListPostsOptions{PublishedOnly: true, FeaturedOnly: true})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(featured) != 1 || featured[0].Title != "Featured" {
		t.Errorf("ListPosts(featured) = %+v, want only Featured", featured)
	}
}
