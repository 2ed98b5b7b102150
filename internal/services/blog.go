package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/codyseavey/pokemon-collector/backend/internal/models"
	"github.com/codyseavey/pokemon-collector/backend/internal/store"
)

var ErrSlugExists = errors.New("slug already exists")

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugSeparate = regexp.MustCompile(`[\s_-]+`)
)

// GenerateSlug lowercases title, drops punctuation and joins words with
// hyphens: "Hello, World!" -> "hello-world".
func GenerateSlug(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugSeparate.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

type BlogService struct {
	store store.DocumentStore
	now   func() time.Time
}

func NewBlogService(st store.DocumentStore) *BlogService {
	return &BlogService{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// IsSlugUnique reports whether no post other than excludeID uses slug.
func (s *BlogService) IsSlugUnique(ctx context.Context, slug, excludeID string) (bool, error) {
	docs, err := s.store.Query(ctx, store.NewQuery(models.CollectionBlogPosts).Where("slug", store.OpEqual, slug))
	if err != nil {
		return false, err
	}
	for _, d := range docs {
		if d.ID != excludeID {
			return false, nil
		}
	}
	return true, nil
}

type ListPostsOptions struct {
	PublishedOnly bool
	FeaturedOnly  bool
	Limit         int
	Ascending     bool
}

// ListPosts returns posts ordered by publish date, falling back to creation
// date for drafts.
func (s *BlogService) ListPosts(ctx context.Context, opts ListPostsOptions) ([]models.BlogPost, error) {
	q := store.NewQuery(models.CollectionBlogPosts)
	if opts.PublishedOnly {
		q = q.Where("published", store.OpEqual, true)
	}
	if opts.FeaturedOnly {
		q = q.Where("featured", store.OpEqual, true)
	}
	q = q.Order("createdAt", !opts.Ascending)
	if opts.Limit > 0 {
		q = q.Take(opts.Limit)
	}

	posts, err := queryAs[models.BlogPost](ctx, s.store, q)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := postDate(&posts[i]), postDate(&posts[j])
		if opts.Ascending {
			return a.Before(b)
		}
		return a.After(b)
	})
	return posts, nil
}

func postDate(p *models.BlogPost) time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

// GetPost looks a post up by document id, then by slug.
func (s *BlogService) GetPost(ctx context.Context, idOrSlug string) (*models.BlogPost, error) {
	post, err := getAs[models.BlogPost](ctx, s.store, models.CollectionBlogPosts, idOrSlug)
	if err == nil {
		return post, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	posts, err := queryAs[models.BlogPost](ctx, s.store, store.NewQuery(models.CollectionBlogPosts).
		Where("slug", store.OpEqual, idOrSlug).Take(1))
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("blog post %s: %w", idOrSlug, ErrNotFound)
	}
	return &posts[0], nil
}

// CreatePost stores a new post. A taken slug gets a numeric suffix
// ("my-post-1", "my-post-2", ...).
func (s *BlogService) CreatePost(ctx context.Context, post models.BlogPost, author models.BlogAuthor) (*models.BlogPost, error) {
	if strings.TrimSpace(post.Title) == "" {
		return nil, validationErr("title", "is required")
	}
	base := post.Slug
	if base == "" {
		base = GenerateSlug(post.Title)
	}
	if base == "" {
		return nil, validationErr("slug", "could not be generated from title")
	}

	slug := base
	for counter := 1; ; counter++ {
		unique, err := s.IsSlugUnique(ctx, slug, "")
		if err != nil {
			return nil, err
		}
		if unique {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}

	post.ID = ""
	post.Slug = slug
	post.Views = 0
	post.PublishedAt = nil
	if post.Published {
		now := s.now()
		post.PublishedAt = &now
	}
	if post.MetaDescription == "" {
		post.MetaDescription = post.Excerpt
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.Keywords == nil {
		post.Keywords = []string{}
	}
	if author.DisplayName == "" {
		author.DisplayName = author.Email
	}
	post.Author = &author

	id, err := s.store.Create(ctx, models.CollectionBlogPosts, "", post)
	if err != nil {
		return nil, fmt.Errorf("failed to create blog post: %w", err)
	}
	return getAs[models.BlogPost](ctx, s.store, models.CollectionBlogPosts, id)
}

// UpdatePost applies an edit. Slug uniqueness is only checked when the slug
// changes, and publishedAt is set the first time a post is published.
func (s *BlogService) UpdatePost(ctx context.Context, id string, update models.BlogPostUpdate) (*models.BlogPost, error) {
	current, err := getAs[models.BlogPost](ctx, s.store, models.CollectionBlogPosts, id)
	if err != nil {
		return nil, err
	}

	if update.Slug != nil && *update.Slug != current.Slug {
		if *update.Slug == "" {
			return nil, validationErr("slug", "cannot be empty")
		}
		unique, err := s.IsSlugUnique(ctx, *update.Slug, id)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, ErrSlugExists
		}
	}

	fields, err := store.ToFields(update)
	if err != nil {
		return nil, err
	}
	if update.Published != nil && *update.Published && current.PublishedAt == nil {
		fields["publishedAt"] = s.now()
	}
	if len(fields) > 0 {
		if err := s.store.Update(ctx, models.CollectionBlogPosts, id, fields); err != nil {
			return nil, err
		}
	}
	return getAs[models.BlogPost](ctx, s.store, models.CollectionBlogPosts, id)
}

func (s *BlogService) DeletePost(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, models.CollectionBlogPosts, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, models.CollectionBlogPosts, id)
}

func (s *BlogService) IncrementViews(ctx context.Context, id string) error {
	return s.store.Increment(ctx, models.CollectionBlogPosts, id, "views", 1)
}
