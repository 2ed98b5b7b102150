package models

import "time"

type BlogAuthor struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

type BlogPost struct {
	ID                string      `json:"id,omitempty"`
	Title             string      `json:"title"`
	Slug              string      `json:"slug"`
	Content           string      `json:"content"`
	Excerpt           string      `json:"excerpt"`
	HeroImage         string      `json:"heroImage,omitempty"`
	Tags              []string    `json:"tags"`
	Published         bool        `json:"published"`
	Featured          bool        `json:"featured"`
	MetaTitle         string      `json:"metaTitle,omitempty"`
	MetaDescription   string      `json:"metaDescription"`
	Keywords          []string    `json:"keywords"`
	LinkedSetID       string      `json:"linkedSetId,omitempty"`
	LinkedSetName     string      `json:"linkedSetName,omitempty"`
	LinkedPokemonID   int         `json:"linkedPokemonId,omitempty"`
	LinkedPokemonName string      `json:"linkedPokemonName,omitempty"`
	Author            *BlogAuthor `json:"author,omitempty"`
	Views             int         `json:"views"`
	PublishedAt       *time.Time  `json:"publishedAt,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// BlogPostUpdate carries the fields an edit may change; nil fields are left
// as they are.
type BlogPostUpdate struct {
	Title           *string   `json:"title,omitempty"`
	Slug            *string   `json:"slug,omitempty"`
	Content         *string   `json:"content,omitempty"`
	Excerpt         *string   `json:"excerpt,omitempty"`
	HeroImage       *string   `json:"heroImage,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	Published       *bool     `json:"published,omitempty"`
	Featured        *bool     `json:"featured,omitempty"`
	MetaTitle       *string   `json:"metaTitle,omitempty"`
	MetaDescription *string   `json:"metaDescription,omitempty"`
	Keywords        *[]string `json:"keywords,omitempty"`
}
