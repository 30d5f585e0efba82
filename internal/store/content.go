package store

import (
	"context"
	"database/sql"

	"commerce-cms/internal/models"
)

// GetPostBySlug retrieves a post by slug, optionally published-only
func (s *Store) GetPostBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Post, error) {
	query := "SELECT * FROM posts WHERE slug = $1"
	if publishedOnly {
		query += " AND status = 'published'"
	}

	var post models.Post
	err := s.db.GetContext(ctx, &post, query, slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts retrieves posts, optionally published-only
func (s *Store) ListPosts(ctx context.Context, publishedOnly bool, limit int) ([]models.Post, error) {
	query := "SELECT * FROM posts"
	if publishedOnly {
		query += " WHERE status = 'published'"
	}
	query += " ORDER BY published_at DESC NULLS LAST, created_at DESC LIMIT $1"

	var posts []models.Post
	err := s.db.SelectContext(ctx, &posts, query, limit)
	return posts, err
}

// CreatePost inserts a post
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (title, slug, excerpt, status, seo, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, post, query,
		post.Title, post.Slug, post.Excerpt, post.Status, post.SEO, post.PublishedAt)
}

// GetSeoDefaults retrieves the site-wide SEO defaults singleton
func (s *Store) GetSeoDefaults(ctx context.Context) (*models.SeoDefaults, error) {
	var defaults models.SeoDefaults
	err := s.db.GetContext(ctx, &defaults, `
		SELECT default_title, title_template, default_meta_description,
		       default_og_image_url, robots_no_index, robots_no_follow
		FROM seo_defaults WHERE id = 1`)
	if err == sql.ErrNoRows {
		return &models.SeoDefaults{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &defaults, nil
}
