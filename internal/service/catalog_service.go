package service

import (
	"context"
	"fmt"
	"time"

	"commerce-cms/internal/access"
	"commerce-cms/internal/content"
	"commerce-cms/internal/models"
	"commerce-cms/internal/util"

	"go.uber.org/zap"
)

const (
	cacheTTL           = 5 * time.Minute
	productCachePrefix = "public:product:"
	postCachePrefix    = "public:post:"
)

// PublicProduct is a public product read with resolved SEO.
type PublicProduct struct {
	Doc *models.Product     `json:"doc"`
	SEO content.ResolvedSEO `json:"seo"`
}

// PublicPost is a public post read with resolved SEO.
type PublicPost struct {
	Doc *models.Post        `json:"doc"`
	SEO content.ResolvedSEO `json:"seo"`
}

// CatalogService serves public content reads (cached) and admin catalog
// writes (validated, slug-generated).
type CatalogService struct {
	store         ContentStore
	cache         Cache
	policy        *access.Policy
	publishedOnly bool
	logger        *zap.Logger
}

// NewCatalogService creates a new catalog service. publishedOnly controls
// whether public reads are restricted to published documents.
func NewCatalogService(store ContentStore, cache Cache, policy *access.Policy, publishedOnly bool) *CatalogService {
	return &CatalogService{
		store:         store,
		cache:         cache,
		policy:        policy,
		publishedOnly: publishedOnly,
		logger:        util.GetLogger(),
	}
}

// GetPublicProduct returns a product by slug with resolved SEO, or nil when
// no matching (published, if so configured) product exists.
func (s *CatalogService) GetPublicProduct(ctx context.Context, slug string) (*PublicProduct, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetPublicProduct")
	defer span.End()

	cacheKey := productCachePrefix + slug
	var cached PublicProduct
	if hit := s.cacheGet(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	product, err := s.store.GetProductBySlug(ctx, slug, s.publishedOnly)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}

	seo, err := s.resolveSEO(ctx, product.Title, product.SEO)
	if err != nil {
		return nil, err
	}

	doc := &PublicProduct{Doc: product, SEO: seo}
	s.cacheSet(ctx, cacheKey, doc)
	return doc, nil
}

// ListPublicProducts lists products for the public API.
func (s *CatalogService) ListPublicProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListProducts(ctx, s.publishedOnly, limit)
}

// GetPublicPost returns a post by slug with resolved SEO.
func (s *CatalogService) GetPublicPost(ctx context.Context, slug string) (*PublicPost, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetPublicPost")
	defer span.End()

	cacheKey := postCachePrefix + slug
	var cached PublicPost
	if hit := s.cacheGet(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	post, err := s.store.GetPostBySlug(ctx, slug, s.publishedOnly)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, nil
	}

	seo, err := s.resolveSEO(ctx, post.Title, post.SEO)
	if err != nil {
		return nil, err
	}

	doc := &PublicPost{Doc: post, SEO: seo}
	s.cacheSet(ctx, cacheKey, doc)
	return doc, nil
}

// ListPublicPosts lists posts for the public API.
func (s *CatalogService) ListPublicPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListPosts(ctx, s.publishedOnly, limit)
}

// ProductInput is the admin product create/update payload.
type ProductInput struct {
	Title            string                `json:"title" binding:"required"`
	Slug             string                `json:"slug,omitempty"`
	SKU              string                `json:"sku,omitempty"`
	ShortDescription string                `json:"short_description,omitempty"`
	BasePrice        int64                 `json:"base_price" binding:"min=0"`
	SalePrice        *int64                `json:"sale_price,omitempty"`
	Status           string                `json:"status,omitempty"`
	SEO              models.SEO            `json:"seo,omitempty"`
	Variants         []ProductVariantInput `json:"variants,omitempty"`
}

// ProductVariantInput is one variant in the admin payload.
type ProductVariantInput struct {
	SKU               string `json:"sku"`
	Price             int64  `json:"price" binding:"min=0"`
	Stock             *int   `json:"stock,omitempty"`
	AttributesSummary string `json:"attributes_summary,omitempty"`
}

// CreateProduct validates and persists a product for an admin or editor.
func (s *CatalogService) CreateProduct(ctx context.Context, input *ProductInput, actor *access.Identity) (*models.Product, error) {
	if !s.policy.CanWriteCatalog(actor) {
		return nil, ErrForbidden
	}

	product, err := s.buildProduct(input)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidateProduct(ctx, product.Slug)
	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("slug", product.Slug))
	return product, nil
}

// UpdateProduct validates and persists changes to a product.
func (s *CatalogService) UpdateProduct(ctx context.Context, productID int64, input *ProductInput, actor *access.Identity) (*models.Product, error) {
	if !s.policy.CanWriteCatalog(actor) {
		return nil, ErrForbidden
	}

	existing, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	product, err := s.buildProduct(input)
	if err != nil {
		return nil, err
	}
	product.ID = existing.ID
	if product.Slug == "" {
		product.Slug = existing.Slug
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidateProduct(ctx, existing.Slug, product.Slug)
	return product, nil
}

func (s *CatalogService) buildProduct(input *ProductInput) (*models.Product, error) {
	if input.SalePrice != nil && *input.SalePrice > input.BasePrice {
		return nil, errSalePriceAboveBase()
	}

	status := input.Status
	if status == "" {
		status = models.PublishStatusDraft
	}

	variants := make([]models.ProductVariant, 0, len(input.Variants))
	for _, v := range input.Variants {
		if v.Stock != nil && *v.Stock < 0 {
			return nil, errNegativeStock()
		}
		variants = append(variants, models.ProductVariant{
			SKU:               v.SKU,
			Price:             v.Price,
			Stock:             v.Stock,
			AttributesSummary: v.AttributesSummary,
		})
	}

	return &models.Product{
		Title:            input.Title,
		Slug:             content.EnsureSlug(input.Slug, input.Title),
		SKU:              input.SKU,
		ShortDescription: input.ShortDescription,
		BasePrice:        input.BasePrice,
		SalePrice:        input.SalePrice,
		Status:           status,
		SEO:              input.SEO,
		Variants:         variants,
	}, nil
}

// PostInput is the admin post creation payload.
type PostInput struct {
	Title       string     `json:"title" binding:"required"`
	Slug        string     `json:"slug,omitempty"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Status      string     `json:"status,omitempty"`
	SEO         models.SEO `json:"seo,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// CreatePost validates and persists a post for an admin or editor.
// Publishing without an explicit timestamp stamps it with the current time.
func (s *CatalogService) CreatePost(ctx context.Context, input *PostInput, actor *access.Identity) (*models.Post, error) {
	if !s.policy.CanWriteCatalog(actor) {
		return nil, ErrForbidden
	}

	status := input.Status
	if status == "" {
		status = models.PublishStatusDraft
	}
	publishedAt := input.PublishedAt
	if status == models.PublishStatusPublished && publishedAt == nil {
		now := time.Now().UTC()
		publishedAt = &now
	}

	post := &models.Post{
		Title:       input.Title,
		Slug:        content.EnsureSlug(input.Slug, input.Title),
		Excerpt:     input.Excerpt,
		Status:      status,
		SEO:         input.SEO,
		PublishedAt: publishedAt,
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.invalidatePost(ctx, post.Slug)
	s.logger.Info("Post created",
		zap.Int64("post_id", post.ID),
		zap.String("slug", post.Slug))
	return post, nil
}

func (s *CatalogService) resolveSEO(ctx context.Context, docTitle string, docSEO models.SEO) (content.ResolvedSEO, error) {
	defaults, err := s.store.GetSeoDefaults(ctx)
	if err != nil {
		return content.ResolvedSEO{}, err
	}
	return content.ResolveSEO(docTitle, docSEO, *defaults), nil
}

// InvalidateProductByID drops the cached public read for a product. Used by
// the background worker when stock changes.
func (s *CatalogService) InvalidateProductByID(ctx context.Context, productID int64) error {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return err
	}
	s.invalidateProduct(ctx, product.Slug)
	return nil
}

func (s *CatalogService) invalidateProduct(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, productCachePrefix+slug)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}

func (s *CatalogService) invalidatePost(ctx context.Context, slug string) {
	if slug == "" {
		return
	}
	if err := s.cache.Delete(ctx, postCachePrefix+slug); err != nil {
		s.logger.Warn("Failed to invalidate post cache", zap.Error(err))
	}
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	hit, err := s.cache.GetJSON(ctx, key, dest)
	if err != nil {
		s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if hit {
		util.CacheHitsTotal.Inc()
	} else {
		util.CacheMissesTotal.Inc()
	}
	return hit
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, value interface{}) {
	if err := s.cache.SetJSON(ctx, key, value, cacheTTL); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
