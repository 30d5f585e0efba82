package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"commerce-cms/internal/access"
	"commerce-cms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeContent is an in-memory ContentStore.
type fakeContent struct {
	products map[int64]*models.Product
	posts    map[string]*models.Post
	defaults models.SeoDefaults

	slugReads int
	created   []*models.Product
	updated   []*models.Product
	nextID    int64
}

func newFakeContent(products ...*models.Product) *fakeContent {
	f := &fakeContent{
		products: make(map[int64]*models.Product),
		posts:    make(map[string]*models.Post),
		defaults: models.SeoDefaults{
			DefaultTitle:  "Shop",
			TitleTemplate: "%s | Shop",
		},
		nextID: 100,
	}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeContent) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	return p, nil
}

func (f *fakeContent) GetProductBySlug(_ context.Context, slug string, publishedOnly bool) (*models.Product, error) {
	f.slugReads++
	for _, p := range f.products {
		if p.Slug != slug {
			continue
		}
		if publishedOnly && p.Status != models.PublishStatusPublished {
			return nil, nil
		}
		return p, nil
	}
	return nil, nil
}

func (f *fakeContent) ListProducts(_ context.Context, publishedOnly bool, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if publishedOnly && p.Status != models.PublishStatusPublished {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeContent) CreateProduct(_ context.Context, product *models.Product) error {
	f.nextID++
	product.ID = f.nextID
	f.products[product.ID] = product
	f.created = append(f.created, product)
	return nil
}

func (f *fakeContent) UpdateProduct(_ context.Context, product *models.Product) error {
	f.products[product.ID] = product
	f.updated = append(f.updated, product)
	return nil
}

func (f *fakeContent) GetPostBySlug(_ context.Context, slug string, publishedOnly bool) (*models.Post, error) {
	p, ok := f.posts[slug]
	if !ok {
		return nil, nil
	}
	if publishedOnly && p.Status != models.PublishStatusPublished {
		return nil, nil
	}
	return p, nil
}

func (f *fakeContent) ListPosts(_ context.Context, _ bool, limit int) ([]models.Post, error) {
	var out []models.Post
	for _, p := range f.posts {
		if len(out) == limit {
			break
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeContent) CreatePost(_ context.Context, post *models.Post) error {
	f.nextID++
	post.ID = f.nextID
	f.posts[post.Slug] = post
	return nil
}

func (f *fakeContent) GetSeoDefaults(_ context.Context) (*models.SeoDefaults, error) {
	defaults := f.defaults
	return &defaults, nil
}

// fakeCache is an in-memory JSON cache.
type fakeCache struct {
	entries map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.entries, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func newTestCatalogService(store *fakeContent, cache *fakeCache, publishedOnly bool) *CatalogService {
	policy := access.NewPolicy(access.Config{Env: "test"})
	return NewCatalogService(store, cache, policy, publishedOnly)
}

func publishedTee() *models.Product {
	p := teeShirtProduct()
	p.Slug = "basic-tee"
	p.Status = models.PublishStatusPublished
	return p
}

func TestGetPublicProductResolvesSEOAndCaches(t *testing.T) {
	store := newFakeContent(publishedTee())
	cache := newFakeCache()
	svc := newTestCatalogService(store, cache, true)

	doc, err := svc.GetPublicProduct(context.Background(), "basic-tee")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Basic Tee | Shop", doc.SEO.Title)
	assert.Equal(t, 1, store.slugReads)

	// Second read is served from the cache.
	again, err := svc.GetPublicProduct(context.Background(), "basic-tee")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, doc.SEO.Title, again.SEO.Title)
	assert.Equal(t, 1, store.slugReads)
}

func TestGetPublicProductNotFound(t *testing.T) {
	svc := newTestCatalogService(newFakeContent(), newFakeCache(), true)

	doc, err := svc.GetPublicProduct(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestGetPublicProductHidesDrafts(t *testing.T) {
	draft := publishedTee()
	draft.Status = models.PublishStatusDraft
	store := newFakeContent(draft)

	restricted := newTestCatalogService(store, newFakeCache(), true)
	doc, err := restricted.GetPublicProduct(context.Background(), "basic-tee")
	require.NoError(t, err)
	assert.Nil(t, doc)

	// Draft reads are allowed when not restricted to published documents.
	open := newTestCatalogService(store, newFakeCache(), false)
	doc, err = open.GetPublicProduct(context.Background(), "basic-tee")
	require.NoError(t, err)
	assert.NotNil(t, doc)
}

func TestCreateProductGeneratesSlugAndDefaults(t *testing.T) {
	store := newFakeContent()
	svc := newTestCatalogService(store, newFakeCache(), true)

	product, err := svc.CreateProduct(context.Background(), &ProductInput{
		Title:     "Green Tea",
		BasePrice: 120,
	}, adminIdentity())

	require.NoError(t, err)
	assert.Equal(t, "green-tea", product.Slug)
	assert.Equal(t, models.PublishStatusDraft, product.Status)
	assert.NotZero(t, product.ID)
	require.Len(t, store.created, 1)
}

func TestCreateProductRejectsSalePriceAboveBase(t *testing.T) {
	svc := newTestCatalogService(newFakeContent(), newFakeCache(), true)

	_, err := svc.CreateProduct(context.Background(), &ProductInput{
		Title:     "Green Tea",
		BasePrice: 100,
		SalePrice: int64Ptr(150),
	}, adminIdentity())

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, CodeSalePriceTooHigh, valErr.Code)
}

func TestCreateProductRejectsNegativeStock(t *testing.T) {
	svc := newTestCatalogService(newFakeContent(), newFakeCache(), true)

	_, err := svc.CreateProduct(context.Background(), &ProductInput{
		Title:     "Green Tea",
		BasePrice: 100,
		Variants: []ProductVariantInput{
			{SKU: "TEA-1", Price: 100, Stock: intPtr(-1)},
		},
	}, adminIdentity())

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, CodeNegativeStock, valErr.Code)
}

func TestCreateProductForbiddenForUserRole(t *testing.T) {
	svc := newTestCatalogService(newFakeContent(), newFakeCache(), true)

	_, err := svc.CreateProduct(context.Background(), &ProductInput{
		Title:     "Green Tea",
		BasePrice: 100,
	}, &access.Identity{UserID: 9, Role: access.RoleUser})

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateProductKeepsSlugAndInvalidatesCache(t *testing.T) {
	existing := publishedTee()
	store := newFakeContent(existing)
	cache := newFakeCache()
	svc := newTestCatalogService(store, cache, true)

	// Warm the cache, then update.
	_, err := svc.GetPublicProduct(context.Background(), "basic-tee")
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(context.Background(), existing.ID, &ProductInput{
		Title:     "Basic Tee",
		BasePrice: 110,
	}, adminIdentity())

	require.NoError(t, err)
	assert.Equal(t, existing.ID, updated.ID)
	assert.Equal(t, int64(110), updated.BasePrice)
	assert.Contains(t, cache.deleted, "public:product:basic-tee")
	assert.Empty(t, cache.entries)
}

func TestCreatePost(t *testing.T) {
	store := newFakeContent()
	svc := newTestCatalogService(store, newFakeCache(), true)

	post, err := svc.CreatePost(context.Background(), &PostInput{
		Title: "Brewing Guide",
	}, adminIdentity())

	require.NoError(t, err)
	assert.Equal(t, "brewing-guide", post.Slug)
	assert.Equal(t, models.PublishStatusDraft, post.Status)
	assert.Nil(t, post.PublishedAt)

	// Publishing without an explicit timestamp stamps one.
	published, err := svc.CreatePost(context.Background(), &PostInput{
		Title:  "Launch Notes",
		Status: models.PublishStatusPublished,
	}, adminIdentity())
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)

	_, err = svc.CreatePost(context.Background(), &PostInput{Title: "Nope"},
		&access.Identity{UserID: 9, Role: access.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestInvalidateProductByID(t *testing.T) {
	existing := publishedTee()
	store := newFakeContent(existing)
	cache := newFakeCache()
	svc := newTestCatalogService(store, cache, true)

	_, err := svc.GetPublicProduct(context.Background(), "basic-tee")
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	require.NoError(t, svc.InvalidateProductByID(context.Background(), existing.ID))
	assert.Empty(t, cache.entries)
}
