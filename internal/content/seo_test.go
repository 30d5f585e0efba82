package content

import (
	"testing"

	"commerce-cms/internal/models"

	"github.com/stretchr/testify/assert"
)

func boolPtr(v bool) *bool { return &v }

func siteDefaults() models.SeoDefaults {
	return models.SeoDefaults{
		DefaultTitle:           "Shop",
		TitleTemplate:          "%s | Shop",
		DefaultMetaDescription: "The default description",
		DefaultOGImageURL:      "https://cdn.example.com/default.png",
	}
}

func TestResolveSEODocumentOverridesWin(t *testing.T) {
	doc := models.SEO{
		MetaTitle:       "Custom Title",
		MetaDescription: "Custom description",
		CanonicalURL:    "https://example.com/p/tee",
		OGImageURL:      "https://cdn.example.com/tee.png",
	}

	resolved := ResolveSEO("Basic Tee", doc, siteDefaults())

	assert.Equal(t, "Custom Title | Shop", resolved.Title)
	assert.Equal(t, "Custom description", resolved.Description)
	assert.Equal(t, "https://example.com/p/tee", resolved.CanonicalURL)
	assert.Equal(t, "https://cdn.example.com/tee.png", resolved.OpenGraph.ImageURL)
}

func TestResolveSEOFallsBackToDocTitleThenDefaults(t *testing.T) {
	resolved := ResolveSEO("Basic Tee", models.SEO{}, siteDefaults())
	assert.Equal(t, "Basic Tee | Shop", resolved.Title)
	assert.Equal(t, "The default description", resolved.Description)
	assert.Equal(t, "https://cdn.example.com/default.png", resolved.OpenGraph.ImageURL)

	// No document title either: the site default fills in.
	resolved = ResolveSEO("", models.SEO{}, siteDefaults())
	assert.Equal(t, "Shop | Shop", resolved.Title)
}

func TestResolveSEOTitleTemplate(t *testing.T) {
	defaults := siteDefaults()
	defaults.TitleTemplate = ""
	resolved := ResolveSEO("Basic Tee", models.SEO{}, defaults)
	assert.Equal(t, "Basic Tee", resolved.Title)

	// A template without a placeholder is ignored rather than mangling the
	// title.
	defaults.TitleTemplate = "Shop pages"
	resolved = ResolveSEO("Basic Tee", models.SEO{}, defaults)
	assert.Equal(t, "Basic Tee", resolved.Title)
}

func TestResolveSEORobots(t *testing.T) {
	defaults := siteDefaults()
	resolved := ResolveSEO("Basic Tee", models.SEO{}, defaults)
	assert.True(t, resolved.Robots.Index)
	assert.True(t, resolved.Robots.Follow)

	defaults.RobotsNoIndex = true
	resolved = ResolveSEO("Basic Tee", models.SEO{}, defaults)
	assert.False(t, resolved.Robots.Index)

	// An explicit document value beats the site default in either direction.
	doc := models.SEO{NoIndex: boolPtr(false), NoFollow: boolPtr(true)}
	resolved = ResolveSEO("Basic Tee", doc, defaults)
	assert.True(t, resolved.Robots.Index)
	assert.False(t, resolved.Robots.Follow)
}

func TestResolveSEOSocialCards(t *testing.T) {
	doc := models.SEO{
		OGTitle:       "Share Title",
		OGDescription: "Share description",
		TwitterCard:   "summary",
	}
	resolved := ResolveSEO("Basic Tee", doc, siteDefaults())

	assert.Equal(t, "Share Title", resolved.OpenGraph.Title)
	assert.Equal(t, "Share description", resolved.OpenGraph.Description)
	assert.Equal(t, "Share Title", resolved.Twitter.Title)
	assert.Equal(t, "summary", resolved.Twitter.Card)

	resolved = ResolveSEO("Basic Tee", models.SEO{}, siteDefaults())
	assert.Equal(t, "Basic Tee", resolved.OpenGraph.Title)
	assert.Equal(t, "summary_large_image", resolved.Twitter.Card)
	assert.Equal(t, "https://cdn.example.com/default.png", resolved.Twitter.ImageURL)
}
