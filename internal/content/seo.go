package content

import (
	"strings"

	"commerce-cms/internal/models"
)

// ResolvedSEO is the effective SEO payload for a public document: document
// overrides cascaded onto the site defaults.
type ResolvedSEO struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	CanonicalURL string            `json:"canonical_url,omitempty"`
	Robots       ResolvedRobots    `json:"robots"`
	OpenGraph    ResolvedOpenGraph `json:"open_graph"`
	Twitter      ResolvedTwitter   `json:"twitter"`
}

type ResolvedRobots struct {
	Index  bool `json:"index"`
	Follow bool `json:"follow"`
}

type ResolvedOpenGraph struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ResolvedTwitter struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Card        string `json:"card"`
	ImageURL    string `json:"image_url,omitempty"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func applyTitleTemplate(title, template string) string {
	if template == "" {
		return title
	}
	if strings.Contains(template, "%s") {
		return strings.Replace(template, "%s", title, 1)
	}
	return title
}

// ResolveSEO computes effective SEO fields: document SEO wins, then the
// document title, then site defaults.
func ResolveSEO(docTitle string, docSEO models.SEO, defaults models.SeoDefaults) ResolvedSEO {
	baseTitle := firstNonEmpty(docSEO.MetaTitle, docTitle, defaults.DefaultTitle)
	title := applyTitleTemplate(baseTitle, defaults.TitleTemplate)

	description := firstNonEmpty(docSEO.MetaDescription, defaults.DefaultMetaDescription)

	noIndex := defaults.RobotsNoIndex
	if docSEO.NoIndex != nil {
		noIndex = *docSEO.NoIndex
	}
	noFollow := defaults.RobotsNoFollow
	if docSEO.NoFollow != nil {
		noFollow = *docSEO.NoFollow
	}

	ogTitle := firstNonEmpty(docSEO.OGTitle, baseTitle, defaults.DefaultTitle)
	ogDescription := firstNonEmpty(docSEO.OGDescription, description)
	ogImage := firstNonEmpty(docSEO.OGImageURL, defaults.DefaultOGImageURL)

	return ResolvedSEO{
		Title:        title,
		Description:  description,
		CanonicalURL: docSEO.CanonicalURL,
		Robots: ResolvedRobots{
			Index:  !noIndex,
			Follow: !noFollow,
		},
		OpenGraph: ResolvedOpenGraph{
			Title:       ogTitle,
			Description: ogDescription,
			ImageURL:    ogImage,
		},
		Twitter: ResolvedTwitter{
			Title:       firstNonEmpty(docSEO.TwitterTitle, ogTitle),
			Description: ogDescription,
			Card:        firstNonEmpty(docSEO.TwitterCard, "summary_large_image"),
			ImageURL:    firstNonEmpty(docSEO.TwitterImageURL, ogImage),
		},
	}
}
