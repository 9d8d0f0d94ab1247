package models

import "strings"

// Field length caps, counted in runes, applied by the extractor before a
// product is emitted.
const (
	MaxTitleLen       = 200
	MaxPriceLen       = 50
	MaxDescriptionLen = 300
)

// Product represents one catalog item extracted from a card fragment.
type Product struct {
	Title       string
	Link        string // absolute URL, preferred identity
	Price       string // raw currency text as found on the page
	Image       string // absolute URL
	Description string
	Source      string // which catalog produced it
}

// Valid reports whether the product carries enough identity to be emitted.
// A record with neither title nor link is invalid.
func (p Product) Valid() bool {
	return p.Title != "" || p.Link != ""
}

// CanonicalID returns the identity-bearing value for deduplication and
// fingerprinting: the link when present, else the normalized title.
func (p Product) CanonicalID() string {
	if p.Link != "" {
		return p.Link
	}
	return strings.ToLower(strings.TrimSpace(p.Title))
}
