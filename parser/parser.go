package parser

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"dropwatch/models"
)

// Parser extracts product records from catalog page HTML.
type Parser struct {
	base   *url.URL
	source string
}

// NewParser creates a Parser for one catalog source. baseURL is used to
// resolve relative links and image paths.
func NewParser(source, baseURL string) (*Parser, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	return &Parser{base: base, source: source}, nil
}

// ParseHTML discovers card fragments in the page and extracts a product
// from each. A card that yields no usable record is skipped; it never
// aborts processing of sibling cards.
func (p *Parser) ParseHTML(htmlContent string) ([]models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	cards := p.findCards(doc)

	var products []models.Product
	for _, card := range cards {
		product := p.ExtractCard(card)
		if product != nil {
			products = append(products, *product)
		}
	}

	return products, nil
}

// cardSelectors are tried in order; the first selector that yields any
// fragments wins. Markup varies per source, so each is a guess about how
// the catalog lays out its grid.
var cardSelectors = []string{
	"div[class*='product'], div[class*='item'], div[class*='card']",
	"article[class*='product'], article[class*='item']",
	"a[class*='product'], a[class*='item']",
	"div[data-product-id], article[data-product-id], div[data-item-id], article[data-item-id]",
}

// findCards locates candidate card fragments using ordered selector
// strategies, then falls back to anchors-with-images inside grid containers.
func (p *Parser) findCards(doc *goquery.Document) []*goquery.Selection {
	var cards []*goquery.Selection

	for _, selector := range cardSelectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			cards = append(cards, s)
		})
		if len(cards) > 0 {
			return cards
		}
	}

	// Structural fallback: product-looking anchors with an image and
	// meaningful text, skipping category and search navigation.
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if strings.Contains(href, "/category/") || strings.Contains(href, "/search") {
			return
		}
		if s.Find("img").Length() == 0 {
			return
		}
		if len(cardText(s)) > 10 {
			cards = append(cards, s)
		}
	})
	if len(cards) > 0 {
		return cards
	}

	// Last resort: look inside list/grid containers for product links.
	doc.Find("div[class*='list'], div[class*='grid'], div[class*='container'], section[class*='products'], ul[class*='items'], li[class*='card']").Each(func(i int, container *goquery.Selection) {
		container.Find("a[href]").Each(func(j int, link *goquery.Selection) {
			href := link.AttrOr("href", "")
			if !strings.Contains(href, "/product/") && !strings.Contains(href, "/item/") &&
				!strings.Contains(href, "/goods/") && !strings.Contains(href, "/brand/") {
				return
			}
			if link.Find("img").Length() == 0 || len(cardText(link)) <= 10 {
				return
			}
			parent := link.Parent()
			if parent.Length() > 0 && parent.Is("div, article, li") {
				cards = append(cards, parent)
			} else {
				cards = append(cards, link)
			}
		})
	})

	return cards
}

// resolve makes href absolute against the source base URL.
func (p *Parser) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return p.base.ResolveReference(ref).String()
}

// cardText returns the fragment's full text with whitespace collapsed to
// single spaces.
func cardText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// truncate caps s at max runes. Cutting on bytes would split multibyte
// Korean text mid-rune.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
