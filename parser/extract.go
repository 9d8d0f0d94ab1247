package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dropwatch/models"
)

// excludeWords marks navigation, category and marketing noise that is never
// a product title. A card whose title hits this vocabulary is dropped whole,
// unless it also carries a price (a real item can mention these words).
var excludeWords = []string{
	"arrow", "more", "category", "search", "home", "menu", "cart",
	"boy group", "girl group", "men's style", "women's", "pokémon",
	"rare figures", "authentic", "certified", "luxury", "icon_exit",
	"korean site", "let's talk", "trending", "popular", "top",
	"인기", "브랜드", "랭킹", "상품", "검색", "홈", "마켓", "판매",
}

// Amounts must start and end on a digit so surrounding punctuation is
// never swallowed into the price text.
var (
	symbolPriceRe   = regexp.MustCompile(`[₩$€£¥]\s*\d(?:[\d,.]*\d)?`)
	trailingPriceRe = regexp.MustCompile(`\d(?:[\d,.]*\d)?\s*[₩$€£¥원]`)
	namedPriceRe    = regexp.MustCompile(`(?i)\d(?:[\d,.]*\d)?\s*(?:won|원|KRW|USD|EUR|JPY)`)
)

// ExtractCard pulls a product record out of one card fragment. It returns
// nil when the fragment yields nothing usable; failures here never affect
// sibling cards.
func (p *Parser) ExtractCard(s *goquery.Selection) *models.Product {
	fullText := cardText(s)

	title := p.extractTitle(s, fullText)
	link := p.extractLink(s)
	price := p.extractPrice(s, fullText)

	// Exclusion vocabulary check. Price acts as a safety net for bona fide
	// items that happen to mention a noise word.
	if title != "" && containsExcluded(title) && price == "" {
		return nil
	}

	// Category and brand landing pages look like cards but aren't items.
	if link != "" && price == "" &&
		(strings.Contains(link, "/category/") || strings.Contains(link, "/brand/")) {
		return nil
	}

	product := &models.Product{
		Source: p.source,
		Link:   link,
		Price:  truncate(price, models.MaxPriceLen),
	}

	if len(title) > 3 {
		product.Title = truncate(title, models.MaxTitleLen)
	} else if link != "" {
		// Synthesize a title from the link's last path segment.
		segment := lastPathSegment(link)
		if segment == "" {
			return nil
		}
		product.Title = truncate(segment, models.MaxTitleLen)
	} else {
		return nil
	}

	product.Image = p.extractImage(s)
	product.Description = p.extractDescription(s, fullText, product.Title)

	return product
}

// extractTitle runs the ordered title-location strategies and returns the
// first candidate longer than 3 bytes.
func (p *Parser) extractTitle(s *goquery.Selection, fullText string) string {
	strategies := []func(*goquery.Selection) string{
		func(s *goquery.Selection) string {
			return textOfFirstWithClass(s, "h1, h2, h3, h4, h5", "title", "name")
		},
		func(s *goquery.Selection) string {
			return textOfFirstWithClass(s, "div, span, p", "title", "name")
		},
		func(s *goquery.Selection) string {
			return strings.TrimSpace(s.Find("[data-title]").First().AttrOr("data-title", ""))
		},
		func(s *goquery.Selection) string {
			return strings.TrimSpace(s.Find("h1, h2, h3, h4, h5").First().Text())
		},
		func(s *goquery.Selection) string {
			return strings.TrimSpace(s.Find("a[href]").First().Text())
		},
		func(s *goquery.Selection) string {
			return strings.TrimSpace(s.Find("img[alt]").First().AttrOr("alt", ""))
		},
	}

	for _, strategy := range strategies {
		if title := strategy(s); len(title) > 3 {
			return title
		}
	}

	// The anchor's parent often holds the text when the anchor itself is
	// just an image wrapper.
	if link := s.Find("a[href]").First(); link.Length() > 0 {
		if title := strings.TrimSpace(link.Parent().Text()); len(title) > 3 {
			return strings.Join(strings.Fields(title), " ")
		}
	}

	// Last resort: the first ~10 words of the fragment's full text.
	words := strings.Fields(fullText)
	if len(words) > 2 {
		if len(words) > 10 {
			words = words[:10]
		}
		return strings.Join(words, " ")
	}

	return ""
}

func (p *Parser) extractLink(s *goquery.Selection) string {
	if href := s.Find("a[href]").First().AttrOr("href", ""); href != "" {
		return p.resolve(href)
	}
	// The fragment itself may be the anchor.
	if s.Is("a") {
		if href := s.AttrOr("href", ""); href != "" {
			return p.resolve(href)
		}
	}
	return ""
}

// extractPrice applies ordered pattern strategies: price-class elements
// first, then currency-symbol and named-currency regexes over the full text.
func (p *Parser) extractPrice(s *goquery.Selection, fullText string) string {
	if text := textOfFirstWithClass(s, "span, div, p, strong, b", "price"); text != "" {
		return text
	}
	for _, re := range []*regexp.Regexp{symbolPriceRe, trailingPriceRe, namedPriceRe} {
		if match := re.FindString(fullText); match != "" {
			return strings.TrimSpace(match)
		}
	}
	return ""
}

// extractImage takes the first image element's source, trying the common
// lazy-loading attributes in order, and resolves it to an absolute URL.
func (p *Parser) extractImage(s *goquery.Selection) string {
	img := s.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
		if src := img.AttrOr(attr, ""); src != "" {
			return p.resolve(src)
		}
	}
	if srcset := img.AttrOr("data-srcset", img.AttrOr("srcset", "")); srcset != "" {
		// First entry of the set, URL part only.
		first := strings.Fields(strings.Split(srcset, ",")[0])
		if len(first) > 0 {
			return p.resolve(first[0])
		}
	}
	return ""
}

func (p *Parser) extractDescription(s *goquery.Selection, fullText, title string) string {
	if text := textOfFirstWithClass(s, "p, div, span", "desc", "info"); text != "" {
		return truncate(text, models.MaxDescriptionLen)
	}
	if len(fullText) > len(title) {
		desc := strings.TrimSpace(strings.Replace(fullText, title, "", 1))
		if len(desc) > 10 {
			return truncate(desc, models.MaxDescriptionLen)
		}
	}
	return ""
}

// textOfFirstWithClass returns the trimmed text of the first element among
// tags whose class attribute contains any of the given substrings.
func textOfFirstWithClass(s *goquery.Selection, tags string, substrs ...string) string {
	var result string
	s.Find(tags).EachWithBreak(func(i int, elem *goquery.Selection) bool {
		class := strings.ToLower(elem.AttrOr("class", ""))
		if class == "" {
			return true
		}
		for _, substr := range substrs {
			if strings.Contains(class, substr) {
				result = strings.TrimSpace(elem.Text())
				return result == ""
			}
		}
		return true
	})
	return result
}

func containsExcluded(title string) bool {
	lower := strings.ToLower(title)
	for _, word := range excludeWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func lastPathSegment(link string) string {
	trimmed := strings.TrimRight(link, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}
