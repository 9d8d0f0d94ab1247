package fetcher

import (
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticFetcher is the first fetch tier: plain HTTP retrieval using colly.
type StaticFetcher struct {
	collector *colly.Collector
}

// NewStaticFetcher creates a StaticFetcher with rate limiting and a bounded
// request timeout.
func NewStaticFetcher() *StaticFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(15 * time.Second)

	// Keep a polite gap between requests to the same catalog.
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       2 * time.Second,
	})

	return &StaticFetcher{collector: c}
}

// Fetch implements the Fetcher interface.
func (sf *StaticFetcher) Fetch(url string) (string, error) {
	// Clone per request so response callbacks don't stack across calls.
	c := sf.collector.Clone()

	var html string
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("failed to visit URL: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fmt.Errorf("request failed: %w", fetchErr)
	}
	if len(html) < 100 {
		return "", fmt.Errorf("response too short (%d bytes), page likely requires rendering", len(html))
	}

	return html, nil
}
