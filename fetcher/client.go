package fetcher

import (
	"fmt"
	"log"
)

// Client is the per-source fetch session. It escalates through the tiers
// in sequence: static retrieval first, then the render-capable browser.
// Callers never learn which tier served the result.
type Client struct {
	static Fetcher
	render *RenderFetcher
}

// NewClient creates a Client with both tiers. The browser tier stays cold
// until static retrieval fails for the first time.
func NewClient() *Client {
	return &Client{
		static: NewStaticFetcher(),
		render: NewRenderFetcher(),
	}
}

// Fetch implements the Fetcher interface.
func (c *Client) Fetch(url string) (string, error) {
	html, staticErr := c.static.Fetch(url)
	if staticErr == nil {
		return html, nil
	}

	log.Printf("Static fetch failed for %s, escalating to browser: %v\n", url, staticErr)

	html, renderErr := c.render.Fetch(url)
	if renderErr != nil {
		return "", fmt.Errorf("all fetch tiers failed: static: %v; render: %w", staticErr, renderErr)
	}
	return html, nil
}

// Close releases the session's browser resource.
func (c *Client) Close() error {
	return c.render.Close()
}
