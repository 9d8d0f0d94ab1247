package fetcher

// Fetcher retrieves the HTML of a single page.
type Fetcher interface {
	Fetch(url string) (string, error)
}
