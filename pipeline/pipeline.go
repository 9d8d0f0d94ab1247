// Package pipeline runs one scrape cycle end to end: fetch each source's
// targets, extract and classify products, deduplicate, and reduce to the
// batch of items never notified before.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"dropwatch/aggregator"
	"dropwatch/brandfilter"
	"dropwatch/config"
	"dropwatch/fetcher"
	"dropwatch/fingerprint"
	"dropwatch/models"
	"dropwatch/parser"
)

// Ledger is the persistence the pipeline needs: novelty classification plus
// post-dispatch confirmation.
type Ledger interface {
	aggregator.Ledger
	MarkSent(fp string) error
}

// FetchClient is a per-source fetch session with an owned resource to
// release on shutdown.
type FetchClient interface {
	fetcher.Fetcher
	Close() error
}

// Pipeline drives the extraction-and-novelty flow for all configured
// sources. Sources are processed sequentially in config order so dedup and
// novelty decisions are reproducible.
type Pipeline struct {
	cfg     *config.Config
	ledger  Ledger
	agg     *aggregator.Aggregator
	parsers map[string]*parser.Parser

	// clients holds one lazily-created fetch session per source, reused
	// across targets and cycles.
	clients   map[string]FetchClient
	newClient func() FetchClient
}

// New creates a Pipeline. Fetch sessions are created lazily, one per source.
func New(cfg *config.Config, ledger Ledger) (*Pipeline, error) {
	parsers := make(map[string]*parser.Parser, len(cfg.Sources))
	for _, src := range cfg.Sources {
		p, err := parser.NewParser(src.Name, src.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		parsers[src.Name] = p
	}

	return &Pipeline{
		cfg:       cfg,
		ledger:    ledger,
		agg:       aggregator.New(ledger),
		parsers:   parsers,
		clients:   make(map[string]FetchClient),
		newClient: func() FetchClient { return fetcher.NewClient() },
	}, nil
}

// SetClientFactory overrides how per-source fetch sessions are built.
func (p *Pipeline) SetClientFactory(factory func() FetchClient) {
	p.newClient = factory
}

// RunCycle processes every source and returns the batch of new items for
// the dispatcher. Cancellation is honored between source boundaries only;
// an aborted cycle returns the context error and hands out no batch. A
// ledger failure likewise aborts the cycle so no partial batch escapes.
func (p *Pipeline) RunCycle(ctx context.Context) ([]models.Product, error) {
	perSource := make([][]models.Product, 0, len(p.cfg.Sources))

	for _, src := range p.cfg.Sources {
		if err := ctx.Err(); err != nil {
			log.Printf("Cycle aborted before source %s: %v\n", src.Name, err)
			return nil, err
		}
		perSource = append(perSource, p.collectSource(src))
	}

	merged := p.agg.Aggregate(perSource)

	fresh, err := p.agg.FilterNew(merged)
	if err != nil {
		return nil, fmt.Errorf("cycle aborted: %w", err)
	}

	if len(fresh) > p.cfg.MaxPerCycle {
		fresh = fresh[:p.cfg.MaxPerCycle]
	}
	return fresh, nil
}

// collectSource fetches and extracts one source's targets. Failures skip
// the target and never abort the cycle.
func (p *Pipeline) collectSource(src config.Source) []models.Product {
	client := p.clientFor(src.Name)
	pars := p.parsers[src.Name]

	var records []models.Product
	for _, target := range src.Targets {
		if len(records) >= p.cfg.PerSourceLimit {
			break
		}

		pageURL := joinURL(src.BaseURL, target.URL)
		html, err := client.Fetch(pageURL)
		if err != nil {
			log.Printf("Skipping target %s: %v\n", pageURL, err)
			continue
		}

		products, err := pars.ParseHTML(html)
		if err != nil {
			log.Printf("Skipping target %s: parse failed: %v\n", pageURL, err)
			continue
		}

		// Brand-scoped pages are already filtered server-side; running the
		// classifier there would reject items whose card text omits the
		// brand name.
		scoped := target.BrandScoped()

		for _, product := range products {
			if !scoped && !brandfilter.Matches(product, p.cfg.Brands) {
				continue
			}
			records = append(records, product)
			if len(records) >= p.cfg.PerSourceLimit {
				break
			}
		}
	}

	log.Printf("Source %s: collected %d records\n", src.Name, len(records))
	return records
}

// ConfirmSent marks a delivered record's fingerprint as sent. Called by the
// dispatcher once per delivered record; idempotent.
func (p *Pipeline) ConfirmSent(fp string) error {
	return p.ledger.MarkSent(fp)
}

// Fingerprint returns the ledger key for a product.
func Fingerprint(product models.Product) string {
	return fingerprint.Of(product)
}

// clientFor returns the source's fetch session, creating it on first use.
func (p *Pipeline) clientFor(source string) FetchClient {
	if client, ok := p.clients[source]; ok {
		return client
	}
	client := p.newClient()
	p.clients[source] = client
	return client
}

// Close releases every fetch session.
func (p *Pipeline) Close() {
	for source, client := range p.clients {
		if err := client.Close(); err != nil {
			log.Printf("Warning: Failed to close fetch session for %s: %v\n", source, err)
		}
	}
	p.clients = make(map[string]FetchClient)
}

func joinURL(base, target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/")
}
