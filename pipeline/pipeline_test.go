package pipeline

import (
	"context"
	"fmt"
	"testing"

	"dropwatch/aggregator"
	"dropwatch/brandfilter"
	"dropwatch/config"
	"dropwatch/fingerprint"
	"dropwatch/models"
)

// stubClient serves canned HTML by URL.
type stubClient struct {
	pages map[string]string
}

func (c *stubClient) Fetch(url string) (string, error) {
	html, ok := c.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return html, nil
}

func (c *stubClient) Close() error { return nil }

// memLedger is an in-memory novelty ledger: first sight inserts unsent,
// only MarkSent flips a record to already-notified.
type memLedger struct {
	sent map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{sent: make(map[string]bool)}
}

func (m *memLedger) Classify(p models.Product) (aggregator.Status, error) {
	fp := fingerprint.Of(p)
	sent, ok := m.sent[fp]
	if !ok {
		m.sent[fp] = false
		return aggregator.StatusNew, nil
	}
	if sent {
		return aggregator.StatusAlreadyNotified, nil
	}
	return aggregator.StatusNew, nil
}

func (m *memLedger) MarkSent(fp string) error {
	m.sent[fp] = true
	return nil
}

const pageA = `
	<div class="catalog">
		<div class="product-card">
			<a href="https://shop.example.com/item/42"><img src="/i/42.jpg" alt="Maison Margiela GAT sneakers"></a>
			<span class="price">210,000원</span>
		</div>
		<div class="product-card">
			<a href="/item/43"><img src="/i/43.jpg" alt="Nike Air Force 1 white"></a>
			<span class="price">80,000원</span>
		</div>
	</div>`

const pageB = `
	<div class="catalog">
		<div class="product-card">
			<a href="https://shop.example.com/item/42"><img src="/i/42.jpg" alt="Margiela german army trainers"></a>
			<span class="price">205,000원</span>
		</div>
		<div class="product-card">
			<a href="/item/9"><img src="/i/9.jpg" alt="Goggle jacket heavy cotton"></a>
			<span class="price">350,000원</span>
		</div>
	</div>`

func testConfig() *config.Config {
	return &config.Config{
		MaxPerCycle:    5,
		PerSourceLimit: 50,
		Brands: []brandfilter.Spec{
			{Name: "maison margiela", Aliases: []string{"margiela"}},
		},
		Sources: []config.Source{
			{
				Name:    "alpha",
				BaseURL: "https://a.example.com/",
				Targets: []config.Target{{URL: "search?q=margiela"}},
			},
			{
				Name:    "beta",
				BaseURL: "https://b.example.com/",
				Targets: []config.Target{{URL: "brand/margiela", BrandPage: true}},
			},
		},
	}
}

func newTestPipeline(t *testing.T, ledger Ledger) *Pipeline {
	t.Helper()
	pipe, err := New(testConfig(), ledger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stub := &stubClient{pages: map[string]string{
		"https://a.example.com/search?q=margiela": pageA,
		"https://b.example.com/brand/margiela":    pageB,
	}}
	pipe.SetClientFactory(func() FetchClient { return stub })
	return pipe
}

func TestRunCycle(t *testing.T) {
	ledger := newMemLedger()
	pipe := newTestPipeline(t, ledger)
	defer pipe.Close()

	batch, err := pipe.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	// Source alpha contributes the Margiela card (the Nike card fails the
	// brand filter); source beta's duplicate of item/42 collapses into
	// alpha's copy, and its brand-scoped jacket passes without a brand
	// mention in the card text.
	if len(batch) != 2 {
		t.Fatalf("RunCycle() returned %d products, want 2", len(batch))
	}
	if batch[0].Link != "https://shop.example.com/item/42" {
		t.Errorf("batch[0].Link = %q, want the shared item from the earlier source", batch[0].Link)
	}
	if batch[0].Source != "alpha" {
		t.Errorf("batch[0].Source = %q, want %q", batch[0].Source, "alpha")
	}
	if batch[1].Link != "https://b.example.com/item/9" {
		t.Errorf("batch[1].Link = %q, want %q", batch[1].Link, "https://b.example.com/item/9")
	}
}

func TestRunCycle_UnsentItemsRepeatUntilConfirmed(t *testing.T) {
	ledger := newMemLedger()
	pipe := newTestPipeline(t, ledger)
	defer pipe.Close()

	first, err := pipe.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("first RunCycle() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first cycle returned %d products, want 2", len(first))
	}

	// No dispatch confirmation happened, so the same items come back.
	second, err := pipe.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second RunCycle() error = %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("second cycle returned %d products, want 2", len(second))
	}

	for _, p := range second {
		if err := pipe.ConfirmSent(Fingerprint(p)); err != nil {
			t.Fatalf("ConfirmSent() error = %v", err)
		}
	}

	third, err := pipe.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("third RunCycle() error = %v", err)
	}
	if len(third) != 0 {
		t.Fatalf("third cycle returned %d products, want 0 after confirmation", len(third))
	}
}

func TestRunCycle_FailedSourceIsSkipped(t *testing.T) {
	ledger := newMemLedger()
	pipe, err := New(testConfig(), ledger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer pipe.Close()

	// Only beta's page resolves; alpha's fetch fails and is skipped.
	stub := &stubClient{pages: map[string]string{
		"https://b.example.com/brand/margiela": pageB,
	}}
	pipe.SetClientFactory(func() FetchClient { return stub })

	batch, err := pipe.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("RunCycle() returned %d products, want 2 from the healthy source", len(batch))
	}
	for _, p := range batch {
		if p.Source != "beta" {
			t.Errorf("got product from source %q, want only %q", p.Source, "beta")
		}
	}
}

func TestRunCycle_CancelledContextAborts(t *testing.T) {
	ledger := newMemLedger()
	pipe := newTestPipeline(t, ledger)
	defer pipe.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := pipe.RunCycle(ctx)
	if err == nil {
		t.Fatal("RunCycle() error = nil, want context error")
	}
	if batch != nil {
		t.Errorf("RunCycle() = %v, want nil batch on abort", batch)
	}
	if len(ledger.sent) != 0 {
		t.Errorf("ledger has %d records after aborted cycle, want 0", len(ledger.sent))
	}
}

func TestRunCycle_PerSourceLimit(t *testing.T) {
	cfg := testConfig()
	cfg.PerSourceLimit = 1

	ledger := newMemLedger()
	pipe, err := New(cfg, ledger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer pipe.Close()

	stub := &stubClient{pages: map[string]string{
		"https://a.example.com/search?q=margiela": pageA,
		"https://b.example.com/brand/margiela":    pageB,
	}}
	pipe.SetClientFactory(func() FetchClient { return stub })

	batch, err := pipe.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	// One record per source, and both sources lead with the same item.
	if len(batch) != 1 {
		t.Fatalf("RunCycle() returned %d products, want 1", len(batch))
	}
}
