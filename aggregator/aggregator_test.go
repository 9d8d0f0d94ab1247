package aggregator

import (
	"errors"
	"testing"

	"dropwatch/models"
)

// fakeLedger classifies by fingerprint memory: first sight is new, a
// confirmed fingerprint is already notified.
type fakeLedger struct {
	sent map[string]bool
	err  error
}

func (f *fakeLedger) Classify(p models.Product) (Status, error) {
	if f.err != nil {
		return StatusNew, f.err
	}
	if f.sent[p.CanonicalID()] {
		return StatusAlreadyNotified, nil
	}
	return StatusNew, nil
}

func TestAggregate_IntraSourceTitleDedup(t *testing.T) {
	a := New(&fakeLedger{})
	perSource := [][]models.Product{
		{
			{Title: "Margiela GAT", Link: "https://a.example.com/item/1"},
			{Title: "  margiela gat ", Link: "https://a.example.com/item/2"},
			{Title: "Stone Island coat", Link: "https://a.example.com/item/3"},
		},
	}

	merged := a.Aggregate(perSource)
	if len(merged) != 2 {
		t.Fatalf("Aggregate() returned %d products, want 2", len(merged))
	}
	// First occurrence wins.
	if merged[0].Link != "https://a.example.com/item/1" {
		t.Errorf("merged[0].Link = %q, want first occurrence kept", merged[0].Link)
	}
	if merged[1].Title != "Stone Island coat" {
		t.Errorf("merged[1].Title = %q, want %q", merged[1].Title, "Stone Island coat")
	}
}

func TestAggregate_CrossSourceCanonicalDedup(t *testing.T) {
	a := New(&fakeLedger{})
	shared := "https://shop.example.com/item/42"
	perSource := [][]models.Product{
		{{Title: "Margiela GAT", Link: shared, Source: "bunjang"}},
		{{Title: "Maison Margiela german army trainer", Link: shared, Source: "fruitsfamily"}},
	}

	merged := a.Aggregate(perSource)
	if len(merged) != 1 {
		t.Fatalf("Aggregate() returned %d products, want 1", len(merged))
	}
	if merged[0].Source != "bunjang" {
		t.Errorf("merged[0].Source = %q, want earlier source to win", merged[0].Source)
	}
}

func TestAggregate_SkipsInvalid(t *testing.T) {
	a := New(&fakeLedger{})
	perSource := [][]models.Product{
		{
			{Title: "", Link: ""},
			{Title: "Stone Island cargo pants", Link: "https://a.example.com/item/9"},
		},
	}

	merged := a.Aggregate(perSource)
	if len(merged) != 1 {
		t.Fatalf("Aggregate() returned %d products, want 1", len(merged))
	}
}

func TestFilterNew(t *testing.T) {
	oldLink := "https://a.example.com/item/1"
	ledger := &fakeLedger{sent: map[string]bool{oldLink: true}}
	a := New(ledger)

	products := []models.Product{
		{Title: "already notified", Link: oldLink},
		{Title: "brand new", Link: "https://a.example.com/item/2"},
	}

	fresh, err := a.FilterNew(products)
	if err != nil {
		t.Fatalf("FilterNew() error = %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("FilterNew() returned %d products, want 1", len(fresh))
	}
	if fresh[0].Title != "brand new" {
		t.Errorf("fresh[0].Title = %q, want %q", fresh[0].Title, "brand new")
	}
}

func TestFilterNew_LedgerErrorAborts(t *testing.T) {
	wantErr := errors.New("connection lost")
	a := New(&fakeLedger{err: wantErr})

	fresh, err := a.FilterNew([]models.Product{{Title: "anything", Link: "https://a.example.com/item/1"}})
	if err == nil {
		t.Fatal("FilterNew() error = nil, want error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("FilterNew() error = %v, want wrapped %v", err, wantErr)
	}
	if fresh != nil {
		t.Errorf("FilterNew() = %v, want nil batch on error", fresh)
	}
}
