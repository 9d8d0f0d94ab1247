// Package aggregator merges per-source product lists, removes duplicates
// within and across sources, and reduces the result to the batch of items
// never notified before.
package aggregator

import (
	"fmt"
	"strings"

	"dropwatch/models"
)

// Status is the novelty classification of one product.
type Status int

const (
	// StatusNew marks a product that has never been dispatched.
	StatusNew Status = iota
	// StatusAlreadyNotified marks a product whose fingerprint was already
	// marked sent.
	StatusAlreadyNotified
)

// Ledger answers whether a product is new to notify. Classify persists a
// record for first-time fingerprints as a side effect.
type Ledger interface {
	Classify(p models.Product) (Status, error)
}

// Aggregator deduplicates and novelty-filters extracted products.
type Aggregator struct {
	ledger Ledger
}

// New creates an Aggregator backed by the given ledger.
func New(ledger Ledger) *Aggregator {
	return &Aggregator{ledger: ledger}
}

// Aggregate flattens per-source lists into one deduplicated list. Within a
// source, the first occurrence of a normalized title wins; across sources,
// the first occurrence of a canonical id wins, in list order. The input
// order is preserved so repeated cycles are reproducible.
func (a *Aggregator) Aggregate(perSource [][]models.Product) []models.Product {
	seenIDs := make(map[string]bool)
	var merged []models.Product

	for _, list := range perSource {
		seenTitles := make(map[string]bool)
		for _, p := range list {
			if !p.Valid() {
				continue
			}
			titleKey := strings.ToLower(strings.TrimSpace(p.Title))
			if titleKey != "" {
				if seenTitles[titleKey] {
					continue
				}
				seenTitles[titleKey] = true
			}
			id := p.CanonicalID()
			if seenIDs[id] {
				continue
			}
			seenIDs[id] = true
			merged = append(merged, p)
		}
	}

	return merged
}

// FilterNew reduces a deduplicated list to the products the ledger
// classifies as new. A ledger error aborts the whole pass so no partial
// batch is ever handed to the notifier.
func (a *Aggregator) FilterNew(products []models.Product) ([]models.Product, error) {
	var fresh []models.Product
	for _, p := range products {
		status, err := a.ledger.Classify(p)
		if err != nil {
			return nil, fmt.Errorf("ledger classify failed: %w", err)
		}
		if status == StatusNew {
			fresh = append(fresh, p)
		}
	}
	return fresh, nil
}
