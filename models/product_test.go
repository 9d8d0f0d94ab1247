package models

import "testing"

func TestValid(t *testing.T) {
	tests := []struct {
		name     string
		product  Product
		expected bool
	}{
		{"title and link", Product{Title: "Margiela GAT", Link: "https://a.example.com/item/1"}, true},
		{"title only", Product{Title: "Margiela GAT"}, true},
		{"link only", Product{Link: "https://a.example.com/item/1"}, true},
		{"neither", Product{Price: "120,000원"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.product.Valid(); got != tt.expected {
				t.Errorf("Valid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCanonicalID(t *testing.T) {
	withLink := Product{Title: "Margiela GAT", Link: "https://a.example.com/item/1"}
	if got := withLink.CanonicalID(); got != "https://a.example.com/item/1" {
		t.Errorf("CanonicalID() = %q, want link", got)
	}

	linkless := Product{Title: "  Margiela GAT  "}
	if got := linkless.CanonicalID(); got != "margiela gat" {
		t.Errorf("CanonicalID() = %q, want normalized title", got)
	}
}
