// Package brandfilter accepts or rejects extracted products against
// configured brand specs by keyword containment over noisy card text.
package brandfilter

import (
	"strings"

	"dropwatch/models"
)

// Spec describes one brand to watch. Category, when set, restricts matches
// to items that also carry a keyword of that category (e.g. footwear terms).
type Spec struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category,omitempty"`
	Aliases  []string `yaml:"aliases,omitempty"`
}

// categoryKeywords maps a category tag to the terms at least one of which
// must appear for a categorized brand match to count.
var categoryKeywords = map[string][]string{
	"shoes": {
		"shoe", "sneaker", "sneakers", "boot", "boots", "sandal", "slipper",
		"loafer", "oxford", "heel", "footwear",
		"обувь", "кроссовки", "ботинки", "신발", "운동화", "부츠",
	},
}

// variants returns the lowercased haystack needles for a spec: the brand
// name, a collapsed-space form of it, and any configured aliases.
func (s Spec) variants() []string {
	name := strings.ToLower(s.Name)
	out := []string{name}
	if collapsed := strings.ReplaceAll(name, " ", ""); collapsed != name {
		out = append(out, collapsed)
	}
	for _, alias := range s.Aliases {
		out = append(out, strings.ToLower(alias))
	}
	return out
}

// Matches reports whether the product's title+description text matches any
// of the given specs. An empty filter list accepts everything. A brand match
// with the wrong category does not accept, but a later spec still can.
func Matches(p models.Product, specs []Spec) bool {
	if len(specs) == 0 {
		return true
	}

	haystack := strings.ToLower(p.Title + " " + p.Description)

	for _, spec := range specs {
		if !containsAny(haystack, spec.variants()) {
			continue
		}
		if spec.Category == "" {
			return true
		}
		if containsAny(haystack, categoryKeywords[spec.Category]) {
			return true
		}
		// Brand matched but category didn't; try the next spec.
	}

	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
