package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBrandScoped(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		expected bool
	}{
		{"explicit flag", Target{URL: "collections/new", BrandPage: true}, true},
		{"brand path", Target{URL: "/brand/Maison%20Margiela"}, true},
		{"sorted search", Target{URL: "/search/margiela?sort=latest"}, true},
		{"plain search", Target{URL: "search?q=margiela"}, false},
		{"category page", Target{URL: "/category/shoes"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.BrandScoped(); got != tt.expected {
				t.Errorf("BrandScoped(%q) = %v, want %v", tt.target.URL, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	content := `
scan_interval_seconds: 120
brands:
  - name: stone island
    aliases: ["스톤아일랜드"]
sources:
  - name: bunjang
    base_url: https://globalbunjang.com/
    targets:
      - url: search?q=stone%20island
      - url: brand/stone-island
        brand_page: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.ScanIntervalSeconds != 120 {
		t.Errorf("ScanIntervalSeconds = %d, want 120", cfg.ScanIntervalSeconds)
	}
	// Unset values fall back to defaults.
	if cfg.MaxPerCycle != 5 {
		t.Errorf("MaxPerCycle = %d, want default 5", cfg.MaxPerCycle)
	}
	if cfg.PerSourceLimit != 50 {
		t.Errorf("PerSourceLimit = %d, want default 50", cfg.PerSourceLimit)
	}
	if cfg.MaxAgeHours != 1 {
		t.Errorf("MaxAgeHours = %d, want default 1", cfg.MaxAgeHours)
	}

	if len(cfg.Brands) != 1 || cfg.Brands[0].Name != "stone island" {
		t.Fatalf("Brands = %+v, want one stone island spec", cfg.Brands)
	}
	if len(cfg.Sources) != 1 {
		t.Fatalf("Sources = %+v, want one source", cfg.Sources)
	}

	src := cfg.Sources[0]
	if len(src.Targets) != 2 {
		t.Fatalf("Targets = %+v, want two targets", src.Targets)
	}
	if src.Targets[0].BrandScoped() {
		t.Error("plain search target reported as brand scoped")
	}
	if !src.Targets[1].BrandScoped() {
		t.Error("brand_page target not reported as brand scoped")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() error = nil for missing file, want error")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if len(cfg.Brands) == 0 {
		t.Error("default config has no brands")
	}
	if len(cfg.Sources) == 0 {
		t.Error("default config has no sources")
	}
	if cfg.ScanInterval().Seconds() != 600 {
		t.Errorf("ScanInterval() = %v, want 600s", cfg.ScanInterval())
	}
	if cfg.MaxAge().Hours() != 1 {
		t.Errorf("MaxAge() = %v, want 1h", cfg.MaxAge())
	}
}
