package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dropwatch/brandfilter"
)

// Target is one page to scan within a source. BrandPage marks targets
// already scoped to a single brand, which bypass the classifier.
type Target struct {
	URL       string `yaml:"url"`
	BrandPage bool   `yaml:"brand_page,omitempty"`
}

// BrandScoped reports whether the target is pre-filtered to one brand,
// either by configuration or by URL shape (brand landing pages and sorted
// brand searches).
func (t Target) BrandScoped() bool {
	if t.BrandPage {
		return true
	}
	return strings.Contains(t.URL, "/brand/") ||
		(strings.Contains(t.URL, "/search/") && strings.Contains(t.URL, "?sort="))
}

// Source is one catalog site to monitor.
type Source struct {
	Name    string   `yaml:"name"`
	BaseURL string   `yaml:"base_url"`
	Targets []Target `yaml:"targets"`
}

// Config holds the monitor's settings.
type Config struct {
	ScanIntervalSeconds int                `yaml:"scan_interval_seconds"`
	MaxPerCycle         int                `yaml:"max_per_cycle"`
	PerSourceLimit      int                `yaml:"per_source_limit"`
	MaxAgeHours         int                `yaml:"max_age_hours"`
	Brands              []brandfilter.Spec `yaml:"brands"`
	Sources             []Source           `yaml:"sources"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	cfg := &Config{
		Brands: []brandfilter.Spec{
			{Name: "maison margiela", Aliases: []string{"margiela", "메종 마르지엘라", "마르지엘라", "메종마르지엘라"}},
			{Name: "grailz", Aliases: []string{"그레일즈"}},
			{Name: "project gr", Aliases: []string{"프로젝트 gr", "프로젝트gr"}},
			{Name: "stone island", Aliases: []string{"스톤아일랜드"}},
			{Name: "cp company", Aliases: []string{"c.p. company", "c p company", "c.p.company", "cp컴퍼니"}},
		},
		Sources: []Source{
			{
				Name:    "bunjang",
				BaseURL: "https://globalbunjang.com/",
				Targets: []Target{
					{URL: "search?categoryId=405&q=maison%20margiela&soldout=exclude"},
				},
			},
			{
				Name:    "fruitsfamily",
				BaseURL: "https://fruitsfamily.com/",
				Targets: []Target{
					{URL: "brand/Maison%20Margiela", BrandPage: true},
				},
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ScanIntervalSeconds <= 0 {
		c.ScanIntervalSeconds = 600
	}
	if c.MaxPerCycle <= 0 {
		c.MaxPerCycle = 5
	}
	if c.PerSourceLimit <= 0 {
		c.PerSourceLimit = 50
	}
	if c.MaxAgeHours <= 0 {
		c.MaxAgeHours = 1
	}
}

// ScanInterval is the pause between scrape cycles.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// MaxAge is the staleness window for the ledger's first_seen_at refresh.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}
