// Package currency turns raw catalog price text into an approximate ruble
// figure for display. Rates come from a public exchange API and fall back
// to fixed values when it is unreachable.
package currency

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const ratesURL = "https://api.exchangerate-api.com/v4/latest/USD"

// fallbackRates are rough RUB-per-unit values used when the API is down.
var fallbackRates = map[string]float64{
	"KRW": 0.075,
	"USD": 80.0,
	"EUR": 98.0,
	"JPY": 0.7,
}

var pricePatterns = []struct {
	re       *regexp.Regexp
	currency string
}{
	{regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:원|KRW|won)`), "KRW"},
	{regexp.MustCompile(`(?i)\$\s*(\d+(?:\.\d+)?)|(?:^|\D)(\d+(?:\.\d+)?)\s*USD`), "USD"},
	{regexp.MustCompile(`(?i)€\s*(\d+(?:\.\d+)?)|(?:^|\D)(\d+(?:\.\d+)?)\s*EUR`), "EUR"},
	{regexp.MustCompile(`(?i)¥\s*(\d+(?:\.\d+)?)|(?:^|\D)(\d+(?:\.\d+)?)\s*JPY`), "JPY"},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)`), ""}, // bare number, caller's default applies
}

type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Converter caches exchange rates for an hour and formats price text with
// an approximate ruble equivalent.
type Converter struct {
	client *resty.Client

	mu         sync.Mutex
	cache      map[string]float64
	lastUpdate time.Time
}

// NewConverter creates a Converter with a bounded-timeout HTTP client.
func NewConverter() *Converter {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(1)
	return &Converter{client: client}
}

// rates returns RUB-per-unit rates, refreshing the cache when it is older
// than an hour. Fallback rates are returned on any API failure.
func (c *Converter) rates() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache != nil && time.Since(c.lastUpdate) < time.Hour {
		return c.cache
	}

	var resp ratesResponse
	res, err := c.client.R().SetResult(&resp).Get(ratesURL)
	if err != nil || !res.IsSuccess() || len(resp.Rates) == 0 {
		return fallbackRates
	}

	usdToRub, ok := resp.Rates["RUB"]
	if !ok || usdToRub <= 0 {
		return fallbackRates
	}

	converted := map[string]float64{"USD": usdToRub}
	for code, usdRate := range resp.Rates {
		if code != "USD" && code != "RUB" && usdRate > 0 {
			converted[code] = usdToRub / usdRate
		}
	}

	c.cache = converted
	c.lastUpdate = time.Now()
	return converted
}

// ExtractPrice parses the amount and currency code from raw price text.
// Bare numbers default to the given currency.
func ExtractPrice(priceText, defaultCurrency string) (float64, string, bool) {
	text := strings.ReplaceAll(strings.ReplaceAll(priceText, ",", ""), " ", "")
	if text == "" {
		return 0, "", false
	}

	for _, p := range pricePatterns {
		matches := p.re.FindStringSubmatch(text)
		if matches == nil {
			continue
		}
		for _, group := range matches[1:] {
			if group == "" {
				continue
			}
			amount, err := strconv.ParseFloat(group, 64)
			if err != nil {
				continue
			}
			currency := p.currency
			if currency == "" {
				if defaultCurrency == "" {
					return 0, "", false
				}
				currency = defaultCurrency
			}
			return amount, currency, true
		}
	}
	return 0, "", false
}

// ToRubles converts raw price text to a formatted ruble string, or ""
// when no amount can be parsed.
func (c *Converter) ToRubles(priceText, defaultCurrency string) string {
	amount, code, ok := ExtractPrice(priceText, defaultCurrency)
	if !ok {
		return ""
	}

	rate, found := c.rates()[code]
	if !found {
		rate, found = fallbackRates[code]
		if !found {
			return ""
		}
	}

	return formatRubles(amount * rate)
}

// FormatWithConversion appends the approximate ruble figure to the raw
// price text when a conversion is possible.
func (c *Converter) FormatWithConversion(priceText, defaultCurrency string) string {
	rubles := c.ToRubles(priceText, defaultCurrency)
	if rubles == "" {
		return priceText
	}
	return fmt.Sprintf("%s (~%s)", priceText, rubles)
}

func formatRubles(rubles float64) string {
	if rubles >= 1000 {
		return fmt.Sprintf("%s RUB", groupThousands(fmt.Sprintf("%.0f", rubles)))
	}
	return fmt.Sprintf("%.2f RUB", rubles)
}

// groupThousands inserts commas into a plain digit string.
func groupThousands(digits string) string {
	var sb strings.Builder
	n := len(digits)
	for i, ch := range digits {
		if i > 0 && (n-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}
