package report

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BaseCurrency is the currency every engine price is expressed in.
const BaseCurrency = "EUR"

// countryCurrency maps shop countries to their local currency.
var countryCurrency = map[string]string{
	"CZ": "CZK", "SK": "EUR", "DE": "EUR", "ES": "EUR", "FR": "EUR",
	"RO": "RON", "HU": "HUF", "IT": "EUR", "AT": "EUR", "HR": "EUR",
	"NL": "EUR", "BE": "EUR", "DK": "DKK", "SE": "SEK", "IE": "EUR",
	"PL": "PLN", "PT": "EUR", "FI": "EUR", "SI": "EUR", "BG": "BGN",
	"GR": "EUR", "EU": "EUR", "NO": "NOK", "CH": "CHF", "GB": "GBP",
}

// CurrencyFor returns the local currency of a country, EUR when unknown.
func CurrencyFor(country string) string {
	if c, ok := countryCurrency[strings.ToUpper(country)]; ok {
		return c
	}
	return BaseCurrency
}

// Rates holds units of each currency per one EUR.
type Rates map[string]float64

type ratesFile struct {
	Rates map[string]float64 `yaml:"rates"`
}

// LoadRates reads a YAML file of the form `rates: {CHF: 0.95, GBP: 0.85}`.
// EUR is always 1.
func LoadRates(path string) (Rates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates: %w", err)
	}

	var f ratesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rates: %w", err)
	}

	rates := Rates{BaseCurrency: 1}
	for currency, rate := range f.Rates {
		if rate <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive, got %v", currency, rate)
		}
		rates[strings.ToUpper(currency)] = rate
	}
	return rates, nil
}

// Rate returns the rate for currency.
func (r Rates) Rate(currency string) (float64, bool) {
	if currency == BaseCurrency {
		return 1, true
	}
	rate, ok := r[currency]
	return rate, ok
}
