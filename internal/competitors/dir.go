package competitors

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/guarzo/autopricing/internal/model"
)

// ManifestFile is the name of the page index inside a pages directory.
const ManifestFile = "manifest.yaml"

// Page describes one saved competitor page.
type Page struct {
	File      string  `yaml:"file"`
	Key       string  `yaml:"key"`
	Country   string  `yaml:"country_code"`
	Shop      string  `yaml:"shop"`
	URL       string  `yaml:"url"`
	ChangeDay float64 `yaml:"change_day"`
	Important bool    `yaml:"important"`
	OwnShop   bool    `yaml:"own_shop"`
}

// Loader turns a directory of saved pages into offers priced in EUR.
type Loader struct {
	// Rates are units of currency per EUR. EUR and pages without a
	// currency need no entry.
	Rates  map[string]float64
	Logger zerolog.Logger
}

// LoadDir parses every page listed in dir's manifest. Pages that cannot be
// read, parsed or converted are skipped with a warning; only a missing or
// malformed manifest is an error.
func (l *Loader) LoadDir(dir string) ([]model.Offer, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var pages []Page
	if err := yaml.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	offers := make([]model.Offer, 0, len(pages))
	skipped := 0
	for _, p := range pages {
		offer, err := l.loadPage(dir, p)
		if err != nil {
			skipped++
			l.Logger.Warn().Err(err).Str("file", p.File).Str("shop", p.Shop).Msg("skipping competitor page")
			continue
		}
		offers = append(offers, offer)
	}

	l.Logger.Info().Int("pages", len(pages)).Int("offers", len(offers)).Int("skipped", skipped).Msg("loaded competitor pages")
	return offers, nil
}

func (l *Loader) loadPage(dir string, p Page) (model.Offer, error) {
	if p.Key == "" || p.Country == "" {
		return model.Offer{}, errors.New("manifest entry needs key and country_code")
	}

	f, err := os.Open(filepath.Join(dir, p.File))
	if err != nil {
		return model.Offer{}, err
	}
	defer f.Close()

	offer, err := ParseOffer(f, p.Shop, p.URL)
	if err != nil {
		return model.Offer{}, err
	}

	price, err := l.toEUR(offer.Price, offer.Currency)
	if err != nil {
		return model.Offer{}, err
	}

	offer.Price = price
	offer.Currency = "EUR"
	offer.Key = p.Key
	offer.Country = p.Country
	offer.ChangeDay = p.ChangeDay
	offer.Important = p.Important
	offer.OwnShop = p.OwnShop
	return offer, nil
}

func (l *Loader) toEUR(price float64, currency string) (float64, error) {
	if currency == "" || currency == "EUR" {
		return price, nil
	}
	rate, ok := l.Rates[currency]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no conversion rate for %s", currency)
	}
	return price / rate, nil
}
