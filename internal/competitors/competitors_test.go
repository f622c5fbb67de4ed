package competitors

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const microdataPage = `<html><body>
<div itemscope itemtype="https://schema.org/Product">
  <h1 itemprop="name">Air Max 90</h1>
  <div itemprop="offers" itemscope itemtype="https://schema.org/Offer">
    <span itemprop="price" content="119.95">119,95 €</span>
    <meta itemprop="priceCurrency" content="eur">
    <link itemprop="availability" href="https://schema.org/InStock">
  </div>
</div>
</body></html>`

const openGraphPage = `<html><head>
<meta property="product:price:amount" content="1'299.00">
<meta property="product:price:currency" content="CHF">
<meta property="product:availability" content="out of stock">
</head><body></body></html>`

func TestParseOffer_Microdata(t *testing.T) {
	offer, err := ParseOffer(strings.NewReader(microdataPage), "shopA", "https://a.example/p/1")
	require.NoError(t, err)

	assert.Equal(t, 119.95, offer.Price)
	assert.Equal(t, "EUR", offer.Currency)
	assert.Equal(t, 1, offer.InStock)
	assert.Equal(t, "shopA", offer.Shop)
	assert.Equal(t, "https://a.example/p/1", offer.URL)
}

func TestParseOffer_OpenGraph(t *testing.T) {
	offer, err := ParseOffer(strings.NewReader(openGraphPage), "shopB", "u")
	require.NoError(t, err)

	assert.Equal(t, 1299.0, offer.Price)
	assert.Equal(t, "CHF", offer.Currency)
	assert.Equal(t, 0, offer.InStock)
}

func TestParseOffer_NoPrice(t *testing.T) {
	_, err := ParseOffer(strings.NewReader(`<html><body><p>sold out</p></body></html>`), "s", "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPrice))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"129.95", 129.95, true},
		{"1.299,95 €", 1299.95, true},
		{"CHF 1'299.00", 1299, true},
		{"€ 89,9", 89.9, true},
		{"1,299", 1299, true},
		{"99", 99, true},
		{"free", 0, false},
		{"0.00", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestIsInStock(t *testing.T) {
	assert.True(t, isInStock("https://schema.org/InStock"))
	assert.True(t, isInStock("http://schema.org/LimitedAvailability"))
	assert.True(t, isInStock("in stock"))
	assert.True(t, isInStock("in_stock"))
	assert.False(t, isInStock("https://schema.org/OutOfStock"))
	assert.False(t, isInStock(""))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	write("a.html", microdataPage)
	write("b.html", openGraphPage)
	write("broken.html", `<html></html>`)
	write(ManifestFile, `
- {file: a.html, key: A-1, country_code: DE, shop: shopA, url: "https://a.example/p/1", change_day: 2, important: true}
- {file: b.html, key: Air Max, country_code: CH, shop: shopB, url: "https://b.example/p/9"}
- {file: broken.html, key: A-1, country_code: DE, shop: shopC}
- {file: missing.html, key: A-1, country_code: DE, shop: shopD}
`)

	var logs bytes.Buffer
	l := &Loader{Rates: map[string]float64{"CHF": 0.95}, Logger: zerolog.New(&logs)}
	offers, err := l.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, offers, 2)

	a := offers[0]
	assert.Equal(t, "A-1", a.Key)
	assert.Equal(t, "DE", a.Country)
	assert.Equal(t, 2.0, a.ChangeDay)
	assert.True(t, a.Important)
	assert.Equal(t, 119.95, a.Price)

	b := offers[1]
	assert.Equal(t, "Air Max", b.Key)
	assert.Equal(t, "EUR", b.Currency)
	assert.InDelta(t, 1299/0.95, b.Price, 1e-9)
	assert.False(t, b.Important)

	assert.Equal(t, 2, strings.Count(logs.String(), "skipping competitor page"))
}

func TestLoadDir_UnknownCurrencySkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.html"), []byte(openGraphPage), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("- {file: b.html, key: K, country_code: CH}\n"), 0o600))

	offers, err := (&Loader{Logger: zerolog.Nop()}).LoadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestLoadDir_MissingManifest(t *testing.T) {
	_, err := (&Loader{Logger: zerolog.Nop()}).LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}
