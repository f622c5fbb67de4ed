// Package competitors reads saved competitor product pages into offers.
package competitors

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/guarzo/autopricing/internal/model"
)

// ErrNoPrice is returned when a page carries no readable price.
var ErrNoPrice = errors.New("no price found")

// ParseOffer reads schema.org product microdata from a saved page. The
// price falls back to Open Graph product tags. Pages without availability
// markup count as out of stock.
func ParseOffer(r io.Reader, shop, url string) (model.Offer, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return model.Offer{}, fmt.Errorf("parsing page: %w", err)
	}

	offer := model.Offer{Shop: shop, URL: url}

	price, ok := findPrice(doc)
	if !ok {
		return offer, fmt.Errorf("%s: %w", url, ErrNoPrice)
	}
	offer.Price = price
	offer.Currency = strings.ToUpper(firstValue(doc,
		"[itemprop='priceCurrency']",
		"meta[property='product:price:currency']",
		"meta[property='og:price:currency']",
	))

	availability := firstValue(doc,
		"[itemprop='availability']",
		"meta[property='product:availability']",
		"meta[property='og:availability']",
	)
	if isInStock(availability) {
		offer.InStock = 1
	}
	return offer, nil
}

func findPrice(doc *goquery.Document) (float64, bool) {
	var price float64
	found := false
	doc.Find("[itemprop='price'], meta[property='product:price:amount'], meta[property='og:price:amount']").
		EachWithBreak(func(i int, s *goquery.Selection) bool {
			if p, ok := parsePrice(value(s)); ok {
				price, found = p, true
				return false
			}
			return true
		})
	return price, found
}

// value prefers the machine-readable attributes over the element text.
func value(s *goquery.Selection) string {
	for _, attr := range []string{"content", "href", "value"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(s.Text())
}

func firstValue(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if v := value(s); v != "" {
				return v
			}
		}
	}
	return ""
}

func isInStock(availability string) bool {
	a := strings.ToLower(availability)
	if i := strings.LastIndex(a, "/"); i >= 0 {
		a = a[i+1:]
	}
	switch strings.ReplaceAll(strings.ReplaceAll(a, " ", ""), "_", "") {
	case "instock", "limitedavailability", "onlineonly", "instoreonly":
		return true
	}
	return false
}

var priceRe = regexp.MustCompile(`\d[\d.,' ]*`)

// parsePrice reads prices like "129.95", "1.299,95 €" or "CHF 1'299.00".
// The last separator followed by one or two digits is the decimal mark.
func parsePrice(text string) (float64, bool) {
	match := strings.TrimSpace(priceRe.FindString(text))
	if match == "" {
		return 0, false
	}
	match = strings.NewReplacer("'", "", " ", "").Replace(match)

	decimalAt := -1
	if i := strings.LastIndexAny(match, ".,"); i >= 0 && len(match)-i-1 <= 2 {
		decimalAt = i
	}

	var b strings.Builder
	for i, r := range match {
		switch {
		case i == decimalAt:
			b.WriteByte('.')
		case r == '.' || r == ',':
		default:
			b.WriteRune(r)
		}
	}

	p, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || p <= 0 {
		return 0, false
	}
	return p, true
}
