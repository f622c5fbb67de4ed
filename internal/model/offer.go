package model

// Offer is one competitor listing observed for a style or a product name in
// a country. Key holds the style code or the product name.
type Offer struct {
	Key       string  `json:"key" yaml:"key"`
	Country   string  `json:"country_code" yaml:"country_code"`
	Shop      string  `json:"shop" yaml:"shop"`
	URL       string  `json:"url" yaml:"url"`
	Price     float64 `json:"price" yaml:"price"`
	Currency  string  `json:"currency,omitempty" yaml:"currency,omitempty"`
	InStock   int     `json:"in_stock" yaml:"in_stock"`
	ChangeDay float64 `json:"change_day" yaml:"change_day"`
	Important bool    `json:"important" yaml:"important"`
	OwnShop   bool    `json:"own_shop" yaml:"own_shop"`
}

// OfferKey returns the (key, country) pair the offer is grouped under.
func (o Offer) OfferKey() Key {
	return Key{Style: o.Key, CountryCode: o.Country}
}
