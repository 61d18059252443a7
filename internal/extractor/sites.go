package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ytopcu/pricewatch/internal/currency"
)

// SiteOverride is a domain-specific extraction rule. Overrides run after the
// generic strategies and may replace a price those strategies found, because
// a site's own markup is more trustworthy than generic heuristics. Each
// override also supplies a currency default for its locale, used only when
// no more specific signal was seen.
type SiteOverride struct {
	// HostContains matches the URL hostname by substring, e.g. "amazon.".
	HostContains string
	Apply        func(doc *goquery.Document, host string, s *Fields)
}

// applyOverrides runs the first override whose host predicate matches.
func (e *Extractor) applyOverrides(doc *goquery.Document, host string, s *Fields) {
	if host == "" {
		return
	}
	for _, o := range e.overrides {
		if strings.Contains(host, o.HostContains) {
			o.Apply(doc, host, s)
			return
		}
	}
}

func defaultOverrides() []SiteOverride {
	return []SiteOverride{
		{
			// Amazon renders the price split into whole and fractional spans.
			HostContains: "amazon.",
			Apply: func(doc *goquery.Document, host string, s *Fields) {
				whole := strings.TrimSpace(doc.Find("span.a-price-whole").First().Text())
				frac := strings.TrimSpace(doc.Find("span.a-price-fraction").First().Text())
				if whole != "" {
					raw := strings.TrimRight(whole, ".,") + "," + frac
					s.OverridePrice(currency.ParsePrice(raw), raw)
				}
				if strings.HasSuffix(host, "amazon.com.tr") {
					s.SetCurrency("₺")
				}
				s.SetCurrency("$")
			},
		},
		{
			// Trendyol's discounted price node carries the final price.
			HostContains: "trendyol.com",
			Apply: func(doc *goquery.Document, _ string, s *Fields) {
				raw := strings.TrimSpace(doc.Find("span.prc-dsc").First().Text())
				if raw != "" {
					s.OverridePrice(currency.ParsePrice(raw), raw)
					s.SetCurrency(currency.Sniff(raw))
				}
				s.SetCurrency("₺")
			},
		},
		{
			HostContains: "hepsiburada.com",
			Apply: func(doc *goquery.Document, _ string, s *Fields) {
				raw := strings.TrimSpace(doc.Find(`[data-test-id="price-current-price"], span#offering-price`).First().Text())
				if raw != "" {
					s.OverridePrice(currency.ParsePrice(raw), raw)
				}
				s.SetCurrency("₺")
			},
		},
	}
}
