// Package extractor turns arbitrary product page markup into a best-effort
// (title, price, currency) tuple.
//
// Extraction runs an ordered strategy chain. Title, price and currency are
// resolved independently: the first strategy to fill a field wins that field,
// later strategies only fill what is still empty. The one exception is the
// site override registry, whose domain-specific selectors are trusted over
// anything the generic heuristics found.
package extractor

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/ytopcu/pricewatch/internal/currency"
)

const (
	unknownProductTitle = "Unknown Product"
	maxTitleLen         = 100
	truncatedTitleLen   = 97
)

// Result is one extraction attempt. Success is false only when the markup
// itself could not be parsed; a Success result may still carry a zero price,
// which callers must treat as "nothing found".
type Result struct {
	Success      bool
	Title        string
	Price        decimal.Decimal
	Currency     string
	RawPriceText string
	Error        string
}

// Fields holds the per-field first-writer-wins state threaded through the
// strategy chain. Site overrides receive it to fill or override values.
type Fields struct {
	title    string
	price    decimal.Decimal
	currency string
	rawPrice string
}

func (s *Fields) SetTitle(t string) {
	if s.title == "" {
		s.title = strings.TrimSpace(t)
	}
}

func (s *Fields) SetPrice(p decimal.Decimal, raw string) {
	if s.price.IsPositive() || !p.IsPositive() {
		return
	}
	s.price = p
	s.rawPrice = strings.TrimSpace(raw)
}

// OverridePrice replaces any previously found price. Only the site override
// strategy uses it.
func (s *Fields) OverridePrice(p decimal.Decimal, raw string) {
	if !p.IsPositive() {
		return
	}
	s.price = p
	s.rawPrice = strings.TrimSpace(raw)
}

func (s *Fields) SetCurrency(c string) {
	if s.currency == "" && c != "" {
		s.currency = c
	}
}

// Extractor runs the strategy chain. The zero value is not usable; New
// installs the default site override registry.
type Extractor struct {
	overrides []SiteOverride
}

func New() *Extractor {
	return &Extractor{overrides: defaultOverrides()}
}

// Register adds a site override consulted for URLs whose hostname contains
// the given substring.
func (e *Extractor) Register(o SiteOverride) {
	e.overrides = append(e.overrides, o)
}

// Extract resolves title, price and currency from the given markup.
func (e *Extractor) Extract(html, pageURL string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{
			Success: false,
			Title:   unknownProductTitle,
			Error:   err.Error(),
		}
	}

	s := &Fields{}
	fromJSONLD(doc, s)
	fromMetaTags(doc, s)
	fromGenericSelectors(doc, s)
	e.applyOverrides(doc, hostname(pageURL), s)
	finishFallbacks(doc, s)

	return Result{
		Success:      true,
		Title:        truncateTitle(s.title),
		Price:        s.price,
		Currency:     s.currency,
		RawPriceText: s.rawPrice,
	}
}

// fromMetaTags fills fields from Open Graph, Twitter and product meta tags.
func fromMetaTags(doc *goquery.Document, s *Fields) {
	for _, key := range []string{"og:title", "twitter:title"} {
		if s.title != "" {
			break
		}
		s.SetTitle(metaContent(doc, key))
	}
	for _, key := range []string{"product:price:amount", "og:price:amount", "twitter:data1"} {
		if s.price.IsPositive() {
			break
		}
		if raw := metaContent(doc, key); raw != "" {
			s.SetPrice(currency.ParsePrice(raw), raw)
		}
	}
	for _, key := range []string{"product:price:currency", "og:price:currency"} {
		if s.currency != "" {
			break
		}
		if code := metaContent(doc, key); code != "" {
			s.SetCurrency(currency.Symbol(code))
		}
	}
}

// fromGenericSelectors tries conventional product-name and price markup.
func fromGenericSelectors(doc *goquery.Document, s *Fields) {
	if s.title == "" {
		sel := doc.Find(`h1.product-title, h1.product-name, h1[itemprop="name"]`).First()
		s.SetTitle(sel.Text())
	}
	if !s.price.IsPositive() {
		raw := strings.TrimSpace(doc.Find(`[itemprop="price"], .product-price, .price`).First().Text())
		if raw != "" {
			s.SetPrice(currency.ParsePrice(raw), raw)
			s.SetCurrency(currency.Sniff(raw))
		}
	}
}

// finishFallbacks fills whatever is still missing after every strategy ran.
func finishFallbacks(doc *goquery.Document, s *Fields) {
	if s.title == "" {
		s.SetTitle(doc.Find("h1").First().Text())
	}
	if s.title == "" {
		s.SetTitle(doc.Find("title").First().Text())
	}
	if s.title == "" {
		s.title = unknownProductTitle
	}

	if s.price.IsPositive() {
		return
	}
	doc.Find(`[class*="price"], [id*="price"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if strings.Contains(text, "%") {
			return true // discount badge, not a price
		}
		if n := utf8.RuneCountInString(text); n < 2 || n > 20 {
			return true
		}
		p := currency.ParsePrice(text)
		if !p.IsPositive() {
			return true
		}
		s.SetPrice(p, text)
		s.SetCurrency(currency.Sniff(text))
		return false
	})
}

func metaContent(doc *goquery.Document, key string) string {
	if v, ok := doc.Find(`meta[property="` + key + `"]`).First().Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[name="` + key + `"]`).First().Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func truncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= maxTitleLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:truncatedTitleLen]) + "..."
}

func hostname(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
