package extractor_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytopcu/pricewatch/internal/extractor"
)

const testURL = "https://shop.example.com/p/123"

// jsonLDHTML describes the product in a single JSON-LD block.
const jsonLDHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Shop page</title>
  <script type="application/ld+json">
  {"@type": "Product", "name": "USB-C Cable 2m", "offers": {"price": "12.99", "priceCurrency": "USD"}}
  </script>
</head>
<body><h1>ignored heading</h1></body>
</html>`

// brokenThenGoodJSONLD has a malformed block before a valid one; the bad
// block must be skipped, not fatal.
const brokenThenGoodJSONLD = `<html><head>
  <script type="application/ld+json">{not json at all</script>
  <script type="application/ld+json">
  [{"@type": ["Thing", "Product"], "name": "Mechanical Keyboard",
    "offers": [{"price": 749.5, "priceCurrency": "TRY"}]}]
  </script>
</head><body></body></html>`

// metaTagsHTML carries everything in Open Graph / product meta tags.
const metaTagsHTML = `<html><head>
  <meta property="og:title" content="Wireless Mouse">
  <meta property="product:price:amount" content="349,90">
  <meta property="product:price:currency" content="TRY">
</head><body></body></html>`

// genericHTML relies on conventional selectors with an inline symbol.
const genericHTML = `<html><head><title>Some Shop</title></head><body>
  <h1 class="product-name">Desk Lamp</h1>
  <div class="product-price">€ 24,95</div>
</body></html>`

// discountBadgeHTML has a percent badge before the real price; the fallback
// scanner must skip the badge and accept the sibling.
const discountBadgeHTML = `<html><head><title>Deals</title></head><body>
  <span class="price-badge">25% off</span>
  <span class="price-now">$19.99</span>
</body></html>`

// hugePriceBlockHTML has a price-classed container whose text is far too
// long to be a price.
const hugePriceBlockHTML = `<html><body>
  <div class="price-info">This block talks about our pricing policy at great length and contains no single figure usable as a price.</div>
  <div id="price">89,90 TL</div>
</body></html>`

const noPriceHTML = `<html><head><title>About Us</title></head><body><p>No products here.</p></body></html>`

const amazonHTML = `<html><head><title>Amazon page</title></head><body>
  <span class="price">1.111,11</span>
  <span class="a-price-whole">3.871,</span><span class="a-price-fraction">45</span>
</body></html>`

const trendyolHTML = `<html><body>
  <h1 class="product-name">Sneaker</h1>
  <span class="prc-dsc">1.299,90 TL</span>
</body></html>`

func extract(t *testing.T, html, url string) extractor.Result {
	t.Helper()
	res := extractor.New().Extract(html, url)
	require.True(t, res.Success)
	return res
}

func TestExtract_JSONLD(t *testing.T) {
	t.Parallel()

	res := extract(t, jsonLDHTML, testURL)
	assert.Equal(t, "USB-C Cable 2m", res.Title)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("12.99")))
	assert.Equal(t, "$", res.Currency)
}

func TestExtract_JSONLDMalformedBlockSkipped(t *testing.T) {
	t.Parallel()

	res := extract(t, brokenThenGoodJSONLD, testURL)
	assert.Equal(t, "Mechanical Keyboard", res.Title)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("749.5")))
	assert.Equal(t, "₺", res.Currency)
}

func TestExtract_MetaTags(t *testing.T) {
	t.Parallel()

	res := extract(t, metaTagsHTML, testURL)
	assert.Equal(t, "Wireless Mouse", res.Title)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("349.90")))
	assert.Equal(t, "₺", res.Currency)
}

func TestExtract_GenericSelectors(t *testing.T) {
	t.Parallel()

	res := extract(t, genericHTML, testURL)
	assert.Equal(t, "Desk Lamp", res.Title)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("24.95")))
	assert.Equal(t, "€", res.Currency)
}

func TestExtract_FallbackSkipsDiscountBadge(t *testing.T) {
	t.Parallel()

	res := extract(t, discountBadgeHTML, testURL)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("19.99")), "got %s", res.Price)
	assert.Equal(t, "$", res.Currency)
	assert.Equal(t, "$19.99", res.RawPriceText)
}

func TestExtract_FallbackSkipsOversizedText(t *testing.T) {
	t.Parallel()

	res := extract(t, hugePriceBlockHTML, testURL)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("89.90")))
	assert.Equal(t, "₺", res.Currency)
}

func TestExtract_NothingFound(t *testing.T) {
	t.Parallel()

	res := extract(t, noPriceHTML, testURL)
	assert.Equal(t, "About Us", res.Title)
	assert.True(t, res.Price.IsZero())
	assert.Empty(t, res.Currency)
}

func TestExtract_TitleFallbackChain(t *testing.T) {
	t.Parallel()

	res := extract(t, `<html><body><p>bare page</p></body></html>`, testURL)
	assert.Equal(t, "Unknown Product", res.Title)

	res = extract(t, `<html><body><h1>Heading Title</h1></body></html>`, testURL)
	assert.Equal(t, "Heading Title", res.Title)
}

func TestExtract_LongTitleTruncated(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 120)
	res := extract(t, "<html><head><title>"+long+"</title></head><body></body></html>", testURL)
	assert.Len(t, res.Title, 100)
	assert.Equal(t, strings.Repeat("a", 97)+"...", res.Title)
}

// The amazon override must beat the generic ".price" hit because the split
// whole/fraction widget is the site's own markup.
func TestExtract_AmazonOverrideWinsOverGeneric(t *testing.T) {
	t.Parallel()

	res := extract(t, amazonHTML, "https://www.amazon.com.tr/dp/B0TEST")
	assert.True(t, res.Price.Equal(decimal.RequireFromString("3871.45")), "got %s", res.Price)
	assert.Equal(t, "₺", res.Currency)

	res = extract(t, amazonHTML, "https://www.amazon.com/dp/B0TEST")
	assert.True(t, res.Price.Equal(decimal.RequireFromString("3871.45")))
	assert.Equal(t, "$", res.Currency)
}

func TestExtract_TrendyolOverride(t *testing.T) {
	t.Parallel()

	res := extract(t, trendyolHTML, "https://www.trendyol.com/x/sneaker-p-1")
	assert.Equal(t, "Sneaker", res.Title)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("1299.90")))
	assert.Equal(t, "₺", res.Currency)
}

// Overrides only apply to their own domain; a generic shop with amazon-like
// spans keeps the generic result.
func TestExtract_OverrideScopedToHost(t *testing.T) {
	t.Parallel()

	res := extract(t, amazonHTML, testURL)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("1111.11")), "got %s", res.Price)
}

func TestExtract_CustomOverrideRegistration(t *testing.T) {
	t.Parallel()

	e := extractor.New()
	e.Register(extractor.SiteOverride{
		HostContains: "shop.example.com",
		Apply: func(_ *goquery.Document, _ string, f *extractor.Fields) {
			f.OverridePrice(decimal.RequireFromString("5"), "5")
		},
	})

	res := e.Extract(genericHTML, testURL)
	require.True(t, res.Success)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("5")))
}
