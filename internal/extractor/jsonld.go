package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/ytopcu/pricewatch/internal/currency"
)

// fromJSONLD walks every embedded JSON-LD block looking for Product entries.
// Malformed JSON in a block skips that block only. The first block yielding a
// positive offer price wins and the remaining blocks are not consulted.
func fromJSONLD(doc *goquery.Document, s *Fields) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err != nil {
			return true
		}
		for _, node := range flattenNodes(payload) {
			if !isProductNode(node) {
				continue
			}
			if name, ok := node["name"].(string); ok {
				s.SetTitle(name)
			}
			offer := firstOffer(node["offers"])
			if offer == nil {
				continue
			}
			price := jsonNumber(offer["price"])
			if code, ok := offer["priceCurrency"].(string); ok {
				s.SetCurrency(currency.Symbol(code))
			}
			if price.IsPositive() {
				s.SetPrice(price, fmt.Sprint(offer["price"]))
				return false
			}
		}
		return true
	})
}

// flattenNodes normalises a decoded JSON-LD payload into a flat list of
// objects, unwrapping top-level arrays and @graph containers.
func flattenNodes(payload any) []map[string]any {
	var nodes []map[string]any
	switch v := payload.(type) {
	case []any:
		for _, item := range v {
			nodes = append(nodes, flattenNodes(item)...)
		}
	case map[string]any:
		nodes = append(nodes, v)
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				nodes = append(nodes, flattenNodes(item)...)
			}
		}
	}
	return nodes
}

// isProductNode reports whether @type is "Product", either directly or as a
// member of a type array.
func isProductNode(node map[string]any) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

// firstOffer returns the offer object, taking the first element when offers
// is an array.
func firstOffer(offers any) map[string]any {
	switch v := offers.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

// jsonNumber parses a JSON-LD price that may be a string or a number.
func jsonNumber(v any) decimal.Decimal {
	switch n := v.(type) {
	case string:
		return currency.ParsePrice(n)
	case float64:
		return decimal.NewFromFloat(n)
	}
	return decimal.Zero
}
