package currency_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ytopcu/pricewatch/internal/currency"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"both separators, comma decimal", "3.871,45", "3871.45"},
		{"comma decimal", "12,99", "12.99"},
		{"plain integer", "1299", "1299"},
		{"period decimal", "12.99", "12.99"},
		{"symbol prefix", "₺1.299,90", "1299.9"},
		{"dollar prefix", "$19.99", "19.99"},
		{"surrounding text", "Fiyat: 249,90 TL", "249.9"},
		{"multiple commas", "1,234,56", "1234.56"},
		{"leading minus", "-5,50", "-5.5"},
		{"embedded dash is not a minus", "19-99", "1999"},
		{"empty", "", "0"},
		{"no digits", "call for price", "0"},
		{"bare separator", ".", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := currency.ParsePrice(tt.in)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSymbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "₺", currency.Symbol("TRY"))
	assert.Equal(t, "$", currency.Symbol("USD"))
	assert.Equal(t, "€", currency.Symbol("EUR"))
	assert.Equal(t, "₺", currency.Symbol("try"))
	assert.Equal(t, "GBP", currency.Symbol("GBP"))
}

// Mapping must be idempotent: feeding a mapped symbol back in changes nothing.
func TestSymbolIdempotent(t *testing.T) {
	t.Parallel()

	once := currency.Symbol("TRY")
	assert.Equal(t, "₺", once)
	assert.Equal(t, once, currency.Symbol(once))
}

func TestSniff(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "₺", currency.Sniff("1.299,90 TL"))
	assert.Equal(t, "₺", currency.Sniff("₺99"))
	assert.Equal(t, "€", currency.Sniff("12,99 €"))
	assert.Equal(t, "$", currency.Sniff("$19.99"))
	assert.Equal(t, "", currency.Sniff("19.99"))
}
