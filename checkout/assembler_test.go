package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembler_RunningTotalIsSumOfExtendedPrices(t *testing.T) {
	a := NewCartAssembler()
	require.NoError(t, a.AddMatch(Match{
		CartItem:   item("1", "2 lbs chicken breast", 2),
		Product:    product("A", 8.00, 0.95),
		Provenance: ProvenanceAuto,
	}))
	assert.Equal(t, 16.00, a.RunningTotal())

	require.NoError(t, a.AddMatch(Match{
		CartItem:   item("2", "milk", 1),
		Product:    product("B", 3.50, 0.9),
		Provenance: ProvenanceUserConfirmed,
	}))
	assert.Equal(t, 19.50, a.RunningTotal())
	assert.Equal(t, 2, a.Len())
}

func TestAssembler_RejectsDuplicateCartItem(t *testing.T) {
	a := NewCartAssembler()
	m := Match{CartItem: item("1", "milk", 1), Product: product("A", 3.50, 0.9), Provenance: ProvenanceAuto}

	require.NoError(t, a.AddMatch(m))
	assert.ErrorIs(t, a.AddMatch(m), ErrDuplicateMatch)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 3.50, a.RunningTotal())
}

func TestAssembler_PayloadShape(t *testing.T) {
	a := NewCartAssembler()
	require.NoError(t, a.AddMatch(Match{
		CartItem:   item("1", "2 lbs chicken breast", 2),
		Product:    product("SKU-1", 8.00, 0.95),
		Provenance: ProvenanceAuto,
	}))

	payload := a.Payload()
	require.Len(t, payload, 1)
	assert.Equal(t, "SKU-1", payload[0].RetailerSKU)
	assert.Equal(t, 2.0, payload[0].Quantity)
	assert.Equal(t, 8.00, payload[0].Price)
	assert.Equal(t, "Product SKU-1", payload[0].ProductName)
	assert.Equal(t, "2 lbs chicken breast", payload[0].OriginalItem)
}

func TestAssembler_PayloadIdempotent(t *testing.T) {
	a := NewCartAssembler()
	require.NoError(t, a.AddMatch(Match{
		CartItem:   item("1", "milk", 1),
		Product:    product("A", 3.50, 0.9),
		Provenance: ProvenanceAuto,
	}))
	require.NoError(t, a.AddMatch(Match{
		CartItem:   item("2", "eggs", 2),
		Product:    product("B", 4.25, 0.8),
		Provenance: ProvenanceUserConfirmed,
	}))

	first := a.Payload()
	second := a.Payload()
	assert.Equal(t, first, second)

	// Mutating a returned payload must not affect the assembler
	first[0].Price = 999
	assert.Equal(t, second, a.Payload())
}

func TestAssembler_MatchesReturnsCopy(t *testing.T) {
	a := NewCartAssembler()
	require.NoError(t, a.AddMatch(Match{
		CartItem:   item("1", "milk", 1),
		Product:    product("A", 3.50, 0.9),
		Provenance: ProvenanceAuto,
	}))

	matches := a.Matches()
	matches[0].Product.Price = 999
	assert.Equal(t, 3.50, a.Matches()[0].Product.Price)
}

func TestAssembler_EmptyPayload(t *testing.T) {
	a := NewCartAssembler()
	assert.Empty(t, a.Payload())
	assert.Zero(t, a.RunningTotal())
}
