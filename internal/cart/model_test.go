package cart_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/cart"
)

func TestLinesCarriesPricingInputs(t *testing.T) {
	productID := uuid.New()
	items := []cart.Item{
		{
			ID:            uuid.New(),
			ProductID:     productID,
			Name:          "Chanderi Saree",
			Size:          "Free",
			Qty:           2,
			UnitPrice:     129900,
			OriginalPrice: 149900,
			DiscountPct:   13.3,
		},
		{
			ID:        uuid.New(),
			ProductID: uuid.New(),
			Name:      "Cotton Dupatta",
			Qty:       1,
			UnitPrice: 39900,
		},
	}

	lines := cart.Lines(items)
	require.Len(t, lines, 2)

	require.Equal(t, productID, lines[0].ProductID)
	require.Equal(t, "Chanderi Saree", lines[0].Name)
	require.Equal(t, "Free", lines[0].Size)
	require.Equal(t, 2, lines[0].Qty)
	require.EqualValues(t, 129900, lines[0].UnitPrice)
	require.EqualValues(t, 149900, lines[0].OriginalPrice)
	require.InDelta(t, 13.3, lines[0].DiscountPct, 0.001)

	// A line without catalog discount data falls back to zero values; the
	// pricing engine then treats the unit price as the original price.
	require.EqualValues(t, 0, lines[1].OriginalPrice)
	require.Zero(t, lines[1].DiscountPct)
}

func TestLinesEmptyCart(t *testing.T) {
	require.Empty(t, cart.Lines(nil))
	require.NotNil(t, cart.Lines(nil))
}
