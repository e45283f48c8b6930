package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDocObjectCategoryAndImageObjects(t *testing.T) {
	t.Parallel()

	doc := []byte(`{
		"name": "Linen Kurta",
		"category": {"name": "Kurtas"},
		"price": 1499.00,
		"images": [{"url": "https://cdn.example/kurta-1.jpg"}, {"url": "https://cdn.example/kurta-2.jpg"}],
		"variants": [{"sku": "KUR-BLU", "sizes": [{"label": "M", "qty": 5}, {"label": "L", "qty": 2}]}]
	}`)
	p, err := NormalizeDoc(doc)
	require.NoError(t, err)
	require.Equal(t, "Kurtas", p.Category)
	require.Equal(t, "linen-kurta", p.Slug)
	require.EqualValues(t, 149_900, p.BasePrice)
	require.Len(t, p.Images, 2)
	require.Len(t, p.Variants, 1)
	require.Equal(t, "M", p.Variants[0].Sizes[0].Label)
}

func TestNormalizeDocStringCategorySingleImageLegacySizes(t *testing.T) {
	t.Parallel()

	doc := []byte(`{
		"name": "Cotton Saree",
		"category": "Sarees",
		"price": 2999.50,
		"image": "https://cdn.example/saree.jpg",
		"sizes": [{"size": "Free", "stock": 8}]
	}`)
	p, err := NormalizeDoc(doc)
	require.NoError(t, err)
	require.Equal(t, "Sarees", p.Category)
	require.Equal(t, []string{"https://cdn.example/saree.jpg"}, p.Images)
	require.EqualValues(t, 299_950, p.BasePrice)
	require.Len(t, p.Variants, 1)
	require.Equal(t, "Free", p.Variants[0].Sizes[0].Label)
	require.Equal(t, 8, p.Variants[0].Sizes[0].Qty)
}

func TestNormalizeDocRejectsMissingName(t *testing.T) {
	t.Parallel()

	_, err := NormalizeDoc([]byte(`{"price": 100}`))
	require.Error(t, err)
}

func TestStockSnapshotHelpers(t *testing.T) {
	t.Parallel()

	snap := StockSnapshot{
		Variants: []Variant{
			{SKU: "A", Sizes: []SizeStock{{Label: "S", Qty: 0}, {Label: "M", Qty: 3}}},
			{SKU: "B", Sizes: []SizeStock{{Label: "M", Qty: 2}}},
		},
	}
	size, ok := snap.FirstAvailableSize()
	require.True(t, ok)
	require.Equal(t, "M", size)

	// size M is split 3+2 across variants; one line can reserve at most 3
	// because the stock decrement takes from a single variant row
	qty, ok := snap.AvailableQty("M")
	require.True(t, ok)
	require.Equal(t, 3, qty)

	_, ok = snap.AvailableQty("XL")
	require.False(t, ok)

	qty, ok = snap.AvailableQty("S")
	require.True(t, ok)
	require.Zero(t, qty)
}
