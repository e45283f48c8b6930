package order_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/order"
	"github.com/aranya-labs/backend-vastra/internal/tax"
)

func sampleOrder() order.Order {
	productID := uuid.New()
	return order.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Status:        order.StatusProcessing,
		PaymentMethod: order.PaymentPrepaid,
		Lines: []order.Line{
			{ProductID: productID, Name: "Handloom Kurta", Size: "M", Qty: 2, UnitPrice: 79900, OriginalPrice: 99900, Subtotal: 159800},
			{ProductID: uuid.New(), Name: "Cotton Saree", Qty: 1, UnitPrice: 129900, OriginalPrice: 129900, Subtotal: 129900},
		},
		Pricing: order.Pricing{
			ItemsPrice:         289700,
			OriginalItemsPrice: 329700,
			CatalogDiscount:    40000,
			CouponDiscount:     28970,
			Tax:                tax.Breakdown{CGST: 23465, SGST: 23465, Total: 46930},
			ShippingPrice:      9900,
			TotalPrice:         317560,
		},
		CreatedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestToLegacyParallelArraysMatch(t *testing.T) {
	view := order.ToLegacy(sampleOrder())

	require.Len(t, view.Products, 2)
	require.Equal(t, view.Products, view.OrderItems)
}

func TestToLegacyLineStatusFollowsOrder(t *testing.T) {
	o := sampleOrder()
	o.Status = order.StatusDispatched
	view := order.ToLegacy(o)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	var decoded struct {
		Products   []struct{ Status string }
		OrderItems []struct{ Status string }
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for i := range decoded.Products {
		require.Equal(t, string(order.StatusDispatched), decoded.Products[i].Status)
		require.Equal(t, decoded.Products[i].Status, decoded.OrderItems[i].Status)
	}
}

func TestToLegacyKeepsDivergedLineStatus(t *testing.T) {
	o := sampleOrder()
	o.Status = order.StatusDispatched
	o.Lines[0].Status = order.StatusDispatched
	o.Lines[1].Status = order.StatusCancelled

	view := order.ToLegacy(o)

	require.Equal(t, order.StatusDispatched, view.Status)
	require.Equal(t, order.StatusDispatched, view.Products[0].Status)
	require.Equal(t, order.StatusCancelled, view.Products[1].Status)
	require.Equal(t, order.StatusCancelled, view.OrderItems[1].Status)
}

func TestToLegacyCarriesGSTInfo(t *testing.T) {
	o := sampleOrder()
	o.GSTIN = "27AAPFU0939F1ZV"

	raw, err := json.Marshal(order.ToLegacy(o))
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.JSONEq(t, `"27AAPFU0939F1ZV"`, string(decoded["gstInfo"]))

	raw, err = json.Marshal(order.ToLegacy(sampleOrder()))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "gstInfo")
}

func TestToLegacyQtyAndQuantityAgree(t *testing.T) {
	raw, err := json.Marshal(order.ToLegacy(sampleOrder()))
	require.NoError(t, err)

	var decoded struct {
		Products []struct {
			Qty      int `json:"qty"`
			Quantity int `json:"quantity"`
		} `json:"products"`
		OrderItems []json.RawMessage `json:"orderItems"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Products, 2)
	for _, p := range decoded.Products {
		require.Equal(t, p.Qty, p.Quantity)
		require.Positive(t, p.Qty)
	}
	require.Len(t, decoded.OrderItems, 2)
}

func TestToLegacyMoneyFields(t *testing.T) {
	o := sampleOrder()
	view := order.ToLegacy(o)

	require.Equal(t, o.Pricing.ItemsPrice, view.ItemsPrice)
	require.Equal(t, o.Pricing.OriginalItemsPrice, view.OriginalItemsPrice)
	require.Equal(t, o.Pricing.Tax.Total, view.TaxPrice)
	require.Equal(t, o.Pricing.TotalPrice, view.TotalPrice)
	require.Equal(t, "2026-03-14T10:30:00.000Z", view.CreatedAt)
}
