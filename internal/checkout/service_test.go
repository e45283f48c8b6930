package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/cart"
	"github.com/aranya-labs/backend-vastra/internal/catalog"
	"github.com/aranya-labs/backend-vastra/internal/checkout"
	"github.com/aranya-labs/backend-vastra/internal/common"
	"github.com/aranya-labs/backend-vastra/internal/coupon"
	"github.com/aranya-labs/backend-vastra/internal/order"
	"github.com/aranya-labs/backend-vastra/internal/payment"
	"github.com/aranya-labs/backend-vastra/internal/pricing"
	"github.com/aranya-labs/backend-vastra/internal/queue"
	"github.com/aranya-labs/backend-vastra/internal/shipping"
	"github.com/aranya-labs/backend-vastra/internal/user"
)

type stockKey struct {
	productID uuid.UUID
	size      string
}

// memEnv backs every store interface the checkout service touches, with
// transaction rollback emulated by snapshot/restore.
type memEnv struct {
	stock   map[stockKey]int
	orders  map[uuid.UUID]order.Order
	tries   map[uuid.UUID]int
	cleared []uuid.UUID
}

func newMemEnv() *memEnv {
	return &memEnv{
		stock:  map[stockKey]int{},
		orders: map[uuid.UUID]order.Order{},
		tries:  map[uuid.UUID]int{},
	}
}

func (e *memEnv) DecrementStock(_ context.Context, productID uuid.UUID, sizeLabel string, qty int) error {
	k := stockKey{productID, sizeLabel}
	if e.stock[k] < qty {
		return catalog.ErrInsufficientStock
	}
	e.stock[k] -= qty
	return nil
}

func (e *memEnv) Insert(_ context.Context, o order.Order) error {
	e.orders[o.ID] = o
	return nil
}

func (e *memEnv) MarkCodVerified(_ context.Context, orderID uuid.UUID) error {
	o, ok := e.orders[orderID]
	if !ok || o.Cod == nil {
		return order.ErrNotFound
	}
	o.Cod.Verified = true
	e.orders[orderID] = o
	return nil
}

func (e *memEnv) UpdateStatus(_ context.Context, orderID uuid.UUID, from, to order.Status) error {
	o, ok := e.orders[orderID]
	if !ok || o.Status != from {
		return order.ErrNotFound
	}
	o.Status = to
	e.orders[orderID] = o
	return nil
}

func (e *memEnv) Clear(_ context.Context, userID uuid.UUID) error {
	e.cleared = append(e.cleared, userID)
	return nil
}

func (e *memEnv) Get(_ context.Context, orderID uuid.UUID) (order.Order, error) {
	o, ok := e.orders[orderID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (e *memEnv) IncrementCodTries(_ context.Context, orderID uuid.UUID) (int, error) {
	e.tries[orderID]++
	return e.tries[orderID], nil
}

type memTx struct{ env *memEnv }

func (t memTx) WithinTx(_ context.Context, fn func(checkout.TxStores) error) error {
	stockBefore := make(map[stockKey]int, len(t.env.stock))
	for k, v := range t.env.stock {
		stockBefore[k] = v
	}
	ordersBefore := make(map[uuid.UUID]order.Order, len(t.env.orders))
	for k, v := range t.env.orders {
		ordersBefore[k] = v
	}
	clearedBefore := len(t.env.cleared)

	err := fn(checkout.TxStores{Catalog: t.env, Orders: t.env, Carts: t.env})
	if err != nil {
		t.env.stock = stockBefore
		t.env.orders = ordersBefore
		t.env.cleared = t.env.cleared[:clearedBefore]
	}
	return err
}

type memUsers struct{ users map[uuid.UUID]user.User }

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type memCarts struct{ items []cart.Item }

func (m memCarts) Items(context.Context, uuid.UUID) ([]cart.Item, error) {
	return m.items, nil
}

type memCatalog struct {
	snaps   []catalog.StockSnapshot
	pricing map[uuid.UUID]pricing.ProductPricing
	dims    map[uuid.UUID]shipping.Dimensions
	dimsErr error
}

func (m memCatalog) StockSnapshots(context.Context, []uuid.UUID) ([]catalog.StockSnapshot, error) {
	return m.snaps, nil
}

func (m memCatalog) PricingFor(context.Context, []uuid.UUID) (map[uuid.UUID]pricing.ProductPricing, error) {
	return m.pricing, nil
}

func (m memCatalog) DimsFor(context.Context, []uuid.UUID) (map[uuid.UUID]shipping.Dimensions, error) {
	return m.dims, m.dimsErr
}

type settleCall struct {
	code     string
	orderID  uuid.UUID
	userID   uuid.UUID
	discount int64
}

type memCoupons struct {
	applied coupon.Applied
	err     error
	settled []settleCall
}

func (m *memCoupons) Apply(context.Context, string, uuid.UUID, []coupon.Item) (coupon.Applied, error) {
	return m.applied, m.err
}

func (m *memCoupons) Settle(_ context.Context, code string, orderID, userID uuid.UUID, discount int64) error {
	m.settled = append(m.settled, settleCall{code, orderID, userID, discount})
	return nil
}

type estimatorFunc func(ctx context.Context, destPIN string, weightGram int, mode shipping.Mode, callerPrice int64) (int64, error)

func (f estimatorFunc) Estimate(ctx context.Context, destPIN string, weightGram int, mode shipping.Mode, callerPrice int64) (int64, error) {
	return f(ctx, destPIN, weightGram, mode, callerPrice)
}

type memProvider struct {
	created []payment.OrderRequest
	err     error
}

func (m *memProvider) CreateOrder(_ context.Context, req payment.OrderRequest) (payment.ProviderOrder, error) {
	if m.err != nil {
		return payment.ProviderOrder{}, m.err
	}
	m.created = append(m.created, req)
	return payment.ProviderOrder{Provider: "razorpay", OrderID: "order_live_1", Amount: req.Amount, Currency: req.Currency}, nil
}

func (m *memProvider) VerifyWebhook(*http.Request, []byte) (payment.WebhookResult, error) {
	return payment.WebhookResult{}, errors.New("not used")
}

type memEnqueuer struct{ tasks []*asynq.Task }

func (m *memEnqueuer) Enqueue(_ context.Context, task *asynq.Task) error {
	m.tasks = append(m.tasks, task)
	return nil
}

type fixture struct {
	svc      *checkout.Service
	env      *memEnv
	provider *memProvider
	tasks    *memEnqueuer
	userID   uuid.UUID
	product  uuid.UUID
}

func passthroughEstimator(_ context.Context, _ string, _ int, _ shipping.Mode, callerPrice int64) (int64, error) {
	if callerPrice >= 0 {
		return callerPrice, nil
	}
	return 5000, nil
}

// newFixture sets up one product (size M, 5 in stock, 500.00) and a cart
// holding two units of it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	userID := uuid.New()
	productID := uuid.New()

	env := newMemEnv()
	env.stock[stockKey{productID, "M"}] = 5

	snap := catalog.StockSnapshot{
		ProductID: productID,
		Name:      "Block Print Kurta",
		Variants: []catalog.Variant{{
			SKU:   "KUR-BP-01",
			Sizes: []catalog.SizeStock{{Label: "M", Qty: 5, Price: 50000}},
		}},
	}
	provider := &memProvider{}
	tasks := &memEnqueuer{}

	svc := &checkout.Service{
		Users: memUsers{users: map[uuid.UUID]user.User{
			userID: {ID: userID, Email: "asha@example.in", Name: "Asha"},
		}},
		Carts: memCarts{items: []cart.Item{{
			ProductID: productID,
			Name:      "Block Print Kurta",
			Size:      "M",
			Qty:       2,
			UnitPrice: 50000,
		}}},
		Catalog: memCatalog{
			snaps:   []catalog.StockSnapshot{snap},
			pricing: map[uuid.UUID]pricing.ProductPricing{productID: {BasePrice: 50000}},
			dims:    map[uuid.UUID]shipping.Dimensions{productID: {LengthCM: 30, WidthCM: 20, HeightCM: 4, DeadWeightG: 300}},
		},
		Orders:   env,
		Coupons:  &memCoupons{},
		Shipping: estimatorFunc(passthroughEstimator),
		Tx:       memTx{env: env},
		Provider: provider,
		Tasks:    tasks,
		Logger:   zerolog.Nop(),

		GSTRateBPS:      1800,
		OriginState:     "Karnataka",
		Currency:        "INR",
		ProviderKeyID:   "rzp_test_key",
		DefaultShipping: 9900,
		CodTTL:          15 * time.Minute,
		CodMaxTries:     3,
	}
	return &fixture{svc: svc, env: env, provider: provider, tasks: tasks, userID: userID, product: productID}
}

func intraStateInput(f *fixture, method order.PaymentMethod) checkout.Input {
	return checkout.Input{
		UserID:        f.userID,
		PaymentMethod: method,
		Address: order.Address{
			Line1:   "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			PIN:     "560001",
			Phone:   "9000000000",
			Country: "IN",
		},
		ShippingPrice: 5000,
	}
}

func TestPrepaidCheckoutIntraState(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	require.NoError(t, err)

	p := res.Order.Pricing
	require.Equal(t, int64(100000), p.ItemsPrice)
	require.Equal(t, int64(9000), p.Tax.CGST)
	require.Equal(t, int64(9000), p.Tax.SGST)
	require.Zero(t, p.Tax.IGST)
	require.Equal(t, int64(18000), p.Tax.Total)
	require.Equal(t, int64(5000), p.ShippingPrice)
	require.Equal(t, p.ItemsPrice+p.ShippingPrice+p.Tax.Total-p.CouponDiscount, p.TotalPrice)

	// stock reserved immediately for prepaid
	require.Equal(t, 3, f.env.stock[stockKey{f.product, "M"}])

	require.False(t, res.RequiresCodVerification)
	require.NotNil(t, res.Payment)
	require.Equal(t, "order_live_1", res.Payment.ProviderOrderID)
	require.Equal(t, "rzp_test_key", res.Payment.KeyID)
	require.Equal(t, p.TotalPrice, res.Payment.Amount)

	stored := f.env.orders[res.Order.ID]
	require.Equal(t, order.StatusProcessing, stored.Status)
	require.Equal(t, "order_live_1", stored.Payment.ProviderOrderID)
	// cart clearing waits for the payment webhook
	require.Empty(t, f.env.cleared)
	require.Len(t, f.provider.created, 1)
	require.Equal(t, res.Order.ID.String(), f.provider.created[0].ReceiptID)
}

func TestInterStateUsesIGST(t *testing.T) {
	f := newFixture(t)
	in := intraStateInput(f, order.PaymentPrepaid)
	in.Address.State = "Maharashtra"

	res, err := f.svc.Process(context.Background(), in)
	require.NoError(t, err)

	p := res.Order.Pricing
	require.Zero(t, p.Tax.CGST)
	require.Zero(t, p.Tax.SGST)
	require.Equal(t, int64(18000), p.Tax.IGST)
	require.Equal(t, p.Tax.CGST+p.Tax.SGST+p.Tax.IGST, p.Tax.Total)
}

func TestCodCheckoutDefersStock(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentCOD))
	require.NoError(t, err)

	// no reservation and no cart clearing until the code is verified
	require.Equal(t, 5, f.env.stock[stockKey{f.product, "M"}])
	require.Empty(t, f.env.cleared)
	require.True(t, res.RequiresCodVerification)
	require.Nil(t, res.Payment)
	require.Empty(t, f.provider.created)

	stored := f.env.orders[res.Order.ID]
	require.Equal(t, order.StatusPending, stored.Status)
	require.NotNil(t, stored.Cod)
	require.False(t, stored.Cod.Verified)

	require.Len(t, f.tasks.tasks, 1)
	var payload queue.CodEmailPayload
	require.NoError(t, json.Unmarshal(f.tasks.tasks[0].Payload(), &payload))
	require.Equal(t, res.Order.ID.String(), payload.OrderID)
	require.Equal(t, "asha@example.in", payload.Email)
	require.Len(t, payload.Code, 6)
	// only the hash is persisted
	require.NotEqual(t, payload.Code, stored.Cod.CodeHash)

	t.Run("wrong code rejected", func(t *testing.T) {
		err := f.svc.VerifyCod(context.Background(), res.Order.ID, "000000")
		appErr, ok := common.AsAppError(err)
		require.True(t, ok)
		require.Equal(t, common.CodeCodInvalid, appErr.Code)
		require.Equal(t, 5, f.env.stock[stockKey{f.product, "M"}])
	})

	t.Run("correct code reserves stock", func(t *testing.T) {
		require.NoError(t, f.svc.VerifyCod(context.Background(), res.Order.ID, payload.Code))
		require.Equal(t, 3, f.env.stock[stockKey{f.product, "M"}])
		verified := f.env.orders[res.Order.ID]
		require.Equal(t, order.StatusProcessing, verified.Status)
		require.True(t, verified.Cod.Verified)
		require.Equal(t, []uuid.UUID{f.userID}, f.env.cleared)
	})

	t.Run("second verification is a no-op", func(t *testing.T) {
		require.NoError(t, f.svc.VerifyCod(context.Background(), res.Order.ID, payload.Code))
		require.Equal(t, 3, f.env.stock[stockKey{f.product, "M"}])
	})
}

func TestVerifyCodExpired(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentCOD))
	require.NoError(t, err)

	f.svc.Now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	err = f.svc.VerifyCod(context.Background(), res.Order.ID, "123456")
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeCodExpired, appErr.Code)
	require.Equal(t, 5, f.env.stock[stockKey{f.product, "M"}])
}

func TestVerifyCodAttemptsLimited(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentCOD))
	require.NoError(t, err)

	for i := 0; i < f.svc.CodMaxTries; i++ {
		err := f.svc.VerifyCod(context.Background(), res.Order.ID, "000000")
		appErr, ok := common.AsAppError(err)
		require.True(t, ok)
		require.Equal(t, common.CodeCodInvalid, appErr.Code)
		require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	}
	err = f.svc.VerifyCod(context.Background(), res.Order.ID, "000000")
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusTooManyRequests, appErr.HTTPStatus)
}

func TestVerifyCodRejectsPrepaidOrder(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	require.NoError(t, err)

	err = f.svc.VerifyCod(context.Background(), res.Order.ID, "123456")
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeBadRequest, appErr.Code)
}

func TestInsufficientStockAbortsCleanly(t *testing.T) {
	f := newFixture(t)
	f.svc.Carts = memCarts{items: []cart.Item{{
		ProductID: f.product,
		Name:      "Block Print Kurta",
		Size:      "M",
		Qty:       6,
		UnitPrice: 50000,
	}}}

	_, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeInsufficientStock, appErr.Code)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, f.product, details["productId"])
	require.Equal(t, "M", details["size"])

	require.Empty(t, f.env.orders)
	require.Empty(t, f.env.cleared)
	require.Empty(t, f.provider.created)
	require.Equal(t, 5, f.env.stock[stockKey{f.product, "M"}])
}

func TestSplitVariantStockValidatedPerRow(t *testing.T) {
	f := newFixture(t)
	// size M split 3+2 across two variants; a single line of 4 cannot be
	// reserved from one row, so validation must refuse it up front
	mc := f.svc.Catalog.(memCatalog)
	mc.snaps = []catalog.StockSnapshot{{
		ProductID: f.product,
		Name:      "Block Print Kurta",
		Variants: []catalog.Variant{
			{SKU: "KUR-BP-01", Sizes: []catalog.SizeStock{{Label: "M", Qty: 3, Price: 50000}}},
			{SKU: "KUR-BP-02", Sizes: []catalog.SizeStock{{Label: "M", Qty: 2, Price: 50000}}},
		},
	}}
	f.svc.Catalog = mc
	f.svc.Carts = memCarts{items: []cart.Item{{
		ProductID: f.product,
		Name:      "Block Print Kurta",
		Size:      "M",
		Qty:       4,
		UnitPrice: 50000,
	}}}

	_, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeInsufficientStock, appErr.Code)
	require.Empty(t, f.env.orders)
}

func TestConcurrentReservationSingleWinner(t *testing.T) {
	f := newFixture(t)
	// snapshot says 5 but only 2 remain; the conditional decrement inside the
	// transaction is the arbiter
	f.env.stock[stockKey{f.product, "M"}] = 2

	_, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	require.NoError(t, err)
	require.Equal(t, 0, f.env.stock[stockKey{f.product, "M"}])

	_, err = f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeInsufficientStock, appErr.Code)
	require.Len(t, f.env.orders, 1)
}

func TestEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.svc.Carts = memCarts{}

	_, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeCartEmpty, appErr.Code)
}

func TestUnknownUser(t *testing.T) {
	f := newFixture(t)
	in := intraStateInput(f, order.PaymentPrepaid)
	in.UserID = uuid.New()

	_, err := f.svc.Process(context.Background(), in)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeUserNotFound, appErr.Code)
}

func TestVanishedProduct(t *testing.T) {
	f := newFixture(t)
	f.svc.Catalog = memCatalog{
		pricing: map[uuid.UUID]pricing.ProductPricing{},
		dims:    map[uuid.UUID]shipping.Dimensions{},
	}

	_, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeProductGone, appErr.Code)
}

func TestCouponDiscountFlowsThroughTotals(t *testing.T) {
	f := newFixture(t)
	f.svc.Coupons = &memCoupons{applied: coupon.Applied{Code: "FESTIVE10", Discount: 10000}}
	in := intraStateInput(f, order.PaymentPrepaid)
	in.CouponCode = "FESTIVE10"

	res, err := f.svc.Process(context.Background(), in)
	require.NoError(t, err)

	p := res.Order.Pricing
	require.Equal(t, "FESTIVE10", p.CouponCode)
	require.Equal(t, int64(10000), p.CouponDiscount)
	// tax applies to the discounted subtotal
	require.Equal(t, int64(16200), p.Tax.Total)
	require.Equal(t, p.ItemsPrice+p.ShippingPrice+p.Tax.Total-p.CouponDiscount, p.TotalPrice)
}

func TestCodVerifySettlesCoupon(t *testing.T) {
	f := newFixture(t)
	coupons := &memCoupons{applied: coupon.Applied{Code: "FESTIVE10", Discount: 10000}}
	f.svc.Coupons = coupons
	in := intraStateInput(f, order.PaymentCOD)
	in.CouponCode = "FESTIVE10"

	res, err := f.svc.Process(context.Background(), in)
	require.NoError(t, err)
	// usage is recorded only once the order is verified
	require.Empty(t, coupons.settled)

	var payload queue.CodEmailPayload
	require.NoError(t, json.Unmarshal(f.tasks.tasks[0].Payload(), &payload))
	require.NoError(t, f.svc.VerifyCod(context.Background(), res.Order.ID, payload.Code))

	require.Len(t, coupons.settled, 1)
	call := coupons.settled[0]
	require.Equal(t, "FESTIVE10", call.code)
	require.Equal(t, res.Order.ID, call.orderID)
	require.Equal(t, f.userID, call.userID)
	require.Equal(t, int64(10000), call.discount)

	// re-verification short-circuits before settlement
	require.NoError(t, f.svc.VerifyCod(context.Background(), res.Order.ID, payload.Code))
	require.Len(t, coupons.settled, 1)
}

func TestCheckoutPersistsGSTIN(t *testing.T) {
	f := newFixture(t)
	in := intraStateInput(f, order.PaymentPrepaid)
	in.GSTIN = " 29abcde1234f1z5 "

	res, err := f.svc.Process(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, "29ABCDE1234F1Z5", res.Order.GSTIN)
	stored := f.env.orders[res.Order.ID]
	require.Equal(t, "29ABCDE1234F1Z5", stored.GSTIN)
}

func TestCouponRejectionAborts(t *testing.T) {
	f := newFixture(t)
	f.svc.Coupons = &memCoupons{err: coupon.ErrExpired}
	in := intraStateInput(f, order.PaymentPrepaid)
	in.CouponCode = "OLD"

	_, err := f.svc.Process(context.Background(), in)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodeCouponInvalid, appErr.Code)
	require.Empty(t, f.env.orders)
}

func TestEstimatorFailureFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	f.svc.Shipping = estimatorFunc(func(context.Context, string, int, shipping.Mode, int64) (int64, error) {
		return 0, errors.New("carrier down")
	})
	in := intraStateInput(f, order.PaymentPrepaid)
	in.ShippingPrice = -1

	res, err := f.svc.Process(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, f.svc.DefaultShipping, res.Order.Pricing.ShippingPrice)
}

func TestCallerShippingPriceSurvivesDimsFailure(t *testing.T) {
	f := newFixture(t)
	mc := f.svc.Catalog.(memCatalog)
	mc.dimsErr = errors.New("dims lookup offline")
	f.svc.Catalog = mc
	in := intraStateInput(f, order.PaymentPrepaid)

	res, err := f.svc.Process(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, int64(5000), res.Order.Pricing.ShippingPrice)
}

func TestCallerShippingPriceSurvivesEstimatorFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.Shipping = estimatorFunc(func(context.Context, string, int, shipping.Mode, int64) (int64, error) {
		return 0, errors.New("carrier down")
	})
	in := intraStateInput(f, order.PaymentPrepaid)

	res, err := f.svc.Process(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, int64(5000), res.Order.Pricing.ShippingPrice)
}

func TestSizeAutoAssignment(t *testing.T) {
	f := newFixture(t)
	f.svc.Carts = memCarts{items: []cart.Item{{
		ProductID: f.product,
		Name:      "Block Print Kurta",
		Qty:       1,
		UnitPrice: 50000,
	}}}

	res, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	require.NoError(t, err)
	require.Equal(t, "M", res.Order.Lines[0].Size)
	require.Equal(t, 4, f.env.stock[stockKey{f.product, "M"}])
}

func TestProviderFailureAbortsBeforePersisting(t *testing.T) {
	f := newFixture(t)
	f.provider.err = errors.New("gateway 500")

	_, err := f.svc.Process(context.Background(), intraStateInput(f, order.PaymentPrepaid))
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, common.CodePaymentProvider, appErr.Code)
	require.Empty(t, f.env.orders)
	require.Equal(t, 5, f.env.stock[stockKey{f.product, "M"}])
}
