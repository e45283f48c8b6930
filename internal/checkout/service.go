package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aranya-labs/backend-vastra/internal/cart"
	"github.com/aranya-labs/backend-vastra/internal/catalog"
	"github.com/aranya-labs/backend-vastra/internal/common"
	"github.com/aranya-labs/backend-vastra/internal/coupon"
	"github.com/aranya-labs/backend-vastra/internal/events"
	"github.com/aranya-labs/backend-vastra/internal/lock"
	"github.com/aranya-labs/backend-vastra/internal/obs"
	"github.com/aranya-labs/backend-vastra/internal/order"
	"github.com/aranya-labs/backend-vastra/internal/payment"
	"github.com/aranya-labs/backend-vastra/internal/pricing"
	"github.com/aranya-labs/backend-vastra/internal/queue"
	"github.com/aranya-labs/backend-vastra/internal/shipping"
	"github.com/aranya-labs/backend-vastra/internal/tax"
	"github.com/aranya-labs/backend-vastra/internal/user"
)

// UserStore looks up the customer placing the order.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

// CartReader loads the active cart lines for a user.
type CartReader interface {
	Items(ctx context.Context, userID uuid.UUID) ([]cart.Item, error)
}

// CatalogReader provides the catalog slices the pipeline needs.
type CatalogReader interface {
	StockSnapshots(ctx context.Context, ids []uuid.UUID) ([]catalog.StockSnapshot, error)
	PricingFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.ProductPricing, error)
	DimsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]shipping.Dimensions, error)
}

// OrderReader loads orders outside the finalization transaction.
type OrderReader interface {
	Get(ctx context.Context, orderID uuid.UUID) (order.Order, error)
	IncrementCodTries(ctx context.Context, orderID uuid.UUID) (int, error)
}

// CouponApplier evaluates a coupon against the cart without mutating state,
// and records usage once the order settles (prepaid: payment webhook; COD:
// successful verification).
type CouponApplier interface {
	Apply(ctx context.Context, code string, userID uuid.UUID, items []coupon.Item) (coupon.Applied, error)
	Settle(ctx context.Context, code string, orderID, userID uuid.UUID, discount int64) error
}

// RateEstimator quotes a shipping charge for the lane.
type RateEstimator interface {
	Estimate(ctx context.Context, destPIN string, weightGram int, mode shipping.Mode, callerPrice int64) (int64, error)
}

// Input is the validated checkout request.
type Input struct {
	UserID        uuid.UUID
	PaymentMethod order.PaymentMethod
	Address       order.Address
	CouponCode    string
	// ShippingPrice below zero means "not provided"; non-negative values are
	// trusted as-is.
	ShippingPrice int64
	GSTIN         string
}

// PaymentHandoff carries the provider references the client needs to collect
// a prepaid payment.
type PaymentHandoff struct {
	ProviderOrderID string        `json:"providerOrderId"`
	Amount          pricing.Money `json:"amount"`
	Currency        string        `json:"currency"`
	KeyID           string        `json:"keyId"`
}

// Result is the outcome of a successful checkout.
type Result struct {
	Order                   order.Order
	Payment                 *PaymentHandoff
	RequiresCodVerification bool
}

// Service runs the checkout pipeline and COD verification.
type Service struct {
	Users    UserStore
	Carts    CartReader
	Catalog  CatalogReader
	Orders   OrderReader
	Coupons  CouponApplier
	Shipping RateEstimator
	Tx       TxRunner
	Provider payment.Provider
	Tasks    queue.Enqueuer
	Bus      *events.Bus
	Locker   *lock.Locker
	Logger   zerolog.Logger

	GSTRateBPS      int
	OriginState     string
	Currency        string
	ProviderKeyID   string
	DefaultShipping int64
	CodTTL          time.Duration
	CodMaxTries     int
	LockTTL         time.Duration

	Now          func() time.Time
	GenerateCode func() (string, error)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) generateCode() (string, error) {
	if s.GenerateCode != nil {
		return s.GenerateCode()
	}
	return NewVerificationCode()
}

// Process finalizes the user's cart into an order.
func (s *Service) Process(ctx context.Context, in Input) (Result, error) {
	if s == nil || s.Tx == nil {
		return Result{}, errors.New("checkout service not configured")
	}
	start := time.Now()
	res, err := s.process(ctx, in)
	s.observe(in.PaymentMethod, err, time.Since(start))
	return res, err
}

func (s *Service) process(ctx context.Context, in Input) (Result, error) {
	usr, err := s.Users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Result{}, common.NewAppError(common.CodeUserNotFound, "user not found", http.StatusNotFound, err)
		}
		return Result{}, fmt.Errorf("load user: %w", err)
	}

	items, err := s.Carts.Items(ctx, in.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return Result{}, common.NewAppError(common.CodeCartEmpty, "cart is empty", http.StatusBadRequest, nil)
	}

	lines := cart.Lines(items)
	ids := productIDs(lines)

	if err := s.validateStock(ctx, lines, ids); err != nil {
		return Result{}, err
	}

	pricingMap, err := s.Catalog.PricingFor(ctx, ids)
	if err != nil {
		return Result{}, fmt.Errorf("load pricing: %w", err)
	}
	resolved, summary := pricing.Compute(lines, pricingMap)

	var applied coupon.Applied
	if in.CouponCode != "" {
		couponItems := make([]coupon.Item, 0, len(lines))
		for i, ln := range lines {
			couponItems = append(couponItems, coupon.Item{
				ProductID: ln.ProductID,
				Subtotal:  resolved[i].SellingPrice * int64(ln.Qty),
			})
		}
		applied, err = s.Coupons.Apply(ctx, in.CouponCode, in.UserID, couponItems)
		if err != nil {
			return Result{}, common.NewAppError(common.CodeCouponInvalid, err.Error(), http.StatusBadRequest, err)
		}
	}

	shippingPrice := s.estimateShipping(ctx, in, lines, ids)

	taxable := summary.ItemsPrice - applied.Discount
	if taxable < 0 {
		taxable = 0
	}
	taxes := tax.SplitGST(taxable, s.GSTRateBPS, s.OriginState, in.Address.State)
	total := pricing.Total(summary.ItemsPrice, applied.Discount, taxes.Total, shippingPrice)

	now := s.now()
	ord := order.Order{
		ID:            uuid.New(),
		UserID:        in.UserID,
		PaymentMethod: in.PaymentMethod,
		Address:       in.Address,
		GSTIN:         strings.ToUpper(strings.TrimSpace(in.GSTIN)),
		Lines:         orderLines(lines, resolved),
		Pricing: order.Pricing{
			ItemsPrice:         summary.ItemsPrice,
			OriginalItemsPrice: summary.OriginalItemsPrice,
			CatalogDiscount:    summary.CatalogDiscount,
			CouponDiscount:     applied.Discount,
			CouponCode:         applied.Code,
			Tax:                taxes,
			ShippingPrice:      shippingPrice,
			TotalPrice:         total,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch in.PaymentMethod {
	case order.PaymentPrepaid:
		return s.finalizePrepaid(ctx, ord)
	case order.PaymentCOD:
		return s.finalizeCod(ctx, ord, usr)
	default:
		return Result{}, common.NewAppError(common.CodeBadRequest, "unsupported payment method", http.StatusBadRequest, nil)
	}
}

// validateStock checks every line against a fresh snapshot, auto-assigning a
// size when the cart line has none.
func (s *Service) validateStock(ctx context.Context, lines []pricing.LineItem, ids []uuid.UUID) error {
	snaps, err := s.Catalog.StockSnapshots(ctx, ids)
	if err != nil {
		return fmt.Errorf("load stock: %w", err)
	}
	byID := make(map[uuid.UUID]catalog.StockSnapshot, len(snaps))
	for _, snap := range snaps {
		byID[snap.ProductID] = snap
	}

	for i := range lines {
		ln := &lines[i]
		snap, ok := byID[ln.ProductID]
		if !ok {
			return common.NewAppError(common.CodeProductGone, fmt.Sprintf("product %q is no longer available", ln.Name), http.StatusConflict, nil).
				WithDetails(map[string]any{"productId": ln.ProductID})
		}
		if ln.Name == "" {
			ln.Name = snap.Name
		}
		if ln.Size == "" {
			size, ok := snap.FirstAvailableSize()
			if !ok {
				return insufficientStock(ln.ProductID, snap.Name, "")
			}
			s.Logger.Warn().
				Stringer("product_id", ln.ProductID).
				Str("size", size).
				Msg("cart line had no size, auto-assigned first available")
			ln.Size = size
		}
		avail, ok := snap.AvailableQty(ln.Size)
		if !ok || avail < ln.Qty {
			return insufficientStock(ln.ProductID, snap.Name, ln.Size)
		}
	}
	return nil
}

// estimateShipping never aborts a checkout; any failure falls back to the
// configured default price.
func (s *Service) estimateShipping(ctx context.Context, in Input, lines []pricing.LineItem, ids []uuid.UUID) pricing.Money {
	mode := shipping.ModePrepaid
	if in.PaymentMethod == order.PaymentCOD {
		mode = shipping.ModeCOD
	}
	// A caller-supplied price is already trusted by the estimator, so a
	// dims or estimator failure must not discard it.
	dims, err := s.Catalog.DimsFor(ctx, ids)
	if err != nil {
		if in.ShippingPrice >= 0 {
			return in.ShippingPrice
		}
		s.Logger.Warn().Err(err).Msg("product dimensions unavailable, using default shipping price")
		return s.DefaultShipping
	}
	parcels := make([]shipping.Parcel, 0, len(lines))
	for _, ln := range lines {
		parcels = append(parcels, shipping.Parcel{Dims: dims[ln.ProductID], Qty: ln.Qty})
	}
	price, err := s.Shipping.Estimate(ctx, in.Address.PIN, shipping.ChargeableWeightG(parcels), mode, in.ShippingPrice)
	if err != nil {
		if in.ShippingPrice >= 0 {
			return in.ShippingPrice
		}
		s.Logger.Warn().Err(err).Str("destination_pin", in.Address.PIN).Msg("shipping estimate failed, using default price")
		return s.DefaultShipping
	}
	return price
}

// finalizePrepaid creates the provider order before committing so the client
// handoff and the persisted order always agree; the provider order is inert
// until the customer pays.
func (s *Service) finalizePrepaid(ctx context.Context, ord order.Order) (Result, error) {
	if s.Provider == nil {
		return Result{}, common.NewAppError(common.CodePaymentProvider, "payment provider not configured", http.StatusServiceUnavailable, nil)
	}
	po, err := s.Provider.CreateOrder(ctx, payment.OrderRequest{
		ReceiptID: ord.ID.String(),
		Amount:    ord.Pricing.TotalPrice,
		Currency:  s.Currency,
		Notes:     map[string]string{"userId": ord.UserID.String()},
	})
	if err != nil {
		return Result{}, common.NewAppError(common.CodePaymentProvider, "payment provider rejected the order", http.StatusBadGateway, err)
	}
	ord.Status = order.StatusProcessing
	ord.Payment = order.PaymentInfo{ProviderOrderID: po.OrderID, Status: payment.StatusPending}

	err = s.Tx.WithinTx(ctx, func(txs TxStores) error {
		for _, ln := range ord.Lines {
			if err := txs.Catalog.DecrementStock(ctx, ln.ProductID, ln.Size, ln.Qty); err != nil {
				if errors.Is(err, catalog.ErrInsufficientStock) {
					return insufficientStock(ln.ProductID, ln.Name, ln.Size)
				}
				return fmt.Errorf("decrement stock: %w", err)
			}
		}
		if err := txs.Orders.Insert(ctx, ord); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		// The cart survives until the payment webhook confirms the charge:
		// a failed payment must not cost the user their cart.
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.emit(ctx, events.TopicOrderCreated, ord.ID, map[string]any{
		"paymentMethod":   string(ord.PaymentMethod),
		"providerOrderId": po.OrderID,
		"total":           ord.Pricing.TotalPrice,
	})
	return Result{
		Order: ord,
		Payment: &PaymentHandoff{
			ProviderOrderID: po.OrderID,
			Amount:          ord.Pricing.TotalPrice,
			Currency:        s.Currency,
			KeyID:           s.ProviderKeyID,
		},
	}, nil
}

// finalizeCod persists a pending order without touching stock; the decrement
// happens only when the customer verifies the emailed code.
func (s *Service) finalizeCod(ctx context.Context, ord order.Order, usr user.User) (Result, error) {
	code, err := s.generateCode()
	if err != nil {
		return Result{}, err
	}
	hash, err := HashVerificationCode(code)
	if err != nil {
		return Result{}, fmt.Errorf("hash verification code: %w", err)
	}
	expires := s.now().Add(s.CodTTL)
	ord.Status = order.StatusPending
	ord.Cod = &order.CodVerification{CodeHash: hash, ExpiresAt: expires}

	// The cart is deliberately left intact: an unverified COD order expires
	// without ever becoming a sale, and the user keeps their cart.
	err = s.Tx.WithinTx(ctx, func(txs TxStores) error {
		return txs.Orders.Insert(ctx, ord)
	})
	if err != nil {
		return Result{}, err
	}

	if s.Tasks != nil {
		task, err := queue.NewCodEmailTask(queue.CodEmailPayload{
			OrderID:   ord.ID.String(),
			Email:     usr.Email,
			Code:      code,
			ExpiresAt: expires,
		})
		if err == nil {
			err = s.Tasks.Enqueue(ctx, task)
		}
		if err != nil {
			s.Logger.Error().Err(err).Stringer("order_id", ord.ID).Msg("enqueue cod verification email failed")
		}
	}

	s.emit(ctx, events.TopicOrderCodPending, ord.ID, map[string]any{
		"expiresAt": expires,
		"total":     ord.Pricing.TotalPrice,
	})
	return Result{Order: ord, RequiresCodVerification: true}, nil
}

// VerifyCod confirms a pending COD order with the emailed code. Stock is
// decremented here, atomically with the status change.
func (s *Service) VerifyCod(ctx context.Context, orderID uuid.UUID, code string) error {
	if s.Locker != nil {
		return s.Locker.WithLock(ctx, lock.KeyCodVerify(orderID), s.LockTTL, func(ctx context.Context) error {
			return s.verifyCod(ctx, orderID, code)
		})
	}
	return s.verifyCod(ctx, orderID, code)
}

func (s *Service) verifyCod(ctx context.Context, orderID uuid.UUID, code string) error {
	ord, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return common.NewAppError(common.CodeNotFound, "order not found", http.StatusNotFound, err)
		}
		return fmt.Errorf("load order: %w", err)
	}
	if ord.PaymentMethod != order.PaymentCOD || ord.Cod == nil {
		return common.NewAppError(common.CodeBadRequest, "order does not require verification", http.StatusBadRequest, nil)
	}
	if ord.Cod.Verified {
		return nil
	}
	if ord.Status != order.StatusPending {
		return common.NewAppError(common.CodeCodExpired, "verification window closed", http.StatusGone, nil)
	}
	now := s.now()
	if now.After(ord.Cod.ExpiresAt) {
		s.countCodVerify("expired")
		return common.NewAppError(common.CodeCodExpired, "verification code expired", http.StatusGone, nil)
	}

	tries, err := s.Orders.IncrementCodTries(ctx, orderID)
	if err != nil {
		return fmt.Errorf("record verification attempt: %w", err)
	}
	if s.CodMaxTries > 0 && tries > s.CodMaxTries {
		s.countCodVerify("throttled")
		return common.NewAppError(common.CodeCodInvalid, "too many attempts", http.StatusTooManyRequests, nil)
	}

	match, err := CompareVerificationCode(ord.Cod.CodeHash, code)
	if err != nil {
		return fmt.Errorf("compare verification code: %w", err)
	}
	if !match {
		s.countCodVerify("mismatch")
		return common.NewAppError(common.CodeCodInvalid, "verification code does not match", http.StatusBadRequest, nil)
	}

	err = s.Tx.WithinTx(ctx, func(txs TxStores) error {
		for _, ln := range ord.Lines {
			if err := txs.Catalog.DecrementStock(ctx, ln.ProductID, ln.Size, ln.Qty); err != nil {
				if errors.Is(err, catalog.ErrInsufficientStock) {
					return insufficientStock(ln.ProductID, ln.Name, ln.Size)
				}
				return fmt.Errorf("decrement stock: %w", err)
			}
		}
		if err := txs.Orders.MarkCodVerified(ctx, orderID); err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
		if err := txs.Orders.UpdateStatus(ctx, orderID, order.StatusPending, order.StatusProcessing); err != nil {
			return err
		}
		return txs.Carts.Clear(ctx, ord.UserID)
	})
	if err != nil {
		return err
	}

	if s.Coupons != nil && ord.Pricing.CouponCode != "" {
		discount := int64(ord.Pricing.CouponDiscount)
		if err := s.Coupons.Settle(ctx, ord.Pricing.CouponCode, orderID, ord.UserID, discount); err != nil {
			// The order is already verified; usage recording is idempotent
			// per coupon and order, so a retry path would not re-enter here.
			s.Logger.Error().Err(err).Stringer("order_id", orderID).Str("coupon", ord.Pricing.CouponCode).Msg("coupon settlement failed")
		}
	}

	s.countCodVerify("ok")
	s.emit(ctx, events.TopicOrderCodVerified, orderID, map[string]any{"verifiedAt": now})
	return nil
}

func (s *Service) emit(ctx context.Context, topic string, orderID uuid.UUID, payload any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, orderID, payload); err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Stringer("order_id", orderID).Msg("emit domain event failed")
	}
}

func (s *Service) observe(method order.PaymentMethod, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
		if appErr, ok := common.AsAppError(err); ok {
			result = appErr.Code
			if appErr.Code == common.CodeInsufficientStock && obs.StockConflictTotal != nil {
				obs.StockConflictTotal.Inc()
			}
		}
	}
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(string(method), result).Inc()
	}
	if obs.CheckoutDuration != nil {
		obs.CheckoutDuration.WithLabelValues(string(method)).Observe(obs.DurationMillis(elapsed))
	}
}

func (s *Service) countCodVerify(result string) {
	if obs.CodVerifyTotal != nil {
		obs.CodVerifyTotal.WithLabelValues(result).Inc()
	}
}

func insufficientStock(productID uuid.UUID, name, size string) *common.AppError {
	msg := fmt.Sprintf("insufficient stock for %q", name)
	if size != "" {
		msg = fmt.Sprintf("insufficient stock for %q size %s", name, size)
	}
	return common.NewAppError(common.CodeInsufficientStock, msg, http.StatusConflict, nil).
		WithDetails(map[string]any{"productId": productID, "size": size})
}

func productIDs(lines []pricing.LineItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, ln := range lines {
		if _, ok := seen[ln.ProductID]; ok {
			continue
		}
		seen[ln.ProductID] = struct{}{}
		ids = append(ids, ln.ProductID)
	}
	return ids
}

func orderLines(lines []pricing.LineItem, resolved []pricing.Resolved) []order.Line {
	out := make([]order.Line, 0, len(lines))
	for i, ln := range lines {
		out = append(out, order.Line{
			ProductID:     ln.ProductID,
			Name:          ln.Name,
			Size:          ln.Size,
			Qty:           ln.Qty,
			UnitPrice:     resolved[i].SellingPrice,
			OriginalPrice: resolved[i].OriginalPrice,
			Subtotal:      resolved[i].SellingPrice * int64(ln.Qty),
		})
	}
	return out
}
