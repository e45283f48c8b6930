package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates the order does not exist or is not visible to the
// caller.
var ErrNotFound = errors.New("order: not found")

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo provides order persistence.
type Repo struct {
	DB DBTX
}

// WithTx returns a repo bound to the transaction.
func (r Repo) WithTx(tx pgx.Tx) Repo {
	return Repo{DB: tx}
}

// Insert writes an order header plus its lines, and the COD verification row
// when present. Callers run it inside a transaction together with stock
// decrements and cart clearing.
func (r Repo) Insert(ctx context.Context, o Order) error {
	address, err := json.Marshal(o.Address)
	if err != nil {
		return fmt.Errorf("insert order: encode address: %w", err)
	}
	taxJSON, err := json.Marshal(o.Pricing.Tax)
	if err != nil {
		return fmt.Errorf("insert order: encode tax: %w", err)
	}
	var couponCode *string
	if o.Pricing.CouponCode != "" {
		couponCode = &o.Pricing.CouponCode
	}
	if _, err := r.DB.Exec(ctx, `
		INSERT INTO orders (
			id, user_id, status, payment_method, shipping_address, gstin,
			items_price, original_items_price, catalog_discount, coupon_discount, coupon_code,
			tax, shipping_price, total_price,
			provider_order_id, payment_status, is_paid, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18)`,
		o.ID, o.UserID, o.Status, o.PaymentMethod, address, nullable(o.GSTIN),
		o.Pricing.ItemsPrice, o.Pricing.OriginalItemsPrice, o.Pricing.CatalogDiscount,
		o.Pricing.CouponDiscount, couponCode,
		taxJSON, o.Pricing.ShippingPrice, o.Pricing.TotalPrice,
		nullable(o.Payment.ProviderOrderID), nullable(o.Payment.Status), o.IsPaid, o.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for _, l := range o.Lines {
		status := l.Status
		if status == "" {
			status = o.Status
		}
		if _, err := r.DB.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, size, status, qty, unit_price, original_price, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			uuid.New(), o.ID, l.ProductID, l.Name, nullable(l.Size), status, l.Qty, l.UnitPrice, l.OriginalPrice, l.Subtotal,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	if o.Cod != nil {
		if _, err := r.DB.Exec(ctx, `
			INSERT INTO pending_cod_orders (order_id, code_hash, expires_at, verified, tries)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, o.Cod.CodeHash, o.Cod.ExpiresAt, o.Cod.Verified, o.Cod.Tries,
		); err != nil {
			return fmt.Errorf("insert pending cod order: %w", err)
		}
	}
	return nil
}

// GetForUser loads an order owned by the user, including its lines.
func (r Repo) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (Order, error) {
	return r.get(ctx, `o.id = $1 AND o.user_id = $2`, orderID, userID)
}

// Get loads any order by identifier. Admin surface only.
func (r Repo) Get(ctx context.Context, orderID uuid.UUID) (Order, error) {
	return r.get(ctx, `o.id = $1`, orderID)
}

// GetByProviderOrderID locates a prepaid order by the payment provider's
// order identifier, used by the webhook.
func (r Repo) GetByProviderOrderID(ctx context.Context, providerOrderID string) (Order, error) {
	return r.get(ctx, `o.provider_order_id = $1`, providerOrderID)
}

func (r Repo) get(ctx context.Context, where string, args ...any) (Order, error) {
	var (
		o           Order
		address     []byte
		taxJSON     []byte
		couponCode  *string
		gstin       *string
		providerOID *string
		payStatus   *string
		paymentID   *string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT o.id, o.user_id, o.status, o.payment_method, o.shipping_address, o.gstin,
			o.items_price, o.original_items_price, o.catalog_discount, o.coupon_discount, o.coupon_code,
			o.tax, o.shipping_price, o.total_price,
			o.provider_order_id, o.payment_id, o.payment_status,
			o.is_paid, o.paid_at, o.is_delivered, o.delivered_at, o.created_at, o.updated_at
		FROM orders o WHERE `+where, args...).Scan(
		&o.ID, &o.UserID, &o.Status, &o.PaymentMethod, &address, &gstin,
		&o.Pricing.ItemsPrice, &o.Pricing.OriginalItemsPrice, &o.Pricing.CatalogDiscount,
		&o.Pricing.CouponDiscount, &couponCode,
		&taxJSON, &o.Pricing.ShippingPrice, &o.Pricing.TotalPrice,
		&providerOID, &paymentID, &payStatus,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	_ = json.Unmarshal(address, &o.Address)
	_ = json.Unmarshal(taxJSON, &o.Pricing.Tax)
	if couponCode != nil {
		o.Pricing.CouponCode = *couponCode
	}
	if gstin != nil {
		o.GSTIN = *gstin
	}
	if providerOID != nil {
		o.Payment.ProviderOrderID = *providerOID
	}
	if paymentID != nil {
		o.Payment.PaymentID = *paymentID
	}
	if payStatus != nil {
		o.Payment.Status = *payStatus
	}
	if o.Lines, err = r.lines(ctx, o.ID); err != nil {
		return Order{}, err
	}
	if o.PaymentMethod == PaymentCOD {
		cod, err := r.codVerification(ctx, o.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return Order{}, err
		}
		if err == nil {
			o.Cod = &cod
		}
	}
	return o, nil
}

func (r Repo) lines(ctx context.Context, orderID uuid.UUID) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, name, size, status, qty, unit_price, original_price, subtotal
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var (
			l    Line
			size *string
		)
		if err := rows.Scan(&l.ProductID, &l.Name, &size, &l.Status, &l.Qty, &l.UnitPrice, &l.OriginalPrice, &l.Subtotal); err != nil {
			return nil, err
		}
		if size != nil {
			l.Size = *size
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r Repo) codVerification(ctx context.Context, orderID uuid.UUID) (CodVerification, error) {
	var cod CodVerification
	err := r.DB.QueryRow(ctx, `
		SELECT code_hash, expires_at, verified, tries
		FROM pending_cod_orders WHERE order_id = $1`, orderID).
		Scan(&cod.CodeHash, &cod.ExpiresAt, &cod.Verified, &cod.Tries)
	return cod, err
}

// ListForUser returns a page of the user's orders, newest first, without
// lines.
func (r Repo) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, int64, error) {
	var total int64
	if err := r.DB.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, status, payment_method, total_price, is_paid, is_delivered, created_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentMethod, &o.Pricing.TotalPrice, &o.IsPaid, &o.IsDelivered, &o.CreatedAt); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// UpdateStatus moves an order to the next status. The guard clause repeats
// the state-machine check so concurrent writers cannot race past it.
func (r Repo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, orderID, from, to)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return r.carryLineStatus(ctx, orderID, from, to)
}

// carryLineStatus moves items still tracking the order-level status along
// with it. Items whose status diverged through an item-level update keep
// their own value.
func (r Repo) carryLineStatus(ctx context.Context, orderID uuid.UUID, from, to Status) error {
	if _, err := r.DB.Exec(ctx, `
		UPDATE order_items SET status = $3
		WHERE order_id = $1 AND status = $2`, orderID, from, to); err != nil {
		return fmt.Errorf("update order item statuses: %w", err)
	}
	return nil
}

// UpdateLineStatus changes a single item's status, letting it diverge from
// the order-level status.
func (r Repo) UpdateLineStatus(ctx context.Context, orderID, productID uuid.UUID, size string, to Status) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE order_items SET status = $4
		WHERE order_id = $1 AND product_id = $2 AND COALESCE(size, '') = $3`,
		orderID, productID, size, to)
	if err != nil {
		return fmt.Errorf("update order item status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid records the provider payment and flips the paid flags.
func (r Repo) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, status string, paidAt time.Time) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders SET is_paid = TRUE, paid_at = $2, payment_id = $3, payment_status = $4, updated_at = now()
		WHERE id = $1 AND is_paid = FALSE`, orderID, paidAt, paymentID, status)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDelivered flips the delivered flags.
func (r Repo) MarkDelivered(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders SET is_delivered = TRUE, delivered_at = $2, status = $3, updated_at = now()
		WHERE id = $1 AND status = $4`, orderID, at, StatusDelivered, StatusDispatched)
	if err != nil {
		return fmt.Errorf("mark order delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return r.carryLineStatus(ctx, orderID, StatusDispatched, StatusDelivered)
}

// MarkCodVerified flips the verification flag and promotes the order in one
// round trip each.
func (r Repo) MarkCodVerified(ctx context.Context, orderID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE pending_cod_orders SET verified = TRUE WHERE order_id = $1 AND verified = FALSE`, orderID)
	if err != nil {
		return fmt.Errorf("mark cod verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementCodTries bumps the failed-attempt counter and returns the new value.
func (r Repo) IncrementCodTries(ctx context.Context, orderID uuid.UUID) (int, error) {
	var tries int
	err := r.DB.QueryRow(ctx, `
		UPDATE pending_cod_orders SET tries = tries + 1 WHERE order_id = $1
		RETURNING tries`, orderID).Scan(&tries)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment cod tries: %w", err)
	}
	return tries, nil
}

// ExpiredPendingCod lists unverified COD orders whose verification window has
// lapsed. The purge worker cancels them in batches.
func (r Repo) ExpiredPendingCod(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.order_id FROM pending_cod_orders p
		JOIN orders o ON o.id = p.order_id
		WHERE p.verified = FALSE AND p.expires_at < $1 AND o.status = $2
		LIMIT $3`, now, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("expired pending cod: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
