package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates the requested cart or item could not be located.
var ErrNotFound = errors.New("cart: not found")

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo provides cart persistence.
type Repo struct {
	DB DBTX
}

// WithTx returns a repo bound to the transaction.
func (r Repo) WithTx(tx pgx.Tx) Repo {
	return Repo{DB: tx}
}

// ActiveByUser loads the user's open cart.
func (r Repo) ActiveByUser(ctx context.Context, userID uuid.UUID) (Cart, error) {
	var c Cart
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, expires_at FROM carts
		WHERE user_id = $1 AND expires_at > now()`, userID).Scan(&c.ID, &c.UserID, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("active cart: %w", err)
	}
	return c, nil
}

// Create opens a new cart for the user.
func (r Repo) Create(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (Cart, error) {
	c := Cart{ID: uuid.New(), UserID: userID, ExpiresAt: expiresAt}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO carts (id, user_id, expires_at) VALUES ($1, $2, $3)`,
		c.ID, c.UserID, c.ExpiresAt)
	if err != nil {
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return c, nil
}

// Touch extends the cart lifetime.
func (r Repo) Touch(ctx context.Context, cartID uuid.UUID, expiresAt time.Time) error {
	_, err := r.DB.Exec(ctx, `UPDATE carts SET expires_at = $2 WHERE id = $1`, cartID, expiresAt)
	return err
}

// Items lists the cart's lines.
func (r Repo) Items(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, cart_id, product_id, name, size, qty, unit_price, original_price, discount_pct
		FROM cart_items WHERE cart_id = $1 ORDER BY created_at`, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it       Item
			size     *string
			orig     *int64
			discount *float64
		)
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Name, &size, &it.Qty, &it.UnitPrice, &orig, &discount); err != nil {
			return nil, err
		}
		if size != nil {
			it.Size = *size
		}
		if orig != nil {
			it.OriginalPrice = *orig
		}
		if discount != nil {
			it.DiscountPct = *discount
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// FindItem locates a cart line by product and size.
func (r Repo) FindItem(ctx context.Context, cartID, productID uuid.UUID, size string) (Item, error) {
	var (
		it       Item
		sizeCol  *string
		orig     *int64
		discount *float64
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, cart_id, product_id, name, size, qty, unit_price, original_price, discount_pct
		FROM cart_items WHERE cart_id = $1 AND product_id = $2 AND COALESCE(size, '') = $3`,
		cartID, productID, size).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Name, &sizeCol, &it.Qty, &it.UnitPrice, &orig, &discount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, fmt.Errorf("find cart item: %w", err)
	}
	if sizeCol != nil {
		it.Size = *sizeCol
	}
	if orig != nil {
		it.OriginalPrice = *orig
	}
	if discount != nil {
		it.DiscountPct = *discount
	}
	return it, nil
}

// InsertItem writes a new cart line.
func (r Repo) InsertItem(ctx context.Context, it Item) error {
	var (
		size     *string
		orig     *int64
		discount *float64
	)
	if it.Size != "" {
		size = &it.Size
	}
	if it.OriginalPrice > 0 {
		v := int64(it.OriginalPrice)
		orig = &v
	}
	if it.DiscountPct > 0 {
		discount = &it.DiscountPct
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, name, size, qty, unit_price, original_price, discount_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		it.ID, it.CartID, it.ProductID, it.Name, size, it.Qty, it.UnitPrice, orig, discount)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

// UpdateItemQty replaces the quantity of a cart line.
func (r Repo) UpdateItemQty(ctx context.Context, itemID uuid.UUID, qty int) error {
	tag, err := r.DB.Exec(ctx, `UPDATE cart_items SET qty = $2 WHERE id = $1`, itemID, qty)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes one cart line.
func (r Repo) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes all lines for the user's cart. Called after a finalized
// checkout inside the same transaction.
func (r Repo) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
