package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo is the Postgres-backed coupon store.
type Repo struct {
	DB DBTX
}

// GetCouponByCode loads a coupon by its (case-sensitive) code.
func (r Repo) GetCouponByCode(ctx context.Context, code string) (Coupon, error) {
	const q = `
SELECT id, code, kind, value, percent_bps, min_spend, usage_limit, used_count,
       per_user_limit, valid_from, valid_to, product_ids
FROM coupons WHERE code = $1`
	var c Coupon
	err := r.DB.QueryRow(ctx, q, code).Scan(
		&c.ID, &c.Code, &c.Kind, &c.Value, &c.PercentBps, &c.MinSpend,
		&c.UsageLimit, &c.UsedCount, &c.PerUserLimit, &c.ValidFrom, &c.ValidTo,
		&c.ProductIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

// CountUsageByUser reports how many times the user already redeemed the coupon.
func (r Repo) CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`,
		couponID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count coupon usage: %w", err)
	}
	return n, nil
}

// HasUsageForOrder reports whether the coupon was already settled for the order.
func (r Repo) HasUsageForOrder(ctx context.Context, couponID, orderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM coupon_usages WHERE coupon_id = $1 AND order_id = $2)`,
		couponID, orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check coupon usage: %w", err)
	}
	return exists, nil
}

// InsertUsage records a settled redemption.
func (r Repo) InsertUsage(ctx context.Context, couponID, orderID, userID uuid.UUID, discount int64) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO coupon_usages (id, coupon_id, order_id, user_id, discount, used_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		uuid.New(), couponID, orderID, userID, discount,
	)
	if err != nil {
		return fmt.Errorf("insert coupon usage: %w", err)
	}
	return nil
}

// IncrementUsedCount bumps the global redemption counter.
func (r Repo) IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`,
		couponID,
	)
	if err != nil {
		return fmt.Errorf("increment coupon used count: %w", err)
	}
	return nil
}
