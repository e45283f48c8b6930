package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aranya-labs/backend-vastra/internal/cart"
	"github.com/aranya-labs/backend-vastra/internal/catalog"
	"github.com/aranya-labs/backend-vastra/internal/order"
)

// StockTx mutates stock inside a finalization transaction.
type StockTx interface {
	DecrementStock(ctx context.Context, productID uuid.UUID, sizeLabel string, qty int) error
}

// OrderTx persists order state inside a finalization transaction.
type OrderTx interface {
	Insert(ctx context.Context, o order.Order) error
	MarkCodVerified(ctx context.Context, orderID uuid.UUID) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to order.Status) error
}

// CartTx clears the cart inside a finalization transaction.
type CartTx interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

// TxStores groups the repositories bound to one transaction.
type TxStores struct {
	Catalog StockTx
	Orders  OrderTx
	Carts   CartTx
}

// TxRunner executes fn atomically against transaction-scoped stores.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(TxStores) error) error
}

// PgTx is the pgx-backed TxRunner used in production wiring.
type PgTx struct {
	Pool    *pgxpool.Pool
	Catalog catalog.Repo
	Orders  order.Repo
	Carts   cart.Repo
}

// WithinTx opens a transaction, rebinds the repos to it and commits when fn
// succeeds.
func (p PgTx) WithinTx(ctx context.Context, fn func(TxStores) error) error {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = fn(TxStores{
		Catalog: p.Catalog.WithTx(tx),
		Orders:  p.Orders.WithTx(tx),
		Carts:   p.Carts.WithTx(tx),
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}
	return nil
}
