package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aranya-labs/backend-vastra/internal/pricing"
	"github.com/aranya-labs/backend-vastra/internal/shipping"
)

// ErrInsufficientStock is returned when a conditional stock decrement matches
// no row, i.e. the requested quantity exceeds what is available.
var ErrInsufficientStock = errors.New("catalog: insufficient stock")

// ErrNotFound indicates the product does not exist.
var ErrNotFound = errors.New("catalog: product not found")

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx so repo methods run both
// inside and outside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo provides product persistence.
type Repo struct {
	DB DBTX
}

// WithTx returns a repo bound to the transaction.
func (r Repo) WithTx(tx pgx.Tx) Repo {
	return Repo{DB: tx}
}

// StockSnapshots loads the stock view for the provided products, restricted
// to name, variant SKU and size quantities. Queried fresh per checkout
// attempt; never cached.
func (r Repo) StockSnapshots(ctx context.Context, ids []uuid.UUID) ([]StockSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.name, pv.sku, vs.label, vs.qty
		FROM products p
		JOIN product_variants pv ON pv.product_id = p.id
		JOIN variant_sizes vs ON vs.variant_id = pv.id
		WHERE p.id = ANY($1)
		ORDER BY p.id, pv.sku, vs.label`, ids)
	if err != nil {
		return nil, fmt.Errorf("stock snapshots: %w", err)
	}
	defer rows.Close()

	byProduct := make(map[uuid.UUID]*StockSnapshot)
	order := make([]uuid.UUID, 0, len(ids))
	for rows.Next() {
		var (
			id    uuid.UUID
			name  string
			sku   string
			label string
			qty   int
		)
		if err := rows.Scan(&id, &name, &sku, &label, &qty); err != nil {
			return nil, err
		}
		snap, ok := byProduct[id]
		if !ok {
			snap = &StockSnapshot{ProductID: id, Name: name}
			byProduct[id] = snap
			order = append(order, id)
		}
		if n := len(snap.Variants); n == 0 || snap.Variants[n-1].SKU != sku {
			snap.Variants = append(snap.Variants, Variant{SKU: sku})
		}
		last := &snap.Variants[len(snap.Variants)-1]
		last.Sizes = append(last.Sizes, SizeStock{Label: label, Qty: qty})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	snaps := make([]StockSnapshot, 0, len(order))
	for _, id := range order {
		snaps = append(snaps, *byProduct[id])
	}
	return snaps, nil
}

// PricingFor loads the pricing view (base price plus per-size prices) for the
// provided products.
func (r Repo) PricingFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.ProductPricing, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]pricing.ProductPricing{}, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.base_price, vs.label, vs.price
		FROM products p
		LEFT JOIN product_variants pv ON pv.product_id = p.id
		LEFT JOIN variant_sizes vs ON vs.variant_id = pv.id
		WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("pricing for products: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]pricing.ProductPricing)
	for rows.Next() {
		var (
			id        uuid.UUID
			basePrice int64
			label     *string
			price     *int64
		)
		if err := rows.Scan(&id, &basePrice, &label, &price); err != nil {
			return nil, err
		}
		entry, ok := result[id]
		if !ok {
			entry = pricing.ProductPricing{BasePrice: basePrice, SizePrices: map[string]pricing.Money{}}
		}
		if label != nil && price != nil && *price > 0 {
			entry.SizePrices[*label] = *price
		}
		result[id] = entry
	}
	return result, rows.Err()
}

// DimsFor loads shipping dimensions for the provided products.
func (r Repo) DimsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]shipping.Dimensions, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]shipping.Dimensions{}, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, length_cm, width_cm, height_cm, dead_weight_g
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("dims for products: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]shipping.Dimensions)
	for rows.Next() {
		var (
			id   uuid.UUID
			dims shipping.Dimensions
		)
		if err := rows.Scan(&id, &dims.LengthCM, &dims.WidthCM, &dims.HeightCM, &dims.DeadWeightG); err != nil {
			return nil, err
		}
		result[id] = dims
	}
	return result, rows.Err()
}

// DecrementStock atomically subtracts qty from one size row, guarded by a
// quantity floor. Zero matched rows means the stock is short; correctness does
// not depend on the transaction isolation level.
func (r Repo) DecrementStock(ctx context.Context, productID uuid.UUID, sizeLabel string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("decrement stock: qty must be positive")
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE variant_sizes SET qty = qty - $3
		WHERE id = (
			SELECT vs.id FROM variant_sizes vs
			JOIN product_variants pv ON pv.id = vs.variant_id
			WHERE pv.product_id = $1 AND vs.label = $2 AND vs.qty >= $3
			ORDER BY vs.qty DESC
			LIMIT 1
		)`, productID, sizeLabel, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// RestoreStock returns previously decremented quantity, used when an order is
// cancelled before dispatch.
func (r Repo) RestoreStock(ctx context.Context, productID uuid.UUID, sizeLabel string, qty int) error {
	if qty <= 0 {
		return nil
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE variant_sizes SET qty = qty + $3
		WHERE id = (
			SELECT vs.id FROM variant_sizes vs
			JOIN product_variants pv ON pv.id = vs.variant_id
			WHERE pv.product_id = $1 AND vs.label = $2
			ORDER BY vs.qty ASC
			LIMIT 1
		)`, productID, sizeLabel, qty)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert writes a normalised product and replaces its variant tree. Used by
// the seeder and admin import.
func (r Repo) Upsert(ctx context.Context, p Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("upsert product: encode images: %w", err)
	}
	if _, err := r.DB.Exec(ctx, `
		INSERT INTO products (id, name, slug, category, base_price, discount_pct, images, length_cm, width_cm, height_cm, dead_weight_g)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, slug = EXCLUDED.slug, category = EXCLUDED.category,
			base_price = EXCLUDED.base_price, discount_pct = EXCLUDED.discount_pct,
			images = EXCLUDED.images, length_cm = EXCLUDED.length_cm, width_cm = EXCLUDED.width_cm,
			height_cm = EXCLUDED.height_cm, dead_weight_g = EXCLUDED.dead_weight_g,
			updated_at = now()`,
		p.ID, p.Name, p.Slug, p.Category, p.BasePrice, p.DiscountPct, images,
		p.Dims.LengthCM, p.Dims.WidthCM, p.Dims.HeightCM, p.Dims.DeadWeightG); err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	if _, err := r.DB.Exec(ctx, `DELETE FROM product_variants WHERE product_id = $1`, p.ID); err != nil {
		return fmt.Errorf("upsert product: clear variants: %w", err)
	}
	for _, v := range p.Variants {
		variantID := uuid.New()
		if _, err := r.DB.Exec(ctx, `
			INSERT INTO product_variants (id, product_id, sku) VALUES ($1, $2, $3)`,
			variantID, p.ID, v.SKU); err != nil {
			return fmt.Errorf("upsert product: insert variant: %w", err)
		}
		for _, size := range v.Sizes {
			if _, err := r.DB.Exec(ctx, `
				INSERT INTO variant_sizes (id, variant_id, label, qty, price)
				VALUES ($1, $2, $3, $4, $5)`,
				uuid.New(), variantID, size.Label, size.Qty, size.Price); err != nil {
				return fmt.Errorf("upsert product: insert size: %w", err)
			}
		}
	}
	return nil
}

// GetBySlug loads a single product with its variants.
func (r Repo) GetBySlug(ctx context.Context, slug string) (Product, error) {
	var (
		p      Product
		images []byte
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, slug, category, base_price, discount_pct, images,
			length_cm, width_cm, height_cm, dead_weight_g
		FROM products WHERE slug = $1`, slug).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Category, &p.BasePrice, &p.DiscountPct, &images,
		&p.Dims.LengthCM, &p.Dims.WidthCM, &p.Dims.HeightCM, &p.Dims.DeadWeightG)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	if len(images) > 0 {
		_ = json.Unmarshal(images, &p.Images)
	}
	snaps, err := r.StockSnapshots(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return Product{}, err
	}
	if len(snaps) > 0 {
		p.Variants = snaps[0].Variants
	}
	return p, nil
}

// List returns a page of products ordered by name.
func (r Repo) List(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, slug, category, base_price, discount_pct, images
		FROM products ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var (
			p      Product
			images []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Category, &p.BasePrice, &p.DiscountPct, &images); err != nil {
			return nil, err
		}
		if len(images) > 0 {
			_ = json.Unmarshal(images, &p.Images)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
