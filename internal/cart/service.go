package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aranya-labs/backend-vastra/internal/catalog"
	"github.com/aranya-labs/backend-vastra/internal/pricing"
)

// Service encapsulates cart domain operations.
type Service struct {
	Repo    Repo
	Catalog catalog.Repo
	TTL     time.Duration
	Now     func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnsureCart loads or creates the user's active cart.
func (s *Service) EnsureCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	if s == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	expires := s.now().Add(s.ttl())
	c, err := s.Repo.ActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.Repo.Create(ctx, userID, expires)
		}
		return Cart{}, err
	}
	_ = s.Repo.Touch(ctx, c.ID, expires)
	return c, nil
}

// AddItem inserts or increments a cart line. Pricing comes from the catalog,
// not the caller.
func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, size string, qty int) error {
	if s == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive")
	}
	c, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return err
	}
	existing, err := s.Repo.FindItem(ctx, c.ID, productID, size)
	if err == nil {
		return s.Repo.UpdateItemQty(ctx, existing.ID, existing.Qty+qty)
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	pricings, err := s.Catalog.PricingFor(ctx, []uuid.UUID{productID})
	if err != nil {
		return err
	}
	pp, ok := pricings[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	unit := pp.BasePrice
	if size != "" {
		if sp, ok := pp.SizePrices[size]; ok && sp > 0 {
			unit = sp
		}
	}
	snaps, err := s.Catalog.StockSnapshots(ctx, []uuid.UUID{productID})
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return catalog.ErrNotFound
	}
	name := snaps[0].Name
	return s.Repo.InsertItem(ctx, Item{
		ID:        uuid.New(),
		CartID:    c.ID,
		ProductID: productID,
		Name:      name,
		Size:      size,
		Qty:       qty,
		UnitPrice: pricing.Money(unit),
	})
}

// UpdateQty replaces the quantity of a cart line.
func (s *Service) UpdateQty(ctx context.Context, itemID uuid.UUID, qty int) error {
	if s == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive")
	}
	return s.Repo.UpdateItemQty(ctx, itemID, qty)
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if s == nil {
		return errors.New("cart service not configured")
	}
	c, err := s.Repo.ActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.Repo.DeleteItem(ctx, c.ID, itemID)
}

// Items returns the user's current cart lines. An expired or absent cart
// yields an empty slice.
func (s *Service) Items(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	if s == nil {
		return nil, errors.New("cart service not configured")
	}
	c, err := s.Repo.ActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.Repo.Items(ctx, c.ID)
}
