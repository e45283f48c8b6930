package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aranya-labs/backend-vastra/internal/catalog"
	"github.com/aranya-labs/backend-vastra/internal/events"
)

// Service covers order lifecycle operations after checkout: reads,
// cancellation and the fulfilment transitions.
type Service struct {
	Pool    *pgxpool.Pool
	Repo    Repo
	Catalog catalog.Repo
	Bus     *events.Bus
	Logger  zerolog.Logger
}

// ErrInvalidTransition is returned when a status change breaks the lifecycle.
var ErrInvalidTransition = errors.New("order: invalid status transition")

// ListForUser pages the user's order history.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]Order, int64, error) {
	if s == nil {
		return nil, 0, errors.New("order service not configured")
	}
	return s.Repo.ListForUser(ctx, userID, perPage, (page-1)*perPage)
}

// GetForUser loads one order owned by the user.
func (s *Service) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (Order, error) {
	if s == nil {
		return Order{}, errors.New("order service not configured")
	}
	return s.Repo.GetForUser(ctx, orderID, userID)
}

// GetByProviderOrderID locates a prepaid order by the payment provider's
// reference.
func (s *Service) GetByProviderOrderID(ctx context.Context, providerOrderID string) (Order, error) {
	if s == nil {
		return Order{}, errors.New("order service not configured")
	}
	return s.Repo.GetByProviderOrderID(ctx, providerOrderID)
}

// MarkPaid records provider settlement on the order.
func (s *Service) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, status string, paidAt time.Time) error {
	if s == nil {
		return errors.New("order service not configured")
	}
	return s.Repo.MarkPaid(ctx, orderID, paymentID, status, paidAt)
}

// Cancel cancels an order before dispatch. Stock decremented at checkout
// (prepaid) or verification (COD) is restored in the same transaction.
func (s *Service) Cancel(ctx context.Context, orderID, userID uuid.UUID) error {
	if s == nil || s.Pool == nil {
		return errors.New("order service not configured")
	}
	ord, err := s.Repo.GetForUser(ctx, orderID, userID)
	if err != nil {
		return err
	}
	return s.cancel(ctx, ord)
}

func (s *Service) cancel(ctx context.Context, ord Order) error {
	if !ord.Status.CanTransition(StatusCancelled) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ord.Status, StatusCancelled)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cancel order: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.Repo.WithTx(tx).UpdateStatus(ctx, ord.ID, ord.Status, StatusCancelled); err != nil {
		return err
	}
	if stockWasReserved(ord) {
		catalogTx := s.Catalog.WithTx(tx)
		for _, line := range ord.Lines {
			if err := catalogTx.RestoreStock(ctx, line.ProductID, line.Size, line.Qty); err != nil {
				return fmt.Errorf("cancel order: restore stock: %w", err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cancel order: commit: %w", err)
	}

	if _, err := s.Bus.Emit(ctx, events.TopicOrderCanceled, ord.ID, map[string]any{
		"userId": ord.UserID, "paymentMethod": ord.PaymentMethod,
	}); err != nil {
		s.Logger.Warn().Err(err).Stringer("orderId", ord.ID).Msg("order canceled event emit failed")
	}
	return nil
}

// stockWasReserved reports whether the order currently holds decremented
// stock: prepaid orders reserve at checkout, COD orders only once verified.
func stockWasReserved(o Order) bool {
	if o.PaymentMethod == PaymentPrepaid {
		return true
	}
	return o.Cod != nil && o.Cod.Verified
}

// Advance moves an order one step forward through the fulfilment ladder.
// Admin surface.
func (s *Service) Advance(ctx context.Context, orderID uuid.UUID, next Status) error {
	if s == nil {
		return errors.New("order service not configured")
	}
	ord, err := s.Repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if next == StatusCancelled {
		return s.cancel(ctx, ord)
	}
	if _, err := ord.Status.Transition(next); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if next == StatusDelivered {
		if err := s.Repo.MarkDelivered(ctx, ord.ID, nowUTC()); err != nil {
			return err
		}
	} else if err := s.Repo.UpdateStatus(ctx, ord.ID, ord.Status, next); err != nil {
		return err
	}

	topic := ""
	switch next {
	case StatusDispatched:
		topic = events.TopicOrderDispatched
	case StatusDelivered:
		topic = events.TopicOrderDelivered
	}
	if topic != "" {
		if _, err := s.Bus.Emit(ctx, topic, ord.ID, map[string]any{"status": next}); err != nil {
			s.Logger.Warn().Err(err).Stringer("orderId", ord.ID).Str("topic", topic).Msg("order event emit failed")
		}
	}
	return nil
}

// AdvanceLine moves a single item of an order to a new status, independently
// of the order-level status. Used for partial fulfilment, where one item
// ships or is cancelled ahead of the rest. Admin surface.
func (s *Service) AdvanceLine(ctx context.Context, orderID, productID uuid.UUID, size string, next Status) error {
	if s == nil {
		return errors.New("order service not configured")
	}
	ord, err := s.Repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	var line *Line
	for i := range ord.Lines {
		if ord.Lines[i].ProductID == productID && ord.Lines[i].Size == size {
			line = &ord.Lines[i]
			break
		}
	}
	if line == nil {
		return ErrNotFound
	}
	if _, err := line.Status.Transition(next); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return s.Repo.UpdateLineStatus(ctx, orderID, productID, size, next)
}

// PurgeExpiredCod cancels unverified COD orders whose window lapsed. Returns
// the number of orders cancelled; runs from the worker on a schedule.
func (s *Service) PurgeExpiredCod(ctx context.Context, batch int) (int, error) {
	if s == nil {
		return 0, errors.New("order service not configured")
	}
	ids, err := s.Repo.ExpiredPendingCod(ctx, nowUTC(), batch)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, id := range ids {
		if err := s.Repo.UpdateStatus(ctx, id, StatusPending, StatusCancelled); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return purged, err
		}
		purged++
		if _, err := s.Bus.Emit(ctx, events.TopicOrderCanceled, id, map[string]any{"reason": "cod_verification_expired"}); err != nil {
			s.Logger.Warn().Err(err).Stringer("orderId", id).Msg("purge event emit failed")
		}
	}
	return purged, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
