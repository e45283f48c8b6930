package coupon_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/coupon"
)

type stubStore struct {
	coupon    coupon.Coupon
	userUsage int64
	orderUsed bool
	inserted  int
	increased int
}

func (s *stubStore) GetCouponByCode(ctx context.Context, code string) (coupon.Coupon, error) {
	return s.coupon, nil
}

func (s *stubStore) CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	return s.userUsage, nil
}

func (s *stubStore) HasUsageForOrder(ctx context.Context, couponID, orderID uuid.UUID) (bool, error) {
	return s.orderUsed, nil
}

func (s *stubStore) InsertUsage(ctx context.Context, couponID, orderID, userID uuid.UUID, discount int64) error {
	s.inserted++
	s.orderUsed = true
	return nil
}

func (s *stubStore) IncrementUsedCount(ctx context.Context, couponID uuid.UUID) error {
	s.increased++
	return nil
}

func activeCoupon() coupon.Coupon {
	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	percent := int32(1000)
	return coupon.Coupon{
		ID:         uuid.New(),
		Code:       "WELCOME10",
		Kind:       "percent",
		PercentBps: &percent,
		ValidFrom:  &from,
		ValidTo:    &to,
	}
}

func TestApplyPercentCoupon(t *testing.T) {
	t.Parallel()

	store := &stubStore{coupon: activeCoupon()}
	svc := &coupon.Service{Store: store}
	applied, err := svc.Apply(context.Background(), "WELCOME10", uuid.New(), []coupon.Item{
		{ProductID: uuid.New(), Subtotal: 100_000},
	})
	require.NoError(t, err)
	require.EqualValues(t, 10_000, applied.Discount)
	require.EqualValues(t, 90_000, applied.TotalAfterDiscount)
	require.EqualValues(t, 1000, applied.DiscountPercentBps)
}

func TestApplyRespectsPerUserLimit(t *testing.T) {
	t.Parallel()

	c := activeCoupon()
	limit := int32(1)
	c.PerUserLimit = &limit
	store := &stubStore{coupon: c, userUsage: 1}
	svc := &coupon.Service{Store: store}
	_, err := svc.Apply(context.Background(), "WELCOME10", uuid.New(), []coupon.Item{
		{ProductID: uuid.New(), Subtotal: 100_000},
	})
	require.ErrorIs(t, err, coupon.ErrPerUserLimitReached)
}

func TestSettleIsIdempotent(t *testing.T) {
	t.Parallel()

	store := &stubStore{coupon: activeCoupon()}
	svc := &coupon.Service{Store: store}
	orderID := uuid.New()
	userID := uuid.New()
	require.NoError(t, svc.Settle(context.Background(), "WELCOME10", orderID, userID, 10_000))
	require.NoError(t, svc.Settle(context.Background(), "WELCOME10", orderID, userID, 10_000))
	require.Equal(t, 1, store.inserted)
	require.Equal(t, 1, store.increased)
}
