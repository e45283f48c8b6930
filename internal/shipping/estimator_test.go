package shipping_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/shipping"
)

type stubClient struct {
	rates []shipping.Rate
	err   error
	last  shipping.RateReq
}

func (s *stubClient) Rates(ctx context.Context, r shipping.RateReq) ([]shipping.Rate, error) {
	s.last = r
	return s.rates, s.err
}

func TestEstimateTrustsCallerPrice(t *testing.T) {
	t.Parallel()

	client := &stubClient{err: errors.New("should not be called")}
	est := shipping.Estimator{Client: client, OriginPIN: "560001"}
	cost, err := est.Estimate(context.Background(), "110001", 750, shipping.ModePrepaid, 12_500)
	require.NoError(t, err)
	require.EqualValues(t, 12_500, cost)
	require.Empty(t, client.last.DestinationPIN)
}

func TestEstimatePicksCheapestRate(t *testing.T) {
	t.Parallel()

	client := &stubClient{rates: []shipping.Rate{
		{Courier: "bluedart", Cost: 19_900},
		{Courier: "delhivery", Cost: 9_900},
	}}
	est := shipping.Estimator{Client: client, OriginPIN: "560001"}
	cost, err := est.Estimate(context.Background(), "110001", 750, shipping.ModeCOD, -1)
	require.NoError(t, err)
	require.EqualValues(t, 9_900, cost)
	require.Equal(t, shipping.ModeCOD, client.last.Mode)
	require.Equal(t, 750, client.last.WeightGram)
}

func TestEstimateSurfacesClientError(t *testing.T) {
	t.Parallel()

	client := &stubClient{err: errors.New("carrier down")}
	est := shipping.Estimator{Client: client}
	_, err := est.Estimate(context.Background(), "110001", 500, shipping.ModePrepaid, -1)
	require.Error(t, err)
}

func TestChargeableWeight(t *testing.T) {
	t.Parallel()

	parcels := []shipping.Parcel{
		// dead weight dominates: 500g vs 200g volumetric
		{Dims: shipping.Dimensions{LengthCM: 10, WidthCM: 10, HeightCM: 10, DeadWeightG: 500}, Qty: 2},
		// volumetric dominates: 30*20*10/5 = 1200g vs 300g dead
		{Dims: shipping.Dimensions{LengthCM: 30, WidthCM: 20, HeightCM: 10, DeadWeightG: 300}, Qty: 1},
	}
	require.Equal(t, 2_200, shipping.ChargeableWeightG(parcels))
}

func TestChargeableWeightSkipsZeroQty(t *testing.T) {
	t.Parallel()

	parcels := []shipping.Parcel{{Dims: shipping.Dimensions{DeadWeightG: 900}, Qty: 0}}
	require.Zero(t, shipping.ChargeableWeightG(parcels))
}
