package shipping_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aranya-labs/backend-vastra/internal/resilience"
	"github.com/aranya-labs/backend-vastra/internal/shipping"
)

func TestShiprocketRates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "560001", r.URL.Query().Get("pickup_postcode"))
		require.Equal(t, "110001", r.URL.Query().Get("delivery_postcode"))
		require.Equal(t, "1", r.URL.Query().Get("cod"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"available_courier_companies":[
			{"courier_name":"delhivery","rate":99.0,"cod_charges":40.0,"etd":"3-5"},
			{"courier_name":"bluedart","rate":199.0,"cod_charges":40.0,"etd":"1-2"}
		]}}`))
	}))
	defer srv.Close()

	client := shipping.Shiprocket{
		BaseURL: srv.URL,
		Token:   "test-token",
		HTTP: &resilience.HTTPClient{
			Client:      srv.Client(),
			Breaker:     resilience.NewBreaker(10, 0.9, time.Minute),
			MaxAttempts: 1,
		},
	}
	rates, err := client.Rates(context.Background(), shipping.RateReq{
		OriginPIN:      "560001",
		DestinationPIN: "110001",
		WeightGram:     1000,
		Mode:           shipping.ModeCOD,
	})
	require.NoError(t, err)
	require.Len(t, rates, 2)
	require.EqualValues(t, 13_900, rates[0].Cost) // 99 + 40 COD charge, in paise
	require.Equal(t, "delhivery", rates[0].Courier)
}

func TestShiprocketRatesEmptyLane(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"available_courier_companies":[]}}`))
	}))
	defer srv.Close()

	client := shipping.Shiprocket{
		BaseURL: srv.URL,
		HTTP:    &resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
	}
	_, err := client.Rates(context.Background(), shipping.RateReq{DestinationPIN: "999999"})
	require.Error(t, err)
}
