package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrNoRates indicates the carrier returned an empty rate list.
var ErrNoRates = errors.New("shipping: no rates available")

// Estimator quotes the shipping charge for a checkout. A caller-provided
// price is trusted when non-negative (the storefront computes weight with
// more accurate per-item dimensions); otherwise the cheapest carrier rate for
// the lane wins. Estimator failures never abort a checkout — the caller
// decides whether to fall back or re-prompt.
type Estimator struct {
	Client    Client
	OriginPIN string
	Logger    *zerolog.Logger
}

// Estimate returns the shipping cost in minor units.
func (e Estimator) Estimate(ctx context.Context, destPIN string, weightGram int, mode Mode, callerPrice int64) (int64, error) {
	if callerPrice >= 0 {
		return callerPrice, nil
	}
	if e.Client == nil {
		return 0, errors.New("shipping: rate client not configured")
	}
	rates, err := e.Client.Rates(ctx, RateReq{
		OriginPIN:      e.OriginPIN,
		DestinationPIN: destPIN,
		WeightGram:     weightGram,
		Mode:           mode,
	})
	if err != nil {
		if e.Logger != nil {
			e.Logger.Warn().Err(err).Str("destination_pin", destPIN).Int("weight_g", weightGram).Msg("shipping estimate failed")
		}
		return 0, fmt.Errorf("estimate shipping: %w", err)
	}
	if len(rates) == 0 {
		return 0, ErrNoRates
	}
	cheapest := rates[0].Cost
	for _, r := range rates[1:] {
		if r.Cost < cheapest {
			cheapest = r.Cost
		}
	}
	return cheapest, nil
}
