package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aranya-labs/backend-vastra/internal/resilience"
)

// Shiprocket quotes courier rates from the Shiprocket serviceability API.
type Shiprocket struct {
	BaseURL string
	Token   string
	HTTP    *resilience.HTTPClient
}

type shiprocketRateResponse struct {
	Data struct {
		AvailableCourierCompanies []struct {
			CourierName string  `json:"courier_name"`
			Rate        float64 `json:"rate"`
			CODCharges  float64 `json:"cod_charges"`
			ETD         string  `json:"etd"`
		} `json:"available_courier_companies"`
	} `json:"data"`
}

// Rates queries courier serviceability for the lane and converts the quoted
// rupee amounts into minor units.
func (s Shiprocket) Rates(ctx context.Context, r RateReq) ([]Rate, error) {
	if s.HTTP == nil {
		return nil, fmt.Errorf("shiprocket: http client not configured")
	}
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = "https://apiv2.shiprocket.in"
	}
	params := url.Values{}
	params.Set("pickup_postcode", r.OriginPIN)
	params.Set("delivery_postcode", r.DestinationPIN)
	params.Set("weight", strconv.FormatFloat(float64(r.WeightGram)/1000, 'f', 3, 64))
	if r.Mode == ModeCOD {
		params.Set("cod", "1")
	} else {
		params.Set("cod", "0")
	}
	endpoint := base + "/v1/external/courier/serviceability/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTP.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("shiprocket rates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shiprocket rates: unexpected status %s", resp.Status)
	}

	var payload shiprocketRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("shiprocket rates: decode response: %w", err)
	}
	companies := payload.Data.AvailableCourierCompanies
	if len(companies) == 0 {
		return nil, fmt.Errorf("shiprocket rates: no couriers serve %s", r.DestinationPIN)
	}
	rates := make([]Rate, 0, len(companies))
	for _, c := range companies {
		amount := c.Rate
		if r.Mode == ModeCOD {
			amount += c.CODCharges
		}
		rates = append(rates, Rate{
			Courier: c.CourierName,
			Cost:    int64(math.Round(amount * 100)),
			ETD:     c.ETD,
		})
	}
	return rates, nil
}
