package shipping

import "context"

// Mode selects the payment collection mode quoted to the carrier. COD rates
// usually differ from prepaid rates, so this is a required input.
type Mode string

const (
	ModePrepaid Mode = "prepaid"
	ModeCOD     Mode = "cod"
)

// RateReq describes a shipping rate request.
type RateReq struct {
	OriginPIN      string
	DestinationPIN string
	WeightGram     int
	Mode           Mode
}

// Rate describes a returned shipping rate option. Cost is in minor units.
type Rate struct {
	Courier string `json:"courier"`
	Service string `json:"service"`
	Cost    int64  `json:"cost"`
	ETD     string `json:"etd"`
}

// Client defines the behaviour required to quote shipping rates.
type Client interface {
	Rates(ctx context.Context, r RateReq) ([]Rate, error)
}

// MockClient returns static rates and is useful for testing and development.
// COD carries a flat surcharge over the prepaid rate.
type MockClient struct{}

// Rates returns canned rates regardless of destination.
func (MockClient) Rates(ctx context.Context, r RateReq) ([]Rate, error) {
	_ = ctx
	surcharge := int64(0)
	if r.Mode == ModeCOD {
		surcharge = 4_000
	}
	return []Rate{
		{Courier: "delhivery", Service: "SURFACE", Cost: 9_900 + surcharge, ETD: "3-5"},
		{Courier: "bluedart", Service: "AIR", Cost: 19_900 + surcharge, ETD: "1-2"},
	}, nil
}
