package shipping

import "math"

// Dimensions describes the shipping profile of a single unit of a product.
type Dimensions struct {
	LengthCM    float64
	WidthCM     float64
	HeightCM    float64
	DeadWeightG int
}

// Parcel is one cart line expressed for weight calculation.
type Parcel struct {
	Dims Dimensions
	Qty  int
}

// VolumetricWeightG converts dimensions into grams using the common courier
// divisor of 5000 cm³/kg.
func VolumetricWeightG(d Dimensions) int {
	cubic := d.LengthCM * d.WidthCM * d.HeightCM
	if cubic <= 0 {
		return 0
	}
	return int(math.Ceil(cubic / 5))
}

// ChargeableWeightG sums the per-unit chargeable weight (the greater of dead
// and volumetric weight) over every parcel and quantity.
func ChargeableWeightG(parcels []Parcel) int {
	var total int
	for _, p := range parcels {
		if p.Qty <= 0 {
			continue
		}
		unit := p.Dims.DeadWeightG
		if vol := VolumetricWeightG(p.Dims); vol > unit {
			unit = vol
		}
		total += unit * p.Qty
	}
	return total
}
