package tax

import "strings"

// Money mirrors the pricing representation: minor units (paise).
type Money = int64

// Breakdown is the GST split applied to an order.
type Breakdown struct {
	CGST  Money `json:"cgst"`
	SGST  Money `json:"sgst"`
	IGST  Money `json:"igst"`
	Total Money `json:"total"`
}

// SplitGST computes the GST components for a taxable amount. When the
// destination state matches the origin state (case-insensitive) the rate is
// split evenly into CGST and SGST; otherwise the whole rate applies as IGST.
// A missing or unknown destination is treated as inter-state. Total is always
// the exact sum of the components.
func SplitGST(taxable Money, rateBPS int, originState, destState string) Breakdown {
	if taxable < 0 {
		taxable = 0
	}
	if rateBPS < 0 {
		rateBPS = 0
	}
	origin := strings.TrimSpace(originState)
	dest := strings.TrimSpace(destState)
	if origin != "" && dest != "" && strings.EqualFold(origin, dest) {
		half := (taxable * Money(rateBPS/2)) / 10000
		return Breakdown{CGST: half, SGST: half, Total: half * 2}
	}
	igst := (taxable * Money(rateBPS)) / 10000
	return Breakdown{IGST: igst, Total: igst}
}
