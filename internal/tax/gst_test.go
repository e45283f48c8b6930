package tax

import "testing"

func TestSplitGSTIntraState(t *testing.T) {
	b := SplitGST(100_000, 1800, "Karnataka", "karnataka")
	if b.CGST != 9_000 || b.SGST != 9_000 || b.IGST != 0 {
		t.Fatalf("intra-state split: %+v", b)
	}
	if b.CGST+b.SGST+b.IGST != b.Total {
		t.Fatalf("components do not sum to total: %+v", b)
	}
}

func TestSplitGSTInterState(t *testing.T) {
	b := SplitGST(100_000, 1800, "Karnataka", "Maharashtra")
	if b.CGST != 0 || b.SGST != 0 {
		t.Fatalf("inter-state split: %+v", b)
	}
	if b.IGST != 18_000 || b.Total != 18_000 {
		t.Fatalf("igst: %+v", b)
	}
}

func TestSplitGSTMissingStateIsInterState(t *testing.T) {
	b := SplitGST(50_000, 1800, "Karnataka", "")
	if b.IGST != b.Total || b.CGST != 0 || b.SGST != 0 {
		t.Fatalf("missing destination should be IGST: %+v", b)
	}
}

func TestSplitGSTComponentsAlwaysSum(t *testing.T) {
	for _, taxable := range []Money{0, 1, 99, 12_345, 99_999, 1_000_001} {
		for _, dest := range []string{"Karnataka", "Kerala", ""} {
			b := SplitGST(taxable, 1800, "Karnataka", dest)
			if b.CGST+b.SGST+b.IGST != b.Total {
				t.Fatalf("sum invariant broken for taxable=%d dest=%q: %+v", taxable, dest, b)
			}
		}
	}
}

func TestSplitGSTIntraStateHalvesAreEqual(t *testing.T) {
	b := SplitGST(333, 1800, "Delhi", "DELHI")
	if b.CGST != b.SGST {
		t.Fatalf("cgst and sgst must match intra-state: %+v", b)
	}
}

func TestSplitGSTOddRemainderFloorsBothHalves(t *testing.T) {
	// 99 * 9% = 8.91; each half floors to 8 so the halves stay equal and the
	// total is their exact sum, one paisa below the 17 an IGST split yields
	b := SplitGST(99, 1800, "Delhi", "delhi")
	if b.CGST != 8 || b.SGST != 8 || b.Total != 16 {
		t.Fatalf("odd remainder split: %+v", b)
	}
	inter := SplitGST(99, 1800, "Delhi", "Goa")
	if inter.IGST != 17 {
		t.Fatalf("igst reference: %+v", inter)
	}
}
