package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/aranya-labs/backend-vastra/internal/pricing"
	"github.com/aranya-labs/backend-vastra/internal/shipping"
)

// Legacy product documents vary in shape: category may be a string or an
// object, sizes may be absent, and images arrive as a string, an array of
// strings, or an array of {url} objects. NormalizeDoc converts every known
// encoding into the canonical Product at ingress so the checkout pipeline
// never branches on document shape.

type rawDoc struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Category    json.RawMessage `json:"category"`
	Price       float64         `json:"price"`
	DiscountPct float64         `json:"discount"`
	Images      json.RawMessage `json:"images"`
	Image       string          `json:"image"`
	Dimensions  *rawDims        `json:"dimensions"`
	Variants    []rawVariant    `json:"variants"`
	Sizes       []rawSize       `json:"sizes"`
}

type rawDims struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"` // grams
}

type rawVariant struct {
	SKU   string    `json:"sku"`
	Sizes []rawSize `json:"sizes"`
}

type rawSize struct {
	Label string  `json:"label"`
	Size  string  `json:"size"`
	Qty   int     `json:"qty"`
	Stock int     `json:"stock"`
	Price float64 `json:"price"`
}

// NormalizeDoc parses a raw product document into the canonical shape.
func NormalizeDoc(doc []byte) (Product, error) {
	var raw rawDoc
	if err := json.Unmarshal(doc, &raw); err != nil {
		return Product{}, fmt.Errorf("normalize product: %w", err)
	}
	if strings.TrimSpace(raw.Name) == "" {
		return Product{}, fmt.Errorf("normalize product: name is required")
	}

	p := Product{
		Name:        strings.TrimSpace(raw.Name),
		Slug:        strings.TrimSpace(raw.Slug),
		Category:    normalizeCategory(raw.Category),
		BasePrice:   toMinorUnits(raw.Price),
		DiscountPct: raw.DiscountPct,
		Images:      normalizeImages(raw.Images, raw.Image),
	}
	if raw.ID != "" {
		id, err := uuid.Parse(raw.ID)
		if err != nil {
			return Product{}, fmt.Errorf("normalize product: parse id: %w", err)
		}
		p.ID = id
	} else {
		p.ID = uuid.New()
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Name)
	}
	if raw.Dimensions != nil {
		p.Dims = shipping.Dimensions{
			LengthCM:    raw.Dimensions.Length,
			WidthCM:     raw.Dimensions.Width,
			HeightCM:    raw.Dimensions.Height,
			DeadWeightG: int(raw.Dimensions.Weight),
		}
	}

	for _, v := range raw.Variants {
		p.Variants = append(p.Variants, Variant{SKU: v.SKU, Sizes: normalizeSizes(v.Sizes)})
	}
	// top-level sizes without a variant wrapper become a single default variant
	if len(p.Variants) == 0 && len(raw.Sizes) > 0 {
		p.Variants = append(p.Variants, Variant{SKU: p.Slug, Sizes: normalizeSizes(raw.Sizes)})
	}
	return p, nil
}

func normalizeCategory(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	var asObject struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return strings.TrimSpace(asObject.Name)
	}
	return ""
}

func normalizeImages(raw json.RawMessage, single string) []string {
	var images []string
	if len(raw) > 0 {
		var asStrings []string
		if err := json.Unmarshal(raw, &asStrings); err == nil {
			images = asStrings
		} else {
			var asObjects []struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(raw, &asObjects); err == nil {
				for _, o := range asObjects {
					images = append(images, o.URL)
				}
			} else {
				var one string
				if err := json.Unmarshal(raw, &one); err == nil {
					images = []string{one}
				}
			}
		}
	}
	if len(images) == 0 && single != "" {
		images = []string{single}
	}
	out := images[:0]
	for _, img := range images {
		if trimmed := strings.TrimSpace(img); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeSizes(raws []rawSize) []SizeStock {
	sizes := make([]SizeStock, 0, len(raws))
	for _, r := range raws {
		label := r.Label
		if label == "" {
			label = r.Size
		}
		qty := r.Qty
		if qty == 0 && r.Stock > 0 {
			qty = r.Stock
		}
		if label == "" {
			continue
		}
		sizes = append(sizes, SizeStock{Label: label, Qty: qty, Price: toMinorUnits(r.Price)})
	}
	return sizes
}

func toMinorUnits(amount float64) pricing.Money {
	if amount <= 0 {
		return 0
	}
	return pricing.Money(math.Round(amount * 100))
}

func slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := true
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
