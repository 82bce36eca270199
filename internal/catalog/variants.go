package catalog

// Variants is the normalized color/size lookup of a product. A product either
// scopes sizes per color (PerColor) or offers flat color and size lists (Flat).
type Variants interface {
	Colors() []string
	Sizes(color string) []string
}

type PerColor struct {
	variants []ColorVariant
	// sizes used when a color has no own size list
	fallback []string
}

func (v PerColor) Colors() []string {
	out := make([]string, 0, len(v.variants))
	for _, cv := range v.variants {
		out = append(out, cv.Color)
	}
	return out
}

func (v PerColor) Sizes(color string) []string {
	for _, cv := range v.variants {
		if cv.Color == color && cv.Sizes != nil {
			return cv.Sizes
		}
	}
	return v.fallback
}

type Flat struct {
	ColorOptions []string
	SizeOptions  []string
}

func (v Flat) Colors() []string { return v.ColorOptions }
func (v Flat) Sizes(string) []string { return v.SizeOptions }

// Variants resolves the product's variant shape once.
func (p Product) Variants() Variants {
	if len(p.ColorVariants) > 0 {
		return PerColor{variants: p.ColorVariants, fallback: p.SizeOptions}
	}
	return Flat{ColorOptions: p.ColorOptions, SizeOptions: p.SizeOptions}
}
