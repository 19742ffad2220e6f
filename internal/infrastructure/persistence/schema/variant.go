package schema

// Variant is the shape of a query given the presence of two optional columns
type Variant int

const (
	// VariantBoth: both optional columns exist
	VariantBoth Variant = iota
	// VariantFirstOnly: only the first optional column exists
	VariantFirstOnly
	// VariantSecondOnly: only the second optional column exists
	VariantSecondOnly
	// VariantNeither: neither optional column exists
	VariantNeither

	variantCount = 4
)

// ChooseVariant maps column presence to a Variant
func ChooseVariant(first, second bool) Variant {
	switch {
	case first && second:
		return VariantBoth
	case first:
		return VariantFirstOnly
	case second:
		return VariantSecondOnly
	default:
		return VariantNeither
	}
}

// First reports whether the first optional column is present
func (v Variant) First() bool {
	return v == VariantBoth || v == VariantFirstOnly
}

// Second reports whether the second optional column is present
func (v Variant) Second() bool {
	return v == VariantBoth || v == VariantSecondOnly
}

// String implements fmt.Stringer
func (v Variant) String() string {
	switch v {
	case VariantBoth:
		return "both"
	case VariantFirstOnly:
		return "first_only"
	case VariantSecondOnly:
		return "second_only"
	case VariantNeither:
		return "neither"
	default:
		return "unknown"
	}
}

// Family holds the four precompiled SQL strings of one query
type Family [variantCount]string

// NewFamily compiles a Family by calling build once per variant
func NewFamily(build func(v Variant) string) Family {
	var f Family
	for v := VariantBoth; v <= VariantNeither; v++ {
		f[v] = build(v)
	}
	return f
}

// For returns the SQL of variant v
func (f Family) For(v Variant) string {
	return f[v]
}

// Family2 holds the sixteen precompiled SQL strings of a query that adapts
// to two independent pairs of optional columns
type Family2 [variantCount * variantCount]string

// NewFamily2 compiles a Family2 by calling build once per variant pair
func NewFamily2(build func(a, b Variant) string) Family2 {
	var f Family2
	for a := VariantBoth; a <= VariantNeither; a++ {
		for b := VariantBoth; b <= VariantNeither; b++ {
			f[int(a)*variantCount+int(b)] = build(a, b)
		}
	}
	return f
}

// For returns the SQL of the variant pair (a, b)
func (f Family2) For(a, b Variant) string {
	return f[int(a)*variantCount+int(b)]
}

// Column returns "alias.column" when present is true, or "NULL" otherwise.
// It is used to project optional columns with a stable result shape.
func Column(alias, column string, present bool) string {
	if !present {
		return "NULL"
	}
	if alias == "" {
		return column
	}
	return alias + "." + column
}
