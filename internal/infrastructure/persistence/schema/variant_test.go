package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChooseVariant(t *testing.T) {
	assert.Equal(t, VariantBoth, ChooseVariant(true, true))
	assert.Equal(t, VariantFirstOnly, ChooseVariant(true, false))
	assert.Equal(t, VariantSecondOnly, ChooseVariant(false, true))
	assert.Equal(t, VariantNeither, ChooseVariant(false, false))

	for _, first := range []bool{true, false} {
		for _, second := range []bool{true, false} {
			v := ChooseVariant(first, second)
			assert.Equal(t, first, v.First(), v.String())
			assert.Equal(t, second, v.Second(), v.String())
		}
	}
}

func TestFamily(t *testing.T) {
	f := NewFamily(func(v Variant) string { return "q:" + v.String() })
	assert.Equal(t, "q:both", f.For(VariantBoth))
	assert.Equal(t, "q:neither", f.For(VariantNeither))

	f2 := NewFamily2(func(a, b Variant) string { return fmt.Sprintf("%s/%s", a, b) })
	seen := map[string]bool{}
	for a := VariantBoth; a <= VariantNeither; a++ {
		for b := VariantBoth; b <= VariantNeither; b++ {
			q := f2.For(a, b)
			assert.Equal(t, a.String()+"/"+b.String(), q)
			seen[q] = true
		}
	}
	assert.Len(t, seen, 16)
}

func TestColumn(t *testing.T) {
	assert.Equal(t, "s.status", Column("s", "status", true))
	assert.Equal(t, "status", Column("", "status", true))
	assert.Equal(t, "NULL", Column("s", "status", false))
}
