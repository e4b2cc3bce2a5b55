package schema

import "github.com/netabase/netabase/internal/errs"

// VariantSpec summarizes one variant of a sum-type schema for
// ValidateUnion's cross-variant consistency check. Describe builds one from
// a Register call's own reflection results without needing a second
// reflection pass.
type VariantSpec struct {
	Name       string
	HasKeyTag  bool
	HasKeyFunc bool
}

// Describe reports how d derives its key, for use with ValidateUnion.
func Describe[T any, PT ValuePtr[T]](name string, d *Descriptor[T, PT]) VariantSpec {
	return VariantSpec{
		Name:       name,
		HasKeyTag:  d.keyFunc == nil,
		HasKeyFunc: d.keyFunc != nil,
	}
}

// ValidateUnion enforces that a sum-type schema's variants agree on a single
// key source: either every variant derives its key from a tagged field, or
// every variant is registered with a whole-value key function; whether
// those variants use one and the same function is not checked. Mixing the two across
// variants — one variant keyed by field, another by function — is a
// generation-time error, the same rule Register enforces within one type.
func ValidateUnion(variants []VariantSpec) error {
	if len(variants) == 0 {
		return errs.New("schema.ValidateUnion", errs.KindSchemaGeneration)
	}
	var anyTag, anyFunc bool
	for _, v := range variants {
		if v.HasKeyTag {
			anyTag = true
		}
		if v.HasKeyFunc {
			anyFunc = true
		}
	}
	if anyTag && anyFunc {
		return errs.New("schema.ValidateUnion", errs.KindSchemaGeneration)
	}
	return nil
}
