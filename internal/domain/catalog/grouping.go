package catalog

import "time"

// groupAccumulator is the fold state of GroupVariants: groups in first-appearance
// order plus a position index by partition key
type groupAccumulator struct {
	order []*ProductVariantGroup
	byKey map[string]int
}

func (acc groupAccumulator) step(p UnifiedProduct, now time.Time) groupAccumulator {
	key := p.GroupKey()
	if pos, ok := acc.byKey[key]; ok {
		acc.order[pos].AddVariant(p, now)
		return acc
	}
	acc.byKey[key] = len(acc.order)
	acc.order = append(acc.order, NewProductVariantGroup(p, now))
	return acc
}

// GroupVariants partitions products by GroupKey. Groups are returned in the order
// their first product appears in the input, and the first product of each
// partition supplies the representative fields. The result depends only on the
// input order and identities; now is used solely for LastUpdated.
func GroupVariants(products []UnifiedProduct, now time.Time) []ProductVariantGroup {
	acc := groupAccumulator{
		order: make([]*ProductVariantGroup, 0),
		byKey: make(map[string]int),
	}
	for _, p := range products {
		acc = acc.step(p, now)
	}

	groups := make([]ProductVariantGroup, 0, len(acc.order))
	for _, g := range acc.order {
		groups = append(groups, *g)
	}
	return groups
}

// Flatten returns the variants of all groups in group order
func Flatten(groups []ProductVariantGroup) []UnifiedProduct {
	n := 0
	for _, g := range groups {
		n += len(g.Variants)
	}
	out := make([]UnifiedProduct, 0, n)
	for _, g := range groups {
		out = append(out, g.Variants...)
	}
	return out
}
