package catalog

// ProductDiff is the difference between two flat product lists keyed by
// (ExternalID, SourceType)
type ProductDiff struct {
	Added   []UnifiedProduct `json:"added"`
	Updated []UnifiedProduct `json:"updated"`
	Removed []UnifiedProduct `json:"removed"`
}

// IsEmpty returns true if nothing changed
func (d ProductDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// DiffProducts compares the current list against the previous one.
// Products present in both but with different values are reported as updated.
// Output preserves the input order of current (added, updated) and previous (removed).
func DiffProducts(previous, current []UnifiedProduct) ProductDiff {
	prev := indexByKey(previous)
	curr := indexByKey(current)

	diff := ProductDiff{
		Added:   make([]UnifiedProduct, 0),
		Updated: make([]UnifiedProduct, 0),
		Removed: make([]UnifiedProduct, 0),
	}

	seen := make(map[VariantKey]struct{}, len(current))
	for _, p := range current {
		key := p.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		old, ok := prev[key]
		switch {
		case !ok:
			diff.Added = append(diff.Added, p)
		case !old.Equal(p):
			diff.Updated = append(diff.Updated, p)
		}
	}

	removed := make(map[VariantKey]struct{})
	for _, p := range previous {
		key := p.Key()
		if _, ok := curr[key]; ok {
			continue
		}
		if _, dup := removed[key]; dup {
			continue
		}
		removed[key] = struct{}{}
		diff.Removed = append(diff.Removed, p)
	}
	return diff
}

// MergeProducts returns the union of existing and incoming products keyed by
// (ExternalID, SourceType). Incoming values replace existing ones in place; new
// products are appended in incoming order.
func MergeProducts(existing, incoming []UnifiedProduct) []UnifiedProduct {
	out := make([]UnifiedProduct, 0, len(existing)+len(incoming))
	pos := make(map[VariantKey]int, len(existing)+len(incoming))
	for _, p := range existing {
		key := p.Key()
		if i, ok := pos[key]; ok {
			out[i] = p
			continue
		}
		pos[key] = len(out)
		out = append(out, p)
	}
	for _, p := range incoming {
		key := p.Key()
		if i, ok := pos[key]; ok {
			out[i] = p
			continue
		}
		pos[key] = len(out)
		out = append(out, p)
	}
	return out
}

// indexByKey indexes products by key, keeping the first occurrence
func indexByKey(products []UnifiedProduct) map[VariantKey]UnifiedProduct {
	idx := make(map[VariantKey]UnifiedProduct, len(products))
	for _, p := range products {
		key := p.Key()
		if _, ok := idx[key]; ok {
			continue
		}
		idx[key] = p
	}
	return idx
}
