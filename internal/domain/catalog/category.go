package catalog

// Category is a feed category. It only lives for one parse cycle and is used to
// resolve the category names referenced by products of the same feed.
type Category struct {
	ID         string     `json:"id"`
	ParentID   *string    `json:"parent_id,omitempty"`
	Name       string     `json:"name"`
	SourceType SourceType `json:"source_type"`
}

// IsRoot returns true if the category has no parent
func (c Category) IsRoot() bool {
	return c.ParentID == nil || *c.ParentID == ""
}

// CategoryIndex indexes categories by id
type CategoryIndex map[string]Category

// NewCategoryIndex builds an index; later duplicates of an id are ignored
func NewCategoryIndex(categories []Category) CategoryIndex {
	idx := make(CategoryIndex, len(categories))
	for _, c := range categories {
		if _, exists := idx[c.ID]; exists {
			continue
		}
		idx[c.ID] = c
	}
	return idx
}

// Name resolves the display name for a category id, returning "" when unknown
func (idx CategoryIndex) Name(id string) string {
	if id == "" {
		return ""
	}
	return idx[id].Name
}
