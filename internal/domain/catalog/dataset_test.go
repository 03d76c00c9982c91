package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffProducts(t *testing.T) {
	keep := newTestProduct("1", "", SourceTypeEasyDrop)
	changedOld := newTestProduct("2", "", SourceTypeEasyDrop)
	changedNew := newTestProduct("2", "", SourceTypeEasyDrop)
	changedNew.Price = decimal.NewFromInt(150)
	gone := newTestProduct("3", "", SourceTypeEasyDrop)
	fresh := newTestProduct("3", "", SourceTypeMyDrop)

	diff := DiffProducts(
		[]UnifiedProduct{keep, changedOld, gone},
		[]UnifiedProduct{keep, changedNew, fresh},
	)

	require.Len(t, diff.Added, 1)
	assert.Equal(t, SourceTypeMyDrop, diff.Added[0].SourceType)
	require.Len(t, diff.Updated, 1)
	assert.Equal(t, "2", diff.Updated[0].ExternalID)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, gone.Key(), diff.Removed[0].Key())
	assert.False(t, diff.IsEmpty())
}

func TestDiffProducts_NoChanges(t *testing.T) {
	products := []UnifiedProduct{newTestProduct("1", "", SourceTypeEasyDrop)}
	diff := DiffProducts(products, products)
	assert.True(t, diff.IsEmpty())
	assert.NotNil(t, diff.Added)
}

func TestDiffProducts_FromEmpty(t *testing.T) {
	current := []UnifiedProduct{
		newTestProduct("1", "", SourceTypeEasyDrop),
		newTestProduct("1", "", SourceTypeEasyDrop),
	}
	diff := DiffProducts(nil, current)
	assert.Len(t, diff.Added, 1)
	assert.Empty(t, diff.Removed)
}

func TestMergeProducts(t *testing.T) {
	a := newTestProduct("1", "", SourceTypeEasyDrop)
	b := newTestProduct("2", "", SourceTypeEasyDrop)
	bNew := newTestProduct("2", "", SourceTypeEasyDrop)
	bNew.Name = "renamed"
	c := newTestProduct("3", "", SourceTypeMyDrop)

	merged := MergeProducts([]UnifiedProduct{a, b}, []UnifiedProduct{bNew, c})

	require.Len(t, merged, 3)
	assert.Equal(t, "1", merged[0].ExternalID)
	assert.Equal(t, "renamed", merged[1].Name)
	assert.Equal(t, "3", merged[2].ExternalID)
}
