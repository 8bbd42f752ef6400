package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Cart.Total Tests
// ============================================================================

func TestTotal_MultipleItems(t *testing.T) {
	c := &Cart{
		Items: []CartItem{
			{UnitPrice: 1000, Quantity: 2},
			{UnitPrice: 500, Quantity: 3},
			{UnitPrice: 2500, Quantity: 1},
		},
	}
	// 2000 + 1500 + 2500 = 6000
	assert.Equal(t, int64(6000), c.Total())
}

func TestTotal_EmptyCart(t *testing.T) {
	c := &Cart{}
	assert.Equal(t, int64(0), c.Total())
}

// ============================================================================
// Cart.ItemCount Tests
// ============================================================================

func TestItemCount_MultipleItems(t *testing.T) {
	c := &Cart{
		Items: []CartItem{{Quantity: 2}, {Quantity: 3}, {Quantity: 1}},
	}
	assert.Equal(t, 6, c.ItemCount())
}

func TestItemCount_EmptyCart(t *testing.T) {
	c := &Cart{}
	assert.Equal(t, 0, c.ItemCount())
}

// ============================================================================
// Cart.FindItemIndex Tests
// ============================================================================

func TestFindItemIndex_Found(t *testing.T) {
	c := &Cart{
		Items: []CartItem{
			{ProductID: "p1", VariantID: "v1"},
			{ProductID: "p2", VariantID: "v2"},
		},
	}
	assert.Equal(t, 0, c.FindItemIndex("p1", "v1"))
	assert.Equal(t, 1, c.FindItemIndex("p2", "v2"))
}

func TestFindItemIndex_VariantMismatch(t *testing.T) {
	c := &Cart{
		Items: []CartItem{{ProductID: "p1", VariantID: "v1"}},
	}
	assert.Equal(t, -1, c.FindItemIndex("p1", "v2"))
}

func TestFindItemIndex_VariantlessLine(t *testing.T) {
	c := &Cart{
		Items: []CartItem{{ProductID: "p1"}},
	}
	assert.Equal(t, 0, c.FindItemIndex("p1", ""))
	assert.Equal(t, -1, c.FindItemIndex("p1", "v1"))
}

// ============================================================================
// Cart.FindItemByID / RemoveItem Tests
// ============================================================================

func TestFindItemByID(t *testing.T) {
	c := &Cart{
		Items: []CartItem{{ID: "i1"}, {ID: "i2"}},
	}
	assert.Equal(t, 1, c.FindItemByID("i2"))
	assert.Equal(t, -1, c.FindItemByID("i9"))
}

func TestRemoveItem_PreservesOrder(t *testing.T) {
	c := &Cart{
		Items: []CartItem{{ID: "i1"}, {ID: "i2"}, {ID: "i3"}},
	}
	c.RemoveItem(1)
	assert.Len(t, c.Items, 2)
	assert.Equal(t, "i1", c.Items[0].ID)
	assert.Equal(t, "i3", c.Items[1].ID)
}

func TestRemoveItem_OutOfRangeNoop(t *testing.T) {
	c := &Cart{Items: []CartItem{{ID: "i1"}}}
	c.RemoveItem(-1)
	c.RemoveItem(5)
	assert.Len(t, c.Items, 1)
}

// ============================================================================
// CartItem Tests
// ============================================================================

func TestSubtotal(t *testing.T) {
	item := CartItem{UnitPrice: 1999, Quantity: 2}
	assert.Equal(t, int64(3998), item.Subtotal())
}
