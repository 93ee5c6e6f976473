package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	items := []LineItem{
		{ID: "a", Price: 1000, Quantity: 2},
		{ID: "b", Price: 500, Quantity: 1},
	}

	s := DefaultPricing.Summarize(items)
	assert.Equal(t, 3, s.ItemCount)
	assert.Equal(t, int64(2500), s.Subtotal)
	assert.Equal(t, int64(300), s.Delivery)
	assert.Equal(t, int64(2800), s.GrandTotal)
	assert.Equal(t, int64(1500), s.RemainingForFree)
	assert.False(t, s.FreeDelivery)
	assert.False(t, s.Empty())
}

func TestSummarize_Empty(t *testing.T) {
	s := DefaultPricing.Summarize(nil)
	assert.True(t, s.Empty())
	assert.Equal(t, int64(0), s.Delivery)
	assert.Equal(t, int64(0), s.GrandTotal)
	assert.Equal(t, int64(4000), s.RemainingForFree)
}

func TestSummarize_AlternateFee(t *testing.T) {
	p := Pricing{DeliveryFee: 200, FreeDeliveryThreshold: 4000}
	s := p.Summarize([]LineItem{{ID: "a", Price: 3999, Quantity: 1}})
	assert.Equal(t, int64(200), s.Delivery)
	assert.Equal(t, int64(4199), s.GrandTotal)
}
