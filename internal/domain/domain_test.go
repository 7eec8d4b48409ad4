package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartItemKey(t *testing.T) {
	assert.Equal(t, "1-default", CartItem{ID: "1"}.Key())
	assert.Equal(t, "1-Chrome", CartItem{ID: "1", Variant: "Chrome"}.Key())
}

func TestNormalize_DropsZeroQuantity(t *testing.T) {
	items := Normalize([]CartItem{{ID: "1", Quantity: 2}, {ID: "2", Quantity: 0}, {ID: "3", Quantity: -1}})
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ID)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(29900), ToMinorUnits(299))
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, int64(1), ToMinorUnits(0.005))
	assert.Equal(t, 299.0, FromMinorUnits(29900))
	assert.Equal(t, 19.99, FromMinorUnits(1999))
}

func TestCartTotal(t *testing.T) {
	total := CartTotal([]CartItem{{Price: 0.1, Quantity: 3}, {Price: 189, Quantity: 1}})
	assert.Equal(t, 189.3, total)
}

func TestOrderNumberFromSession(t *testing.T) {
	assert.Equal(t, "ABCD1234", OrderNumberFromSession("cs_test_a1b2abcd1234"))
	assert.Equal(t, "CS_123", OrderNumberFromSession("cs_123"))
}

func TestOrderItemsRoundTrip(t *testing.T) {
	raw, err := EncodeOrderItems([]OrderItemMetadata{{ID: "42", Quantity: 1}, {ID: "7", Quantity: 2, Variant: "Chrome"}})
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"42","q":1},{"id":"7","q":2,"v":"Chrome"}]`, raw)

	items, err := DecodeOrderItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, OrderLineItem{ProductRef: "7", Quantity: 2, Variant: "Chrome"}, items[1].LineItem())

	_, err = DecodeOrderItems("{bad")
	assert.Error(t, err)
}
