package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealType_Valid(t *testing.T) {
	t.Parallel()

	for _, dt := range AllDealTypes() {
		assert.True(t, dt.Valid(), string(dt))
	}
	assert.False(t, DealType("half_price").Valid())
	assert.False(t, DealType("").Valid())
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	c, ok := ParseCategory("  pizza ")
	require.True(t, ok)
	assert.Equal(t, CategoryPizza, c)

	c, ok = ParseCategory("FAST FOOD")
	require.True(t, ok)
	assert.Equal(t, CategoryFastFood, c)

	_, ok = ParseCategory("Casual Dining")
	assert.False(t, ok)
}

func TestDeal_JSONOmitsUndefinedFields(t *testing.T) {
	t.Parallel()

	d := Deal{
		ID:             "d1",
		RestaurantName: "Taco Bell",
		Title:          "Crunchwrap Supreme $3.99",
		Description:    "via app",
		Category:       CategoryMexican,
		DealPrice:      "$3.99",
		DealType:       DealTypeAppExclusive,
		Restrictions:   []string{},
		Latitude:       40.7,
		Longitude:      -74.0,
		Distance:       1.2,
		QualityScore:   88,
	}

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.NotContains(t, got, "discountPercent")
	assert.NotContains(t, got, "originalPrice")
	assert.NotContains(t, got, "expirationDate")
	assert.NotContains(t, got, "sourceUrl")
	assert.Equal(t, "$3.99", got["dealPrice"])
	assert.Equal(t, []any{}, got["restrictions"])
	assert.Equal(t, false, got["verified"])
}

func TestDeal_JSONIncludesZeroDiscount(t *testing.T) {
	t.Parallel()

	zero := 0
	raw, err := json.Marshal(Deal{ID: "d2", DiscountPercent: &zero})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"discountPercent":0`)
}
