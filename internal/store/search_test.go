package store

import (
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMatchesSearch(t *testing.T) {
	p := domain.Product{Name: "Gravity Boots", Description: "Defy the laws of physics."}

	assert.True(t, MatchesSearch(p, SearchTerms("grav")))
	assert.True(t, MatchesSearch(p, SearchTerms("BOOTS phys")))
	assert.False(t, MatchesSearch(p, SearchTerms("avity")))
	assert.False(t, MatchesSearch(p, SearchTerms("boots watch")))
	assert.False(t, MatchesSearch(p, SearchTerms("  ")))
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, UniqueIDs([]string{"1", "2", "1"}))
}

func TestCoalesceDecrements(t *testing.T) {
	got := CoalesceDecrements([]domain.StockDecrement{
		{ProductID: "3", Quantity: 1},
		{ProductID: "1", Quantity: 2},
		{ProductID: "3", Quantity: 4},
	})
	assert.Equal(t, []domain.StockDecrement{
		{ProductID: "1", Quantity: 2},
		{ProductID: "3", Quantity: 5},
	}, got)
}
