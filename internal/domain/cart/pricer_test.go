package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/souq-marketplace/internal/domain/catalog"
)

type mockCatalog struct {
	products map[string]*catalog.Product
	variants map[string][]catalog.Variant
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) Variants(_ context.Context, productID string) ([]catalog.Variant, error) {
	return m.variants[productID], nil
}

func newCatalog() *mockCatalog {
	return &mockCatalog{
		products: map[string]*catalog.Product{
			"tee": {
				ID:          "tee",
				Name:        "Lounge Tee",
				Price:       decimal.NewFromInt(40),
				CODEligible: true,
			},
			"sneaker": {
				ID:          "sneaker",
				Name:        "Runner",
				Price:       decimal.NewFromInt(200),
				CODEligible: false,
			},
			"giftcard": {
				ID:          "giftcard",
				Name:        "Gift Card",
				Price:       decimal.NewFromInt(100),
				CODEligible: false,
			},
		},
		variants: map[string][]catalog.Variant{
			"tee": {
				{Size: "S", Colour: "black", Quantity: 5, Price: decimal.NewFromInt(40), CODEligible: true},
				{Size: "M", Colour: "black", Quantity: 0, Price: decimal.NewFromInt(40), CODEligible: true},
				{Size: "M", Colour: "sand", Quantity: 3, Price: decimal.NewFromInt(45), CODEligible: false},
			},
			"sneaker": {
				{Size: "42", Colour: "white", Quantity: 0, Price: decimal.NewFromInt(200), CODEligible: false},
				{Size: "43", Colour: "white", Quantity: 0, Price: decimal.NewFromInt(200), CODEligible: false},
			},
		},
	}
}

func TestPriceExactVariantMatch(t *testing.T) {
	p := NewPricer(newCatalog())

	priced, subtotal, err := p.Price(context.Background(), []Line{
		{ProductID: "tee", Quantity: 2, SelectedSize: "M", SelectedColour: "sand"},
	})
	require.NoError(t, err)
	require.Len(t, priced, 1)

	assert.True(t, priced[0].UnitPrice.Equal(decimal.NewFromInt(45)))
	assert.False(t, priced[0].CODEligible)
	assert.True(t, subtotal.Equal(decimal.NewFromInt(90)))
}

func TestPriceUnknownSizeFallsBackToBase(t *testing.T) {
	p := NewPricer(newCatalog())

	priced, _, err := p.Price(context.Background(), []Line{
		{ProductID: "tee", Quantity: 1, SelectedSize: "XXL"},
	})
	require.NoError(t, err)

	assert.True(t, priced[0].UnitPrice.Equal(decimal.NewFromInt(40)))
	assert.True(t, priced[0].CODEligible)
	assert.Equal(t, "XXL", priced[0].SelectedSize)
}

func TestPriceNoSizePicksFirstInStock(t *testing.T) {
	p := NewPricer(newCatalog())

	priced, _, err := p.Price(context.Background(), []Line{
		{ProductID: "tee", Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "S", priced[0].SelectedSize)
	assert.Equal(t, "black", priced[0].SelectedColour)
}

func TestPriceNoSizePrefersColourMatch(t *testing.T) {
	p := NewPricer(newCatalog())

	priced, _, err := p.Price(context.Background(), []Line{
		{ProductID: "tee", Quantity: 1, SelectedColour: "sand"},
	})
	require.NoError(t, err)

	assert.Equal(t, "M", priced[0].SelectedSize)
	assert.Equal(t, "sand", priced[0].SelectedColour)
	assert.True(t, priced[0].UnitPrice.Equal(decimal.NewFromInt(45)))
}

func TestPriceNoSizeAllOutOfStock(t *testing.T) {
	p := NewPricer(newCatalog())

	_, _, err := p.Price(context.Background(), []Line{
		{ProductID: "sneaker", Quantity: 1},
	})

	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "sneaker", oos.ProductID)
}

func TestPriceProductWithoutVariants(t *testing.T) {
	p := NewPricer(newCatalog())

	priced, _, err := p.Price(context.Background(), []Line{
		{ProductID: "giftcard", Quantity: 1},
	})
	require.NoError(t, err)

	assert.Empty(t, priced[0].SelectedSize)
	assert.True(t, priced[0].UnitPrice.Equal(decimal.NewFromInt(100)))
}

func TestPriceRejectsBadQuantity(t *testing.T) {
	p := NewPricer(newCatalog())

	for _, qty := range []int{0, -1} {
		_, _, err := p.Price(context.Background(), []Line{{ProductID: "tee", Quantity: qty}})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

func TestPriceUnknownProduct(t *testing.T) {
	p := NewPricer(newCatalog())

	_, _, err := p.Price(context.Background(), []Line{{ProductID: "nope", Quantity: 1}})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}
