package supplier

import (
	"context"

	"CatalogSync/internal/model"
)

// MockFetcher returns fixed products, or Err, for development and testing.
type MockFetcher struct {
	Products []model.Product
	Err      error
	Calls    int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchFullCatalog(_ context.Context) ([]model.Product, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Products, nil
}
