// Package catalog seeds the product catalog.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
)

//go:embed seed.json
var seedJSON []byte

// SeedProducts returns the bundled starter catalog.
func SeedProducts() ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(seedJSON, &products); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	for i := range products {
		if products[i].Slug == "" {
			products[i].Slug = Slugify(products[i].Name)
		}
	}
	return products, nil
}

func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type Importer struct {
	catalog  store.Catalog
	products func() ([]domain.Product, error)
}

func NewImporter(catalog store.Catalog) *Importer {
	return &Importer{catalog: catalog, products: SeedProducts}
}

// Import inserts every seed product that is not in the catalog yet.
func (i *Importer) Import(ctx context.Context) (Result, error) {
	var res Result
	products, err := i.products()
	if err != nil {
		return res, err
	}
	for _, p := range products {
		created, err := i.catalog.InsertProduct(ctx, p)
		if err != nil {
			return res, fmt.Errorf("import product %s: %w", p.ID, err)
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}
	slog.InfoContext(ctx, "catalog import finished", "created", res.Created, "skipped", res.Skipped)
	return res, nil
}
