package core

import "fmt"

// Catalog is the static, read-only table of purchasable products
type Catalog struct {
	products []Product
	byID     map[string]Product
}

// NewCatalog builds a catalog and checks its invariants
func NewCatalog(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]Product, len(products)),
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog: product %q has empty id", p.Name)
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		if p.Price <= 0 || p.BaseMinutes <= 0 {
			return nil, fmt.Errorf("catalog: product %q must have positive price and duration", p.ID)
		}
		c.products = append(c.products, p)
		c.byID[p.ID] = p
	}
	return c, nil
}

// DefaultCatalog returns the CDID joki price list
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Product{
		{ID: "cdid_1m", Name: "1M Uang CDID", Price: 1000, BaseMinutes: 30},
		{ID: "cdid_5m", Name: "5M Uang CDID", Price: 5000, BaseMinutes: 120},
		{ID: "cdid_10m", Name: "10M Uang CDID", Price: 10000, BaseMinutes: 240},
		{ID: "cdid_20m", Name: "20M Uang CDID", Price: 20000, BaseMinutes: 480},
		{ID: "cdid_50m", Name: "50M Uang CDID", Price: 50000, BaseMinutes: 1440},
		{ID: "cdid_100m", Name: "100M Uang CDID", Price: 85000, BaseMinutes: 2880},
		{ID: "cdid_125m", Name: "125M Uang CDID", Price: 140000, BaseMinutes: 3600},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the product with the given id
func (c *Catalog) Lookup(id string) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Products returns all products in display order
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}
