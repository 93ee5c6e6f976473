// Package catalog holds the storefront's fixed product table and the lookup
// and filter views over it. The table is compiled into the binary from
// catalog.yaml.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var seedYAML []byte

// Collection names the fixed product groupings.
type Collection string

const (
	CollectionAll     Collection = "all"
	CollectionHot     Collection = "hot"
	CollectionCaps    Collection = "caps"
	CollectionWallets Collection = "wallets"
)

// CategoryAll disables category filtering.
const CategoryAll = "all"

// ParseCollection maps the accepted aliases ("cap", "wallet", ...) onto a
// collection. Unknown names map to hot, matching how new products are filed.
func ParseCollection(name string) Collection {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "all", "":
		return CollectionAll
	case "cap", "caps":
		return CollectionCaps
	case "wallet", "wallets":
		return CollectionWallets
	default:
		return CollectionHot
	}
}

type productRecord struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Price          int64    `yaml:"price"`
	Category       string   `yaml:"category"`
	Tag            string   `yaml:"tag"`
	Description    string   `yaml:"description"`
	MainImage      string   `yaml:"main_image"`
	Images         []string `yaml:"images"`
	Colors         []string `yaml:"colors"`
	Features       []string `yaml:"features"`
	Specifications []Spec   `yaml:"specifications"`
	Rating         float64  `yaml:"rating"`
	ReviewCount    int      `yaml:"review_count"`
	InStock        *bool    `yaml:"in_stock"`
	StockCount     *int     `yaml:"stock_count"`
}

func (r productRecord) toProduct() Product {
	inStock := true
	if r.InStock != nil {
		inStock = *r.InStock
	}
	return NewProduct(Product{
		ID:             r.ID,
		Name:           r.Name,
		Price:          r.Price,
		Description:    r.Description,
		Category:       r.Category,
		Tag:            r.Tag,
		MainImage:      r.MainImage,
		Images:         r.Images,
		Colors:         r.Colors,
		Features:       r.Features,
		Specifications: r.Specifications,
		Rating:         r.Rating,
		ReviewCount:    r.ReviewCount,
		InStock:        inStock,
		StockCount:     r.StockCount,
	})
}

type seedFile struct {
	Hot     []productRecord `yaml:"hot"`
	Caps    []productRecord `yaml:"caps"`
	Wallets []productRecord `yaml:"wallets"`
}

// Catalog is safe for concurrent use. Every accessor returns copies.
type Catalog struct {
	mu      sync.RWMutex
	hot     []Product
	caps    []Product
	wallets []Product
}

// New builds the catalog from the embedded product table.
func New() (*Catalog, error) {
	return Parse(seedYAML)
}

// Parse builds a catalog from a YAML document with hot, caps and wallets lists.
func Parse(doc []byte) (*Catalog, error) {
	var seed seedFile
	if err := yaml.Unmarshal(doc, &seed); err != nil {
		return nil, fmt.Errorf("catalog: parse seed: %w", err)
	}

	c := &Catalog{}
	seen := make(map[string]struct{})
	for _, group := range []struct {
		records []productRecord
		dst     *[]Product
	}{
		{seed.Hot, &c.hot},
		{seed.Caps, &c.caps},
		{seed.Wallets, &c.wallets},
	} {
		for _, rec := range group.records {
			if rec.ID == "" {
				return nil, fmt.Errorf("catalog: product %q has no id", rec.Name)
			}
			if _, dup := seen[rec.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate product id %q", rec.ID)
			}
			seen[rec.ID] = struct{}{}
			*group.dst = append(*group.dst, rec.toProduct())
		}
	}
	return c, nil
}

func cloneAll(products []Product) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.Clone()
	}
	return out
}

// AllProducts returns hot, caps and wallets, in that order.
func (c *Catalog) AllProducts() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allLocked()
}

func (c *Catalog) allLocked() []Product {
	out := make([]Product, 0, len(c.hot)+len(c.caps)+len(c.wallets))
	out = append(out, cloneAll(c.hot)...)
	out = append(out, cloneAll(c.caps)...)
	out = append(out, cloneAll(c.wallets)...)
	return out
}

func (c *Catalog) Featured() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.hot)
}

func (c *Catalog) Caps() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.caps)
}

func (c *Catalog) Wallets() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAll(c.wallets)
}

// Collection returns the products of one collection; CollectionAll returns
// every product.
func (c *Catalog) Collection(col Collection) []Product {
	switch col {
	case CollectionHot:
		return c.Featured()
	case CollectionCaps:
		return c.Caps()
	case CollectionWallets:
		return c.Wallets()
	default:
		return c.AllProducts()
	}
}

// FindByID reports false when no product has the id.
func (c *Catalog) FindByID(id string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, group := range [][]Product{c.hot, c.caps, c.wallets} {
		for _, p := range group {
			if p.ID == id {
				return p.Clone(), true
			}
		}
	}
	return Product{}, false
}

// ByCategory filters a collection by exact category. CategoryAll returns the
// collection unfiltered.
func (c *Catalog) ByCategory(category string, col Collection) []Product {
	return FilterByCategory(c.Collection(col), category)
}

// FilterByCategory is the filter behind ByCategory, usable on any slice.
func FilterByCategory(products []Product, category string) []Product {
	if category == CategoryAll || category == "" {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Categories lists the distinct categories of a collection in first-seen order.
func (c *Catalog) Categories(col Collection) []string {
	var out []string
	for _, p := range c.Collection(col) {
		if p.Category != "" && !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	return out
}

// Add files a new product into a collection (CollectionAll files into hot).
func (c *Catalog) Add(p Product, col Collection) (Product, error) {
	if p.ID == "" {
		return Product{}, fmt.Errorf("catalog: add: empty product id")
	}
	p = NewProduct(p.Clone())

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.allLocked() {
		if existing.ID == p.ID {
			return Product{}, fmt.Errorf("catalog: add: product %q already exists", p.ID)
		}
	}
	switch col {
	case CollectionCaps:
		c.caps = append(c.caps, p)
	case CollectionWallets:
		c.wallets = append(c.wallets, p)
	default:
		c.hot = append(c.hot, p)
	}
	return p.Clone(), nil
}

// Update applies fn to the stored product with the given id. The id itself
// cannot be changed.
func (c *Catalog) Update(id string, fn func(*Product)) (Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, group := range []*[]Product{&c.hot, &c.caps, &c.wallets} {
		for i := range *group {
			p := &(*group)[i]
			if p.ID != id {
				continue
			}
			fn(p)
			p.ID = id
			*p = NewProduct(*p)
			return p.Clone(), true
		}
	}
	return Product{}, false
}

// Remove deletes the first product with the id, searching hot, caps, then
// wallets, and returns it.
func (c *Catalog) Remove(id string) (Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, group := range []*[]Product{&c.hot, &c.caps, &c.wallets} {
		for i, p := range *group {
			if p.ID == id {
				*group = slices.Delete(*group, i, i+1)
				return p, true
			}
		}
	}
	return Product{}, false
}
