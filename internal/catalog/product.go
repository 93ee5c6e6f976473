package catalog

import (
	"fmt"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var defaultColors = []string{"Black", "Brown", "Navy"}

const (
	defaultRating      = 4.5
	defaultReviewCount = 128
	lowStockThreshold  = 5
)

// Spec is one row of a product's specification table.
type Spec struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

type StockLevel string

const (
	StockOut StockLevel = "out"
	StockLow StockLevel = "low"
	StockOK  StockLevel = "ok"
)

// Product is a catalog entry. Everything except SelectedColor is fixed once
// the catalog is built.
type Product struct {
	ID             string
	Name           string
	Price          int64
	Description    string
	Category       string
	Tag            string
	MainImage      string
	Images         []string
	Colors         []string
	SelectedColor  string
	Features       []string
	Specifications []Spec
	Rating         float64
	ReviewCount    int
	InStock        bool
	// StockCount is nil when the stock level is not tracked.
	StockCount *int
}

// NewProduct applies catalog defaults and puts the main image first in the
// image list.
func NewProduct(p Product) Product {
	if p.MainImage == "" && len(p.Images) > 0 {
		p.MainImage = p.Images[0]
	}
	p.Images = withMainFirst(p.MainImage, p.Images)

	if len(p.Colors) == 0 {
		p.Colors = slices.Clone(defaultColors)
	}
	if p.SelectedColor == "" || !slices.Contains(p.Colors, p.SelectedColor) {
		p.SelectedColor = p.Colors[0]
	}
	if p.Rating == 0 {
		p.Rating = defaultRating
	}
	if p.ReviewCount == 0 {
		p.ReviewCount = defaultReviewCount
	}
	return p
}

func withMainFirst(main string, images []string) []string {
	out := make([]string, 0, len(images)+1)
	if main != "" {
		out = append(out, main)
	}
	for _, img := range images {
		if img != main {
			out = append(out, img)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate selection state freely.
func (p Product) Clone() Product {
	c := p
	c.Images = slices.Clone(p.Images)
	c.Colors = slices.Clone(p.Colors)
	c.Features = slices.Clone(p.Features)
	c.Specifications = slices.Clone(p.Specifications)
	if p.StockCount != nil {
		n := *p.StockCount
		c.StockCount = &n
	}
	return c
}

func (p Product) AdditionalImages() []string {
	if len(p.Images) <= 1 {
		return nil
	}
	return p.Images[1:]
}

func (p Product) HasMultipleImages() bool {
	return len(p.Images) > 1
}

// AddImage appends url unless it is already present.
func (p *Product) AddImage(url string) {
	if url == "" || slices.Contains(p.Images, url) {
		return
	}
	p.Images = append(p.Images, url)
}

// SetMainImage makes url the main image and moves it to the front.
func (p *Product) SetMainImage(url string) {
	if url == "" {
		return
	}
	p.MainImage = url
	p.Images = withMainFirst(url, p.Images)
}

// SelectColor switches the transient color selection. It reports false and
// leaves the product untouched when color is not one of the product's colors.
func (p *Product) SelectColor(color string) bool {
	if !slices.Contains(p.Colors, color) {
		return false
	}
	p.SelectedColor = color
	return true
}

func (p Product) IsInStock() bool {
	return p.InStock && (p.StockCount == nil || *p.StockCount > 0)
}

func (p Product) StockStatus() string {
	switch {
	case !p.InStock:
		return "Out of Stock"
	case p.StockCount == nil:
		return "In Stock"
	case *p.StockCount <= 0:
		return "Out of Stock"
	case *p.StockCount <= lowStockThreshold:
		return fmt.Sprintf("Only %d left", *p.StockCount)
	default:
		return "In Stock"
	}
}

func (p Product) StockLevel() StockLevel {
	switch {
	case !p.IsInStock():
		return StockOut
	case p.StockCount != nil && *p.StockCount <= lowStockThreshold:
		return StockLow
	default:
		return StockOK
	}
}

func (p Product) FormattedPrice() string {
	return FormatPrice(p.Price)
}

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders an amount in rupees with thousands separators, e.g. "Rs 2,799".
func FormatPrice(amount int64) string {
	return pricePrinter.Sprintf("Rs %d", amount)
}
