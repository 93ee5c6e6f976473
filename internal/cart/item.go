package cart

import (
	"github.com/jcmexdev/classic-carry/internal/catalog"
)

// MaxQuantity caps a single line. Larger requests are clamped, never
// rejected.
const MaxQuantity = 99

// clampQuantity bounds qty to [1, MaxQuantity].
func clampQuantity(qty int) int {
	return min(max(qty, 1), MaxQuantity)
}

// LineItem is one cart line. Name, Price and Image are copied from the
// product when the line is created and are not refreshed from the catalog.
type LineItem struct {
	ID              string
	Name            string
	Price           int64
	Image           string
	Quantity        int
	SelectedColor   string
	SelectedVariant string
}

func (i LineItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// sameLine reports whether two items describe the same cart line: same
// product and same selected color.
func (i LineItem) sameLine(o LineItem) bool {
	return i.ID == o.ID && i.SelectedColor == o.SelectedColor
}

// matches selects lines by product id and, when color is not empty, by color.
func (i LineItem) matches(id, color string) bool {
	return i.ID == id && (color == "" || i.SelectedColor == color)
}

// FromProduct snapshots a product into a line item. An empty or unknown
// color falls back to the product's current selection.
func FromProduct(p catalog.Product, color string, qty int) LineItem {
	if color != "" {
		p.SelectColor(color)
	}
	qty = clampQuantity(qty)
	return LineItem{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		Image:         p.MainImage,
		Quantity:      qty,
		SelectedColor: p.SelectedColor,
	}
}
