package cart

import (
	"encoding/json"
	"fmt"
	"math"
)

// maxUnitPrice bounds stored prices so line and cart totals stay well inside
// int64.
const maxUnitPrice = 1e12

// wireItem is the persisted shape of a line item.
type wireItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	Img           string `json:"img"`
	Qty           int    `json:"qty"`
	SelectedColor string `json:"selectedColor,omitempty"`
	SelectedTheme string `json:"selectedTheme,omitempty"`
}

// looseItem accepts whatever a stored entry holds so that bad entries can be
// dropped one at a time instead of failing the whole cart.
type looseItem struct {
	ID            *string  `json:"id"`
	Name          *string  `json:"name"`
	Price         *float64 `json:"price"`
	Img           *string  `json:"img"`
	Qty           *float64 `json:"qty"`
	SelectedColor any      `json:"selectedColor"`
	SelectedTheme any      `json:"selectedTheme"`
}

func encodeItems(items []LineItem) (string, error) {
	out := make([]wireItem, 0, len(items))
	for _, it := range items {
		out = append(out, wireItem{
			ID:            it.ID,
			Name:          it.Name,
			Price:         it.Price,
			Img:           it.Image,
			Qty:           it.Quantity,
			SelectedColor: it.SelectedColor,
			SelectedTheme: it.SelectedVariant,
		})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("cart: encode: %w", err)
	}
	return string(b), nil
}

// decodeItems parses a stored cart. dirty is true when the stored value was
// absent, unreadable, or had to be cleaned and should be rewritten.
func decodeItems(raw string) (items []LineItem, dirty bool) {
	if raw == "" {
		return nil, true
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, true
	}
	if entries == nil {
		// JSON null
		return nil, true
	}

	items = make([]LineItem, 0, len(entries))
	for _, entry := range entries {
		item, clean, ok := decodeItem(entry)
		if !ok {
			dirty = true
			continue
		}
		if !clean {
			dirty = true
		}
		if merged := mergeInto(items, item); merged != nil {
			items = merged
			dirty = true
			continue
		}
		items = append(items, item)
	}
	return items, dirty
}

func decodeItem(entry json.RawMessage) (item LineItem, clean bool, ok bool) {
	var li looseItem
	if err := json.Unmarshal(entry, &li); err != nil {
		return LineItem{}, false, false
	}
	if li.ID == nil || li.Name == nil || li.Price == nil || li.Img == nil || *li.ID == "" {
		return LineItem{}, false, false
	}

	clean = true
	qty := 1
	if li.Qty == nil {
		clean = false
	} else {
		q := math.Trunc(*li.Qty)
		if q < 1 {
			return LineItem{}, false, false
		}
		if q > MaxQuantity {
			q = MaxQuantity
		}
		if q != *li.Qty {
			clean = false
		}
		qty = int(q)
	}

	price := math.Round(*li.Price)
	if price != *li.Price {
		clean = false
	}
	if price < 0 || price > maxUnitPrice {
		return LineItem{}, false, false
	}

	item = LineItem{
		ID:       *li.ID,
		Name:     *li.Name,
		Price:    int64(price),
		Image:    *li.Img,
		Quantity: qty,
	}
	if s, isStr := li.SelectedColor.(string); isStr {
		item.SelectedColor = s
	} else if li.SelectedColor != nil {
		clean = false
	}
	if s, isStr := li.SelectedTheme.(string); isStr {
		item.SelectedVariant = s
	} else if li.SelectedTheme != nil {
		clean = false
	}
	return item, clean, true
}

// mergeInto adds item's quantity to an existing identical line, capped at
// MaxQuantity. It returns nil when there is no such line.
func mergeInto(items []LineItem, item LineItem) []LineItem {
	for i := range items {
		if items[i].sameLine(item) {
			items[i].Quantity = clampQuantity(items[i].Quantity + item.Quantity)
			return items
		}
	}
	return nil
}
