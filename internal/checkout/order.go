package checkout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jcmexdev/classic-carry/internal/cart"
	"github.com/jcmexdev/classic-carry/internal/checkout/orderlog"
)

type OrderLine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Price    int64  `json:"price"`
	Quantity int    `json:"qty"`
	Total    int64  `json:"total"`
}

// Order is the snapshot of a checkout. It is stored as the order log payload
// and drives the receipt and the WhatsApp handoff.
type Order struct {
	ID          string           `json:"id"`
	Channel     orderlog.Channel `json:"channel"`
	Items       []OrderLine      `json:"items"`
	ItemCount   int              `json:"item_count"`
	Subtotal    int64            `json:"subtotal"`
	Delivery    int64            `json:"delivery"`
	GrandTotal  int64            `json:"grand_total"`
	Customer    *DeliveryForm    `json:"customer,omitempty"`
	Message     string           `json:"message"`
	WhatsAppURL string           `json:"whatsapp_url,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`

	// Warnings collects non-fatal problems hit while processing the order.
	Warnings []string `json:"-"`
}

func (o *Order) fill(items []cart.LineItem, pricing cart.Pricing) {
	s := pricing.Summarize(items)
	o.Items = make([]OrderLine, 0, len(items))
	for _, it := range items {
		o.Items = append(o.Items, OrderLine{
			ID:       it.ID,
			Name:     it.Name,
			Color:    it.SelectedColor,
			Price:    it.Price,
			Quantity: it.Quantity,
			Total:    it.LineTotal(),
		})
	}
	o.ItemCount = s.ItemCount
	o.Subtotal = s.Subtotal
	o.Delivery = s.Delivery
	o.GrandTotal = s.GrandTotal
}

func (o *Order) warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
}

func (o *Order) encode() (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("checkout: encode order %s: %w", o.ID, err)
	}
	return string(b), nil
}

func decodeOrder(payload string) (*Order, error) {
	var o Order
	if err := json.Unmarshal([]byte(payload), &o); err != nil {
		return nil, fmt.Errorf("checkout: decode order: %w", err)
	}
	return &o, nil
}
