package httpx

import "github.com/jcmexdev/classic-carry/internal/render"

type AddToCartResponse struct {
	CartCount    int                 `json:"cart_count"`
	Notification render.Notification `json:"notification"`
	Button       render.Button       `json:"button"`
}

type CartItemResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"img"`
	Color     string `json:"selected_color,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"qty"`
	LineTotal int64  `json:"line_total"`
}

type CartResponse struct {
	Items            []CartItemResponse `json:"items"`
	ItemCount        int                `json:"item_count"`
	Subtotal         int64              `json:"subtotal"`
	Delivery         int64              `json:"delivery"`
	GrandTotal       int64              `json:"grand_total"`
	FreeDelivery     bool               `json:"free_delivery"`
	RemainingForFree int64              `json:"remaining_for_free"`
	Display          CartDisplay        `json:"display"`
}

// CartDisplay carries the same totals formatted for the page.
type CartDisplay struct {
	Subtotal   string `json:"subtotal"`
	Delivery   string `json:"delivery"`
	GrandTotal string `json:"grand_total"`
	Hint       string `json:"hint,omitempty"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
