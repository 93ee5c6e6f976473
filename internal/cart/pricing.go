package cart

// Pricing holds the delivery rules applied at checkout.
type Pricing struct {
	DeliveryFee           int64
	FreeDeliveryThreshold int64
}

var DefaultPricing = Pricing{
	DeliveryFee:           300,
	FreeDeliveryThreshold: 4000,
}

// Summary is the derived view of a cart used by the renderer and checkout.
type Summary struct {
	Items        []LineItem
	ItemCount    int
	Subtotal     int64
	Delivery     int64
	DeliveryFee  int64
	GrandTotal   int64
	FreeDelivery bool
	// RemainingForFree is how much more must be spent to reach free
	// delivery; zero once the threshold is met.
	RemainingForFree int64
}

func (s Summary) Empty() bool { return len(s.Items) == 0 }

func TotalItemCount(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func Subtotal(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotal()
	}
	return total
}

func (p Pricing) QualifiesForFreeDelivery(items []LineItem) bool {
	return Subtotal(items) >= p.FreeDeliveryThreshold
}

// DeliveryCharge is zero for an empty cart or when the subtotal reaches the
// free-delivery threshold, and the flat fee otherwise.
func (p Pricing) DeliveryCharge(items []LineItem) int64 {
	if len(items) == 0 || p.QualifiesForFreeDelivery(items) {
		return 0
	}
	return p.DeliveryFee
}

func (p Pricing) GrandTotal(items []LineItem) int64 {
	return Subtotal(items) + p.DeliveryCharge(items)
}

func (p Pricing) Summarize(items []LineItem) Summary {
	sub := Subtotal(items)
	s := Summary{
		Items:        items,
		ItemCount:    TotalItemCount(items),
		Subtotal:     sub,
		Delivery:     p.DeliveryCharge(items),
		DeliveryFee:  p.DeliveryFee,
		FreeDelivery: p.QualifiesForFreeDelivery(items),
	}
	s.GrandTotal = s.Subtotal + s.Delivery
	if !s.FreeDelivery {
		s.RemainingForFree = p.FreeDeliveryThreshold - sub
	}
	return s
}
