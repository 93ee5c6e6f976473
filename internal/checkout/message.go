package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jcmexdev/classic-carry/internal/catalog"
)

const greeting = "Hello Classic Carry!"

// WhatsAppLink builds a wa.me deep link that opens a chat with phone and
// message prefilled.
func WhatsAppLink(phone, message string) string {
	phone = strings.TrimPrefix(phoneSeparators.Replace(phone), "+")
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + phone + "?text=" + text
}

// OrderMessage is the order summary sent to the shop: numbered lines, totals
// and, when given, the delivery details.
func OrderMessage(o *Order) string {
	var b strings.Builder
	b.WriteString(greeting + "\n\nI would like to place an order:\n")
	for i, l := range o.Items {
		fmt.Fprintf(&b, "%d. %s x%d - %s\n", i+1, lineLabel(l.Name, l.Color), l.Quantity, catalog.FormatPrice(l.Total))
	}

	b.WriteString("\nSubtotal: " + catalog.FormatPrice(o.Subtotal) + "\n")
	if o.Delivery == 0 {
		b.WriteString("Delivery: FREE\n")
	} else {
		b.WriteString("Delivery: " + catalog.FormatPrice(o.Delivery) + "\n")
	}
	b.WriteString("Total: " + catalog.FormatPrice(o.GrandTotal))

	if o.Customer != nil {
		b.WriteString(deliveryBlock(*o.Customer))
	}
	if o.ID != "" {
		b.WriteString("\n\nOrder ref: " + o.ID)
	}
	return b.String()
}

// BuyNowMessage is the single-product request sent from a product page.
func BuyNowMessage(p catalog.Product, qty int, color string) string {
	if qty < 1 {
		qty = 1
	}
	total := catalog.FormatPrice(p.Price * int64(qty))
	return fmt.Sprintf("%s\n\nI would like to buy:\n%s x%d - %s\n\nTotal: %s",
		greeting, lineLabel(p.Name, color), qty, total, total)
}

func lineLabel(name, color string) string {
	if color == "" {
		return name
	}
	return name + " (" + color + ")"
}

func deliveryBlock(f DeliveryForm) string {
	if f.FirstName == "" && f.LastName == "" && f.Phone == "" && f.Address == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nDelivery Information:\n")
	if name := f.FullName(); name != "" {
		b.WriteString("Name: " + name + "\n")
	}
	for _, row := range []struct{ label, value string }{
		{"Phone", f.Phone},
		{"Email", f.Email},
		{"Address", f.Address},
		{"City", f.City},
		{"Province", f.Province},
		{"Postal Code", f.PostalCode},
		{"Delivery Notes", f.DeliveryNotes},
	} {
		if row.value != "" {
			b.WriteString(row.label + ": " + row.value + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
