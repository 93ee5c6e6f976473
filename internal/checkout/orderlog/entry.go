// Package orderlog records every state transition of a checkout.
//
// The log is append-only. The latest row for an order id is its current
// state, and the trace id on each row links it to the request trace.
package orderlog

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusNotified  Status = "NOTIFIED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Channel is how the order left the shop.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelForms    Channel = "forms"
	ChannelBuyNow   Channel = "buy_now"
)

var ErrNotFound = errors.New("orderlog: order not found")

type Entry struct {
	OrderID string
	Status  Status
	Channel Channel

	// Step names the checkout step that produced this row.
	Step string

	// Payload is the JSON order snapshot. Only the first row of an order
	// stores it; GetLatest fills it in from there.
	Payload string

	// Warnings is a JSON array of non-fatal problems, e.g. a forms backend
	// that could not be reached.
	Warnings string

	TraceID   string
	SpanID    string
	UpdatedAt time.Time
}
