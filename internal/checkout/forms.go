package checkout

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	OwnerFormName    = "order-notification"
	CustomerFormName = "customer-confirmation"
)

// FormsClient posts url-encoded submissions to a hosted forms backend. The
// backend picks the form from the "form-name" field.
type FormsClient struct {
	endpoint string
	client   *http.Client
}

// NewFormsClient returns a client for endpoint. An empty endpoint yields a
// disabled client whose Submit always fails with ErrFormsDisabled.
func NewFormsClient(endpoint string, timeout time.Duration) *FormsClient {
	return &FormsClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *FormsClient) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Submit posts fields under formName. Any non-2xx answer is an error.
func (c *FormsClient) Submit(ctx context.Context, formName string, fields url.Values) error {
	if !c.Enabled() {
		return ErrFormsDisabled
	}

	body := url.Values{}
	for k, v := range fields {
		body[k] = append([]string(nil), v...)
	}
	body.Set("form-name", formName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body.Encode()))
	if err != nil {
		return fmt.Errorf("checkout: build %s request: %w", formName, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("checkout: submit %s: %w", formName, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("checkout: submit %s: unexpected status %d", formName, resp.StatusCode)
	}
	return nil
}

// ownerFields is the notification the shop receives for an order.
func ownerFields(o *Order) url.Values {
	v := customerFields(o)
	v.Set("orderDetails", o.Message)
	v.Set("itemCount", fmt.Sprint(o.ItemCount))
	return v
}

func customerFields(o *Order) url.Values {
	v := url.Values{}
	v.Set("orderId", o.ID)
	v.Set("total", fmt.Sprint(o.GrandTotal))
	if c := o.Customer; c != nil {
		v.Set("name", c.FullName())
		v.Set("email", c.Email)
		v.Set("phone", c.Phone)
		v.Set("address", c.Address)
		v.Set("city", c.City)
		v.Set("province", c.Province)
		v.Set("postalCode", c.PostalCode)
		v.Set("deliveryNotes", c.DeliveryNotes)
	}
	lines := make([]string, 0, len(o.Items))
	for _, l := range o.Items {
		lines = append(lines, fmt.Sprintf("%s x%d", lineLabel(l.Name, l.Color), l.Quantity))
	}
	v.Set("items", strings.Join(lines, "\n"))
	return v
}
