package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/classic-carry/internal/cart"
	"github.com/jcmexdev/classic-carry/internal/catalog"
	"github.com/jcmexdev/classic-carry/internal/checkout/orderlog"
	"github.com/jcmexdev/classic-carry/internal/pkg/cache"
)

const sid = "session-1"

type formsBackend struct {
	mu       sync.Mutex
	received map[string]map[string]string
	status   int
}

func newFormsBackend(t *testing.T, status int) (*formsBackend, *httptest.Server) {
	b := &formsBackend{received: make(map[string]map[string]string), status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())

		fields := make(map[string]string)
		for k := range r.PostForm {
			fields[k] = r.PostForm.Get(k)
		}
		b.mu.Lock()
		b.received[r.PostForm.Get("form-name")] = fields
		b.mu.Unlock()
		w.WriteHeader(b.status)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

type fixture struct {
	carts *cart.Store
	log   *orderlog.Memory
	svc   *Service
}

func newFixture(endpoint string) fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	carts := cart.NewStore(cache.NewMemoryCache("test"), cart.WithLogger(logger))
	log := orderlog.NewMemory()
	svc := NewService(carts, log, NewFormsClient(endpoint, time.Second), "923160928206", logger)
	svc.newID = func() string { return "ord-1" }
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return fixture{carts: carts, log: log, svc: svc}
}

func (f fixture) fillCart(ctx context.Context) {
	f.carts.Add(ctx, sid, catalog.NewProduct(catalog.Product{ID: "cap-1", Name: "Summer Breeze Cap", Price: 2799, MainImage: "c.png"}), "", 1)
	f.carts.Add(ctx, sid, catalog.NewProduct(catalog.Product{ID: "wal-1", Name: "Bi-Fold", Price: 1500, MainImage: "w.png"}), "Brown", 2)
}

func statuses(rows []orderlog.Entry) []orderlog.Status {
	out := make([]orderlog.Status, len(rows))
	for i, r := range rows {
		out[i] = r.Status
	}
	return out
}

func TestPlaceOrder_NotifiesBothForms(t *testing.T) {
	ctx := context.Background()
	backend, srv := newFormsBackend(t, http.StatusOK)
	f := newFixture(srv.URL)
	f.fillCart(ctx)

	order, err := f.svc.PlaceOrder(ctx, sid, validForm())
	require.NoError(t, err)

	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, int64(5799), order.Subtotal)
	assert.Equal(t, int64(0), order.Delivery)
	assert.Equal(t, int64(5799), order.GrandTotal)
	assert.Empty(t, order.Warnings)
	assert.Empty(t, f.carts.Load(ctx, sid))

	require.Contains(t, backend.received, OwnerFormName)
	require.Contains(t, backend.received, CustomerFormName)
	assert.Equal(t, "ord-1", backend.received[OwnerFormName]["orderId"])
	assert.Contains(t, backend.received[OwnerFormName]["orderDetails"], "Summer Breeze Cap")
	assert.Equal(t, "ayesha@example.com", backend.received[CustomerFormName]["email"])

	assert.Equal(t,
		[]orderlog.Status{orderlog.StatusPlaced, orderlog.StatusNotified, orderlog.StatusCompleted},
		statuses(f.log.History("ord-1")))
}

func TestPlaceOrder_BackendFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	_, srv := newFormsBackend(t, http.StatusInternalServerError)
	f := newFixture(srv.URL)
	f.fillCart(ctx)

	order, err := f.svc.PlaceOrder(ctx, sid, validForm())
	require.NoError(t, err)
	assert.Equal(t, []string{notifyWarning}, order.Warnings)
	assert.Empty(t, f.carts.Load(ctx, sid))

	latest, err := f.log.GetLatest(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, orderlog.StatusCompleted, latest.Status)
	assert.Equal(t, []string{notifyWarning}, latest.DecodeWarnings())
}

func TestPlaceOrder_FormsDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture("")
	f.fillCart(ctx)
	assert.False(t, f.svc.FormsEnabled())

	order, err := f.svc.PlaceOrder(ctx, sid, validForm())
	require.NoError(t, err)
	assert.Equal(t, []string{notifyWarning}, order.Warnings)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture("")

	_, err := f.svc.WhatsApp(context.Background(), sid, validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.svc.PlaceOrder(context.Background(), sid, validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.log.History("ord-1"))
}

func TestWhatsApp(t *testing.T) {
	ctx := context.Background()
	f := newFixture("")
	f.carts.Add(ctx, sid, catalog.NewProduct(catalog.Product{ID: "cap-1", Name: "Summer Breeze Cap", Price: 2799, MainImage: "c.png"}), "", 1)

	order, err := f.svc.WhatsApp(ctx, sid, validForm())
	require.NoError(t, err)
	assert.Contains(t, order.WhatsAppURL, "https://wa.me/923160928206?text=Hello%20Classic%20Carry%21")
	assert.Equal(t, int64(300), order.Delivery)
	assert.Equal(t, int64(3099), order.GrandTotal)
	assert.Empty(t, f.carts.Load(ctx, sid))
	assert.Equal(t,
		[]orderlog.Status{orderlog.StatusPlaced, orderlog.StatusCompleted},
		statuses(f.log.History("ord-1")))

	got, entry, err := f.svc.Lookup(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, orderlog.StatusCompleted, entry.Status)
	assert.Equal(t, order.WhatsAppURL, got.WhatsAppURL)
	assert.Equal(t, "Ayesha", got.Customer.FirstName)
	assert.Len(t, got.Items, 1)
}

func TestBuyNow(t *testing.T) {
	ctx := context.Background()
	f := newFixture("")
	p := catalog.NewProduct(catalog.Product{ID: "cap-1", Name: "Summer Breeze Cap", Price: 2799, Colors: []string{"Natural", "Beige"}})

	order, err := f.svc.BuyNow(ctx, p, 2, "Beige")
	require.NoError(t, err)
	assert.Equal(t, orderlog.ChannelBuyNow, order.Channel)
	assert.Equal(t, int64(5598), order.GrandTotal)
	assert.Contains(t, order.Message, "Summer Breeze Cap (Beige) x2 - Rs 5,598")
	assert.Empty(t, f.carts.Load(ctx, sid))

	_, entry, err := f.svc.Lookup(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, orderlog.StatusCompleted, entry.Status)
}

func TestLookup_NotFound(t *testing.T) {
	_, _, err := newFixture("").svc.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, orderlog.ErrNotFound)
}

func TestOrchestrator_CompensatesInReverse(t *testing.T) {
	ctx := context.Background()
	log := orderlog.NewMemory()
	var calls []string
	step := func(name string, status orderlog.Status, fail bool) Step {
		return Step{
			Name:   name,
			Status: status,
			Execute: func(context.Context, *Order) error {
				calls = append(calls, "exec "+name)
				if fail {
					return assert.AnError
				}
				return nil
			},
			Compensate: func(context.Context, *Order) error {
				calls = append(calls, "undo "+name)
				return nil
			},
		}
	}

	o := &Order{ID: "ord-9", Channel: orderlog.ChannelForms}
	err := NewOrchestrator([]Step{
		step("a", orderlog.StatusPlaced, false),
		step("b", "", false),
		step("c", orderlog.StatusNotified, true),
	}, log, slog.New(slog.NewTextHandler(io.Discard, nil))).Run(ctx, o)

	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"exec a", "exec b", "exec c", "undo b", "undo a"}, calls)

	rows := log.History("ord-9")
	assert.Equal(t, []orderlog.Status{orderlog.StatusPlaced, orderlog.StatusFailed}, statuses(rows))
	assert.NotEmpty(t, rows[0].Payload)
	assert.Empty(t, rows[1].Payload)
	assert.Equal(t, []string{assert.AnError.Error()}, rows[1].DecodeWarnings())
}

// flakyLog fails Save for the listed statuses and keeps every other row.
type flakyLog struct {
	*orderlog.Memory
	failOn map[orderlog.Status]bool
}

func (l *flakyLog) Save(ctx context.Context, e *orderlog.Entry) error {
	if l.failOn[e.Status] {
		return errors.New("disk I/O error")
	}
	return l.Memory.Save(ctx, e)
}

func newFlakyFixture(failOn ...orderlog.Status) (fixture, *flakyLog) {
	f := newFixture("")
	log := &flakyLog{Memory: f.log, failOn: make(map[orderlog.Status]bool)}
	for _, st := range failOn {
		log.failOn[st] = true
	}
	f.svc.log = log
	return f, log
}

func TestWhatsApp_CompletionNotLoggedRestoresCart(t *testing.T) {
	ctx := context.Background()
	f, _ := newFlakyFixture(orderlog.StatusCompleted)
	f.fillCart(ctx)
	before := f.carts.Load(ctx, sid)

	_, err := f.svc.WhatsApp(ctx, sid, validForm())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear_cart")

	assert.Equal(t, before, f.carts.Load(ctx, sid))

	rows := f.log.History("ord-1")
	assert.Equal(t, []orderlog.Status{orderlog.StatusPlaced, orderlog.StatusFailed}, statuses(rows))
	assert.Equal(t, "clear_cart", rows[1].Step)
	assert.Contains(t, rows[1].DecodeWarnings()[0], "disk I/O error")
}

func TestPlaceOrder_UnloggedOrderKeepsCart(t *testing.T) {
	ctx := context.Background()
	backend, srv := newFormsBackend(t, http.StatusOK)
	f := newFixture(srv.URL)
	f.svc.log = &flakyLog{Memory: f.log, failOn: map[orderlog.Status]bool{orderlog.StatusPlaced: true}}
	f.fillCart(ctx)

	_, err := f.svc.PlaceOrder(ctx, sid, validForm())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "place_order")

	assert.Len(t, f.carts.Load(ctx, sid), 2)
	assert.Empty(t, f.log.History("ord-1"))
	assert.Empty(t, backend.received)
}

func TestPlaceOrder_NotifiedRowIsBestEffort(t *testing.T) {
	ctx := context.Background()
	f, _ := newFlakyFixture(orderlog.StatusNotified)
	f.fillCart(ctx)

	_, err := f.svc.PlaceOrder(ctx, sid, validForm())
	require.NoError(t, err)
	assert.Empty(t, f.carts.Load(ctx, sid))
	assert.Equal(t,
		[]orderlog.Status{orderlog.StatusPlaced, orderlog.StatusCompleted},
		statuses(f.log.History("ord-1")))
}

func TestOrchestrator_DurableStepCompensatesItself(t *testing.T) {
	ctx := context.Background()
	log := &flakyLog{Memory: orderlog.NewMemory(), failOn: map[orderlog.Status]bool{orderlog.StatusNotified: true}}
	var calls []string
	step := func(name string, status orderlog.Status, durable bool) Step {
		return Step{
			Name:    name,
			Status:  status,
			Durable: durable,
			Execute: func(context.Context, *Order) error {
				calls = append(calls, "exec "+name)
				return nil
			},
			Compensate: func(context.Context, *Order) error {
				calls = append(calls, "undo "+name)
				return nil
			},
		}
	}

	o := &Order{ID: "ord-7", Channel: orderlog.ChannelForms}
	err := NewOrchestrator([]Step{
		step("a", orderlog.StatusPlaced, true),
		step("b", orderlog.StatusNotified, true),
		step("c", orderlog.StatusCompleted, true),
	}, log, slog.New(slog.NewTextHandler(io.Discard, nil))).Run(ctx, o)

	require.Error(t, err)
	assert.Equal(t, []string{"exec a", "exec b", "undo b", "undo a"}, calls)
	assert.Equal(t, []orderlog.Status{orderlog.StatusPlaced, orderlog.StatusFailed}, statuses(log.History("ord-7")))
}
