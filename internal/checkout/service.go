// Package checkout turns a cart into an order and hands it off to the shop,
// either as a prefilled WhatsApp chat or as form-backend notifications.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/classic-carry/internal/cart"
	"github.com/jcmexdev/classic-carry/internal/catalog"
	"github.com/jcmexdev/classic-carry/internal/checkout/orderlog"
)

var (
	ErrEmptyCart     = errors.New("checkout: cart is empty")
	ErrFormsDisabled = errors.New("checkout: forms endpoint not configured")
)

const notifyWarning = "We couldn't send your order confirmation, but your order was received. Our team will contact you shortly."

type Service struct {
	carts  *cart.Store
	log    orderlog.Repository
	forms  *FormsClient
	phone  string
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(carts *cart.Store, log orderlog.Repository, forms *FormsClient, whatsAppPhone string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		carts:  carts,
		log:    log,
		forms:  forms,
		phone:  whatsAppPhone,
		logger: logger.With("component", "checkout"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// FormsEnabled reports whether form-backend checkout is available.
func (s *Service) FormsEnabled() bool {
	return s.forms.Enabled()
}

func (s *Service) newOrder(channel orderlog.Channel, form *DeliveryForm) *Order {
	return &Order{
		ID:        s.newID(),
		Channel:   channel,
		Customer:  form,
		CreatedAt: s.now().UTC(),
	}
}

// WhatsApp checks out the session's cart through a WhatsApp chat. The
// returned order carries the wa.me link; the cart is cleared.
func (s *Service) WhatsApp(ctx context.Context, sessionID string, form DeliveryForm) (*Order, error) {
	order := s.newOrder(orderlog.ChannelWhatsApp, &form)
	var snap []cart.LineItem
	steps := []Step{
		s.snapshotStep(sessionID, &snap),
		s.placeStep(),
		s.clearStep(sessionID, &snap),
	}
	if err := NewOrchestrator(steps, s.log, s.logger).Run(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// PlaceOrder checks out the session's cart through the forms backend. A
// failed notification does not fail the order; it is reported in
// Order.Warnings instead.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, form DeliveryForm) (*Order, error) {
	order := s.newOrder(orderlog.ChannelForms, &form)
	var snap []cart.LineItem
	steps := []Step{
		s.snapshotStep(sessionID, &snap),
		s.placeStep(),
		s.notifyStep(),
		s.clearStep(sessionID, &snap),
	}
	if err := NewOrchestrator(steps, s.log, s.logger).Run(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// BuyNow hands a single product straight to WhatsApp without touching the
// cart.
func (s *Service) BuyNow(ctx context.Context, p catalog.Product, qty int, color string) (*Order, error) {
	item := cart.FromProduct(p, color, qty)
	order := s.newOrder(orderlog.ChannelBuyNow, nil)
	steps := []Step{
		{
			Name: "snapshot_product",
			Execute: func(_ context.Context, o *Order) error {
				o.fill([]cart.LineItem{item}, cart.Pricing{})
				o.Message = BuyNowMessage(p, item.Quantity, item.SelectedColor)
				o.WhatsAppURL = WhatsAppLink(s.phone, o.Message)
				return nil
			},
		},
		{
			Name:    "hand_off",
			Status:  orderlog.StatusCompleted,
			Execute: func(context.Context, *Order) error { return nil },
		},
	}
	if err := NewOrchestrator(steps, s.log, s.logger).Run(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Lookup loads an order and its latest log row.
func (s *Service) Lookup(ctx context.Context, orderID string) (*Order, *orderlog.Entry, error) {
	if s.log == nil {
		return nil, nil, orderlog.ErrNotFound
	}
	entry, err := s.log.GetLatest(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if entry.Payload == "" {
		return nil, entry, fmt.Errorf("checkout: order %s has no snapshot: %w", orderID, orderlog.ErrNotFound)
	}
	order, err := decodeOrder(entry.Payload)
	if err != nil {
		return nil, entry, err
	}
	order.Warnings = entry.DecodeWarnings()
	return order, entry, nil
}

// snapshotStep reads the cart into the order and keeps the lines in snap so
// that clearStep can put them back.
func (s *Service) snapshotStep(sessionID string, snap *[]cart.LineItem) Step {
	return Step{
		Name: "snapshot_cart",
		Execute: func(ctx context.Context, o *Order) error {
			items := s.carts.Load(ctx, sessionID)
			if len(items) == 0 {
				return ErrEmptyCart
			}
			*snap = items
			o.fill(items, s.carts.Pricing())
			o.Message = OrderMessage(o)
			o.WhatsAppURL = WhatsAppLink(s.phone, o.Message)
			return nil
		},
	}
}

func (s *Service) placeStep() Step {
	return Step{
		Name:    "place_order",
		Status:  orderlog.StatusPlaced,
		Durable: true,
		Execute: func(context.Context, *Order) error { return nil },
	}
}

// notifyStep posts the owner notification and the customer confirmation in
// parallel. Failures become warnings.
func (s *Service) notifyStep() Step {
	return Step{
		Name:   "notify",
		Status: orderlog.StatusNotified,
		Execute: func(ctx context.Context, o *Order) error {
			if !s.forms.Enabled() {
				s.logger.WarnContext(ctx, "forms endpoint not configured, skipping notifications", "order_id", o.ID)
				o.warn(notifyWarning)
				return nil
			}

			// The posts outlive a client that disconnects mid-checkout.
			ctx = context.WithoutCancel(ctx)
			var g errgroup.Group
			for name, fields := range map[string]func(*Order) url.Values{
				OwnerFormName:    ownerFields,
				CustomerFormName: customerFields,
			} {
				g.Go(func() error {
					if err := s.forms.Submit(ctx, name, fields(o)); err != nil {
						s.logger.WarnContext(ctx, "form submission failed", "order_id", o.ID, "form", name, "error", err)
						return err
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				o.warn(notifyWarning)
			}
			return nil
		},
	}
}

// clearStep empties the cart. The cart is only left empty once the
// completed order is logged; otherwise the snapshot is restored.
func (s *Service) clearStep(sessionID string, snap *[]cart.LineItem) Step {
	return Step{
		Name:    "clear_cart",
		Status:  orderlog.StatusCompleted,
		Durable: true,
		Execute: func(ctx context.Context, _ *Order) error {
			s.carts.Clear(ctx, sessionID)
			return nil
		},
		Compensate: func(ctx context.Context, o *Order) error {
			s.logger.WarnContext(ctx, "restoring cart", "order_id", o.ID, "items", len(*snap))
			s.carts.Save(ctx, sessionID, *snap)
			return nil
		},
	}
}
