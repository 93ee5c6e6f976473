// Package cart implements the shopper's cart: an ordered list of line items
// persisted as one JSON array per session in the key-value cache.
//
// Storage failures never reach callers. They are logged and the cart reads
// as empty, so a broken cache degrades the shop instead of breaking it.
package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jcmexdev/classic-carry/internal/catalog"
	"github.com/jcmexdev/classic-carry/internal/pkg/cache"
)

// StorageKey is the per-session cache operation name for the cart.
const StorageKey = "cc_cart"

// BadgeFunc is called after every save with the new total item count.
type BadgeFunc func(ctx context.Context, sessionID string, count int)

type Store struct {
	cache   cache.Cache
	ttl     time.Duration
	pricing Pricing
	logger  *slog.Logger
	badges  []BadgeFunc
	locks   keyedMutex
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func WithPricing(p Pricing) Option {
	return func(s *Store) { s.pricing = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithBadge registers a listener for item-count changes.
func WithBadge(fn BadgeFunc) Option {
	return func(s *Store) { s.badges = append(s.badges, fn) }
}

func NewStore(c cache.Cache, opts ...Option) *Store {
	s := &Store{
		cache:   c,
		pricing: DefaultPricing,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "cart")
	return s
}

func (s *Store) Pricing() Pricing { return s.pricing }

func (s *Store) key(sessionID string) string {
	return s.cache.GenerateKey(StorageKey, sessionID)
}

// Load returns the session's cart. Missing or corrupt data reads as an empty
// cart and the stored value is rewritten in normalized form.
func (s *Store) Load(ctx context.Context, sessionID string) []LineItem {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	return s.load(ctx, sessionID)
}

func (s *Store) load(ctx context.Context, sessionID string) []LineItem {
	raw, err := s.cache.Get(ctx, s.key(sessionID))
	if err != nil {
		s.logger.ErrorContext(ctx, "error loading cart", "session_id", sessionID, "error", err)
		return []LineItem{}
	}

	items, dirty := decodeItems(raw)
	if items == nil {
		items = []LineItem{}
	}
	if dirty {
		s.logger.InfoContext(ctx, "normalizing stored cart", "session_id", sessionID, "valid_items", len(items))
		s.save(ctx, sessionID, items)
	}
	return items
}

// Save replaces the stored cart with items and refreshes the badge.
func (s *Store) Save(ctx context.Context, sessionID string, items []LineItem) {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	s.save(ctx, sessionID, items)
}

func (s *Store) save(ctx context.Context, sessionID string, items []LineItem) {
	raw, err := encodeItems(items)
	if err != nil {
		s.logger.ErrorContext(ctx, "error saving cart", "session_id", sessionID, "error", err)
		return
	}
	if err := s.cache.Set(ctx, s.key(sessionID), raw, s.ttl); err != nil {
		s.logger.ErrorContext(ctx, "error saving cart", "session_id", sessionID, "error", err)
		return
	}

	count := TotalItemCount(items)
	for _, badge := range s.badges {
		badge(ctx, sessionID, count)
	}
}

func (s *Store) mutate(ctx context.Context, sessionID string, fn func([]LineItem) ([]LineItem, bool)) []LineItem {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	items, changed := fn(s.load(ctx, sessionID))
	if changed {
		s.save(ctx, sessionID, items)
	}
	return items
}

// Add puts qty units of product into the cart with the given color. A line
// with the same product and color has its quantity increased; otherwise a
// new line is appended.
func (s *Store) Add(ctx context.Context, sessionID string, product catalog.Product, color string, qty int) []LineItem {
	return s.AddItem(ctx, sessionID, FromProduct(product, color, qty))
}

// AddItem is Add for an already built line item.
func (s *Store) AddItem(ctx context.Context, sessionID string, item LineItem) []LineItem {
	item.Quantity = clampQuantity(item.Quantity)
	return s.mutate(ctx, sessionID, func(items []LineItem) ([]LineItem, bool) {
		if merged := mergeInto(items, item); merged != nil {
			s.logger.DebugContext(ctx, "increased quantity", "product_id", item.ID, "color", item.SelectedColor)
			return merged, true
		}
		s.logger.DebugContext(ctx, "added new item", "product_id", item.ID, "color", item.SelectedColor)
		return append(items, item), true
	})
}

// Remove drops the lines for product id; an empty color removes every color.
func (s *Store) Remove(ctx context.Context, sessionID, id, color string) []LineItem {
	return s.mutate(ctx, sessionID, func(items []LineItem) ([]LineItem, bool) {
		kept := items[:0]
		for _, it := range items {
			if !it.matches(id, color) {
				kept = append(kept, it)
			}
		}
		return kept, true
	})
}

// SetQuantity sets the quantity of the first line matching id and color,
// capped at MaxQuantity. A quantity of zero or less removes that line.
func (s *Store) SetQuantity(ctx context.Context, sessionID, id, color string, qty int) []LineItem {
	return s.mutate(ctx, sessionID, func(items []LineItem) ([]LineItem, bool) {
		for i := range items {
			if !items[i].matches(id, color) {
				continue
			}
			if qty <= 0 {
				return append(items[:i], items[i+1:]...), true
			}
			items[i].Quantity = clampQuantity(qty)
			return items, true
		}
		s.logger.WarnContext(ctx, "item not found in cart", "product_id", id, "color", color)
		return items, false
	})
}

func (s *Store) Clear(ctx context.Context, sessionID string) {
	s.Save(ctx, sessionID, []LineItem{})
}

func (s *Store) TotalItemCount(ctx context.Context, sessionID string) int {
	return TotalItemCount(s.Load(ctx, sessionID))
}

func (s *Store) Subtotal(ctx context.Context, sessionID string) int64 {
	return Subtotal(s.Load(ctx, sessionID))
}

func (s *Store) DeliveryCharge(ctx context.Context, sessionID string) int64 {
	return s.pricing.DeliveryCharge(s.Load(ctx, sessionID))
}

func (s *Store) QualifiesForFreeDelivery(ctx context.Context, sessionID string) bool {
	return s.pricing.QualifiesForFreeDelivery(s.Load(ctx, sessionID))
}

func (s *Store) GrandTotal(ctx context.Context, sessionID string) int64 {
	return s.pricing.GrandTotal(s.Load(ctx, sessionID))
}

func (s *Store) Summary(ctx context.Context, sessionID string) Summary {
	return s.pricing.Summarize(s.Load(ctx, sessionID))
}

// keyedMutex serializes read-modify-write cycles per session inside this
// process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
