// Package render turns catalog and cart data into view models. Nothing here
// touches HTTP or storage; the Templates adapter turns the view models into
// HTML.
package render

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/jcmexdev/classic-carry/internal/cart"
	"github.com/jcmexdev/classic-carry/internal/catalog"
)

const (
	// AddedFeedback is how long an add-to-cart button stays in its added state.
	AddedFeedback = 2 * time.Second
	// NotificationTTL is how long a toast stays up before dismissing itself.
	NotificationTTL = 4 * time.Second
	// HeroInterval is the home carousel auto-advance delay.
	HeroInterval = 5 * time.Second

	defaultDescription = "Premium quality product from Classic Carry."
)

var defaultFeatures = []string{
	"Premium Quality Materials",
	"Durable Construction",
	"Modern Design",
	"Comfortable Fit",
}

// Money formats an amount in the shop currency, e.g. "Rs 2,799".
func Money(amount int64) string {
	return catalog.FormatPrice(amount)
}

// ProductURL is the detail page link for a product id.
func ProductURL(id string) string {
	return "/product?id=" + url.QueryEscape(id)
}

type ButtonState string

const (
	ButtonIdle  ButtonState = "idle"
	ButtonAdded ButtonState = "added"
)

type Button struct {
	ProductID string      `json:"product_id"`
	State     ButtonState `json:"state"`
	Label     string      `json:"label"`
	Disabled  bool        `json:"disabled"`
	// ResetAfterMs is set in the added state; the page flips the button
	// back to idle once it elapses.
	ResetAfterMs int64 `json:"reset_after_ms,omitempty"`
}

// AddToCartButton builds the button for one state of the idle -> added -> idle
// cycle.
func AddToCartButton(productID string, state ButtonState) Button {
	if state == ButtonAdded {
		return Button{
			ProductID:    productID,
			State:        ButtonAdded,
			Label:        "✓ Added to Cart",
			Disabled:     true,
			ResetAfterMs: AddedFeedback.Milliseconds(),
		}
	}
	return Button{ProductID: productID, State: ButtonIdle, Label: "Add to Cart"}
}

type Card struct {
	ID       string
	Name     string
	URL      string
	Image    string
	Tag      string
	Category string
	Price    string
	Button   Button
}

func ProductCard(p catalog.Product) Card {
	return Card{
		ID:       p.ID,
		Name:     p.Name,
		URL:      ProductURL(p.ID),
		Image:    p.MainImage,
		Tag:      p.Tag,
		Category: p.Category,
		Price:    p.FormattedPrice(),
		Button:   AddToCartButton(p.ID, ButtonIdle),
	}
}

func ProductCards(products []catalog.Product) []Card {
	cards := make([]Card, 0, len(products))
	for _, p := range products {
		cards = append(cards, ProductCard(p))
	}
	return cards
}

type EmptyState struct {
	Title       string
	Message     string
	ActionLabel string
	ActionURL   string
}

type Grid struct {
	Cards []Card
	// Empty is set instead of Cards when there is nothing to show.
	Empty *EmptyState
}

// ProductGrid lays out product cards. With no products it carries the empty state
// whose action leads to recoveryURL.
func ProductGrid(products []catalog.Product, recoveryURL string) Grid {
	if len(products) == 0 {
		return Grid{Empty: &EmptyState{
			Title:       "No products found",
			Message:     "We couldn't find any products in this category. Try selecting a different category.",
			ActionLabel: "View All Products",
			ActionURL:   recoveryURL,
		}}
	}
	return Grid{Cards: ProductCards(products)}
}

type Pill struct {
	Category string
	Label    string
	URL      string
	Active   bool
}

type Filter struct {
	Section string
	Pills   []Pill
	Grid    Grid
	Count   int
}

// CategoryFilter builds the pill row for a listing section, the grid filtered
// to the selected category and the visible product count. Unknown selections
// fall back to "all".
func CategoryFilter(section string, products []catalog.Product, selected string) Filter {
	var categories []string
	for _, p := range products {
		if p.Category != "" && !slices.Contains(categories, p.Category) {
			categories = append(categories, p.Category)
		}
	}
	if !slices.Contains(categories, selected) {
		selected = catalog.CategoryAll
	}

	base := "/" + section
	pills := []Pill{{Category: catalog.CategoryAll, Label: "All", URL: base, Active: selected == catalog.CategoryAll}}
	for _, c := range categories {
		pills = append(pills, Pill{
			Category: c,
			Label:    categoryLabel(c),
			URL:      base + "?category=" + url.QueryEscape(c),
			Active:   c == selected,
		})
	}

	visible := catalog.FilterByCategory(products, selected)
	return Filter{
		Section: section,
		Pills:   pills,
		Grid:    ProductGrid(visible, base),
		Count:   len(visible),
	}
}

func categoryLabel(c string) string {
	switch c {
	case "cardholder":
		return "Card Holders"
	case "long":
		return "Long Wallets"
	}
	if c == "" {
		return c
	}
	return strings.ToUpper(c[:1]) + c[1:]
}

type CartLine struct {
	ID            string
	Color         string
	Name          string
	Image         string
	UnitPrice     string
	Quantity      int
	LineTotal     string
	Breakdown     string
	MinusDisabled bool
}

func RenderCartLine(it cart.LineItem) CartLine {
	return CartLine{
		ID:            it.ID,
		Color:         it.SelectedColor,
		Name:          it.Name,
		Image:         it.Image,
		UnitPrice:     Money(it.Price) + " each",
		Quantity:      it.Quantity,
		LineTotal:     Money(it.LineTotal()),
		Breakdown:     fmt.Sprintf("%d × %s", it.Quantity, Money(it.Price)),
		MinusDisabled: it.Quantity <= 1,
	}
}

func CartLines(items []cart.LineItem) []CartLine {
	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, RenderCartLine(it))
	}
	return lines
}

type Totals struct {
	Empty        bool
	ItemCount    int
	Subtotal     string
	Delivery     string
	DeliveryFee  string
	FreeDelivery bool
	GrandTotal   string
	// Hint nudges toward free delivery; empty once it applies.
	Hint string
}

// CartSummary formats a cart summary. When delivery is free the regular fee
// is kept in DeliveryFee so it can be shown struck through next to "FREE".
func CartSummary(s cart.Summary) Totals {
	t := Totals{
		Empty:        s.Empty(),
		ItemCount:    s.ItemCount,
		Subtotal:     Money(s.Subtotal),
		Delivery:     Money(s.Delivery),
		DeliveryFee:  Money(s.DeliveryFee),
		FreeDelivery: s.FreeDelivery && !s.Empty(),
		GrandTotal:   Money(s.GrandTotal),
	}
	if t.FreeDelivery {
		t.Delivery = "FREE"
	} else if !t.Empty && s.RemainingForFree > 0 {
		t.Hint = fmt.Sprintf("Add %s more for free delivery", Money(s.RemainingForFree))
	}
	return t
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

type Notification struct {
	Message        string           `json:"message"`
	Kind           NotificationKind `json:"kind"`
	Icon           string           `json:"icon"`
	DismissAfterMs int64            `json:"dismiss_after_ms"`
}

func Notify(message string, kind NotificationKind) Notification {
	icon := "fas fa-exclamation-circle"
	switch kind {
	case NotifySuccess:
		icon = "fas fa-check-circle"
	case NotifyWarning, NotifyError:
	default:
		kind = NotifySuccess
		icon = "fas fa-check-circle"
	}
	return Notification{
		Message:        message,
		Kind:           kind,
		Icon:           icon,
		DismissAfterMs: NotificationTTL.Milliseconds(),
	}
}

type Link struct {
	Label string
	URL   string
}

type NotFoundView struct {
	Title   string
	Message string
	Links   []Link
}

func NotFound() NotFoundView {
	return NotFoundView{
		Title:   "Product Not Found",
		Message: "Sorry, the product you're looking for doesn't exist or has been removed.",
		Links: []Link{
			{Label: "Back to Home", URL: "/"},
			{Label: "Browse Caps", URL: "/caps"},
			{Label: "Browse Wallets", URL: "/wallets"},
		},
	}
}

type NavLink struct {
	Label  string
	URL    string
	Active bool
}

type NavView struct {
	Links     []NavLink
	CartURL   string
	CartCount int
	// BadgeHidden is true for an empty cart.
	BadgeHidden bool
	// MenuID ties the mobile open/close controls, backdrop and panel together.
	MenuID string
}

func Nav(path string, cartCount int) NavView {
	links := []NavLink{
		{Label: "Home", URL: "/"},
		{Label: "Caps", URL: "/caps"},
		{Label: "Wallets", URL: "/wallets"},
	}
	for i := range links {
		links[i].Active = links[i].URL == path
	}
	return NavView{
		Links:       links,
		CartURL:     "/checkout",
		CartCount:   cartCount,
		BadgeHidden: cartCount <= 0,
		MenuID:      "mobile-menu",
	}
}

type Slide struct {
	Title    string
	Subtitle string
	Image    string
	CTA      Link
	Active   bool
}

type Hero struct {
	Slides     []Slide
	IntervalMs int64
}

func HeroSlides() Hero {
	return Hero{
		IntervalMs: HeroInterval.Milliseconds(),
		Slides: []Slide{
			{
				Title:    "Classic Carry",
				Subtitle: "Caps and wallets made to be carried every day.",
				Image:    "assets/images/hero/1.png",
				CTA:      Link{Label: "Shop Hot Picks", URL: "/#hot"},
				Active:   true,
			},
			{
				Title:    "Caps for Every Season",
				Subtitle: "Breathable summer styles and warm winter knits.",
				Image:    "assets/images/hero/2.png",
				CTA:      Link{Label: "Browse Caps", URL: "/caps"},
			},
			{
				Title:    "Wallets That Last",
				Subtitle: "Genuine leather bi-folds, card holders and long wallets.",
				Image:    "assets/images/hero/3.png",
				CTA:      Link{Label: "Browse Wallets", URL: "/wallets"},
			},
		},
	}
}
