package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/jcmexdev/classic-carry/internal/cart"
	"github.com/jcmexdev/classic-carry/internal/catalog"
	"github.com/jcmexdev/classic-carry/internal/checkout"
	"github.com/jcmexdev/classic-carry/internal/checkout/orderlog"
	"github.com/jcmexdev/classic-carry/internal/pkg/session"
	"github.com/jcmexdev/classic-carry/internal/render"
	"github.com/jcmexdev/classic-carry/internal/storefront/httpx/middlewares"
)

const hotRowSize = 4

// HealthCheck is a named dependency probe for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the storefront pages, cart actions and checkout flows.
type Handler struct {
	catalog   *catalog.Catalog
	carts     *cart.Store
	checkout  *checkout.Service
	templates *render.Templates
	sessions  *session.Manager
	checks    []HealthCheck
	// checkoutLimit is set by NewRouter; nil means unlimited.
	checkoutLimit *middlewares.Limiter
}

func NewHandler(
	cat *catalog.Catalog,
	carts *cart.Store,
	co *checkout.Service,
	tmpl *render.Templates,
	sessions *session.Manager,
	checks ...HealthCheck,
) *Handler {
	return &Handler{
		catalog:   cat,
		carts:     carts,
		checkout:  co,
		templates: tmpl,
		sessions:  sessions,
		checks:    checks,
	}
}

// --- pages ---

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, render.PageHome, render.HomePage{
		Page:       h.page(w, r, "Home"),
		Hero:       render.HeroSlides(),
		Featured:   render.ProductCards(h.catalog.Featured()),
		HotCaps:    render.ProductCards(firstN(h.catalog.Caps(), hotRowSize)),
		HotWallets: render.ProductCards(firstN(h.catalog.Wallets(), hotRowSize)),
	})
}

func (h *Handler) Caps(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, catalog.CollectionCaps, "Caps", "Caps for every season and every style.")
}

func (h *Handler) Wallets(w http.ResponseWriter, r *http.Request) {
	h.listing(w, r, catalog.CollectionWallets, "Wallets", "Leather wallets, card holders and long wallets.")
}

func (h *Handler) listing(w http.ResponseWriter, r *http.Request, col catalog.Collection, heading, intro string) {
	h.renderPage(w, r, http.StatusOK, render.PageListing, render.ListingPage{
		Page:    h.page(w, r, heading),
		Heading: heading,
		Intro:   intro,
		Filter:  render.CategoryFilter(string(col), h.catalog.Collection(col), r.URL.Query().Get("category")),
	})
}

// Product renders the detail page. A missing or unknown id renders the
// not-found view with a 404.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, ok := h.catalog.FindByID(q.Get("id"))
	if !ok {
		slog.InfoContext(r.Context(), "product not found", "product_id", q.Get("id"))
		nf := render.NotFound()
		h.renderPage(w, r, http.StatusNotFound, render.PageProduct, render.ProductPage{
			Page:     h.page(w, r, "Product Not Found"),
			NotFound: &nf,
		})
		return
	}

	if c := q.Get("color"); c != "" {
		p.SelectColor(c)
	}
	detail := render.Detail(p, cast.ToInt(q.Get("qty")))
	h.renderPage(w, r, http.StatusOK, render.PageProduct, render.ProductPage{
		Page:    h.page(w, r, p.Name),
		Product: &detail,
	})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.renderCheckout(w, r, http.StatusOK, render.FormView{})
}

func (h *Handler) renderCheckout(w http.ResponseWriter, r *http.Request, status int, form render.FormView) {
	summary := h.carts.Summary(r.Context(), middlewares.CartID(r.Context()))
	h.renderPage(w, r, status, render.PageCheckout, render.CheckoutPage{
		Page:         h.page(w, r, "Checkout"),
		Lines:        render.CartLines(summary.Items),
		Totals:       render.CartSummary(summary),
		Form:         form,
		FormsEnabled: h.checkout.FormsEnabled(),
	})
}

// Success shows the outcome of a checkout. Unknown orders still get the
// generic confirmation.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	data := render.SuccessPage{
		Heading: "Order Placed Successfully!",
		Message: "Our team will contact you shortly to confirm your order and arrange delivery.",
	}

	if id := r.URL.Query().Get("order"); id != "" {
		order, _, err := h.checkout.Lookup(r.Context(), id)
		switch {
		case err == nil:
			if order.Channel == orderlog.ChannelWhatsApp {
				data.Message = "Your order is ready. Send it to us on WhatsApp and our team will confirm delivery."
				data.OpenWhatsApp = true
			}
			data.OrderID = order.ID
			data.Channel = string(order.Channel)
			data.Warnings = order.Warnings
			data.WhatsAppURL = order.WhatsAppURL
			data.ReceiptURL = "/orders/" + url.PathEscape(order.ID) + "/receipt.pdf"
			data.QRCodeURL = "/orders/" + url.PathEscape(order.ID) + "/whatsapp.png"
		case errors.Is(err, orderlog.ErrNotFound):
			slog.InfoContext(r.Context(), "success page for unknown order", "order_id", id)
		default:
			slog.ErrorContext(r.Context(), "error loading order", "order_id", id, "error", err)
		}
	}

	data.Page = h.page(w, r, "Order Placed")
	h.renderPage(w, r, http.StatusOK, render.PageSuccess, data)
}

// --- cart actions ---

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid_form", err.Error())
		return
	}

	p, ok := h.catalog.FindByID(r.PostForm.Get("id"))
	if !ok {
		h.fail(w, r, http.StatusNotFound, "product_not_found", "That product is no longer available.")
		return
	}

	ctx := r.Context()
	cartID := middlewares.CartID(ctx)
	qty := max(1, cast.ToInt(r.PostForm.Get("qty")))
	items := h.carts.Add(ctx, cartID, p, r.PostForm.Get("color"), qty)
	note := render.Notify(p.Name+" added to cart!", render.NotifySuccess)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, AddToCartResponse{
			CartCount:    cart.TotalItemCount(items),
			Notification: note,
			Button:       render.AddToCartButton(p.ID, render.ButtonAdded),
		})
		return
	}
	h.flash(w, r, note)
	redirectBack(w, r, render.ProductURL(p.ID))
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid_form", err.Error())
		return
	}
	ctx := r.Context()
	h.carts.SetQuantity(ctx, middlewares.CartID(ctx), chi.URLParam(r, "id"), r.PostForm.Get("color"), cast.ToInt(r.PostForm.Get("qty")))
	h.cartChanged(w, r)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid_form", err.Error())
		return
	}
	ctx := r.Context()
	h.carts.Remove(ctx, middlewares.CartID(ctx), chi.URLParam(r, "id"), r.PostForm.Get("color"))
	if !wantsJSON(r) {
		h.flash(w, r, render.Notify("Item removed from cart", render.NotifySuccess))
	}
	h.cartChanged(w, r)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.carts.Clear(ctx, middlewares.CartID(ctx))
	h.cartChanged(w, r)
}

func (h *Handler) cartChanged(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		h.CartJSON(w, r)
		return
	}
	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
}

// CartJSON serves the shopper's cart and totals.
func (h *Handler) CartJSON(w http.ResponseWriter, r *http.Request) {
	summary := h.carts.Summary(r.Context(), middlewares.CartID(r.Context()))
	writeJSON(w, http.StatusOK, mapCartToResponse(summary))
}

// --- checkout ---

func (h *Handler) CheckoutWhatsApp(w http.ResponseWriter, r *http.Request) {
	form, ok := h.deliveryForm(w, r, false)
	if !ok || !h.allowCheckout(w, r) {
		return
	}

	order, err := h.checkout.WhatsApp(r.Context(), middlewares.CartID(r.Context()), form)
	if err != nil {
		h.checkoutFailed(w, r, err)
		return
	}
	http.Redirect(w, r, successURL(order.ID), http.StatusSeeOther)
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	form, ok := h.deliveryForm(w, r, true)
	if !ok || !h.allowCheckout(w, r) {
		return
	}

	order, err := h.checkout.PlaceOrder(r.Context(), middlewares.CartID(r.Context()), form)
	if err != nil {
		h.checkoutFailed(w, r, err)
		return
	}
	for _, msg := range order.Warnings {
		h.flash(w, r, render.Notify(msg, render.NotifyWarning))
	}
	http.Redirect(w, r, successURL(order.ID), http.StatusSeeOther)
}

func successURL(orderID string) string {
	return "/success?order=" + url.QueryEscape(orderID)
}

// BuyNow hands a single product to WhatsApp straight from the product page.
func (h *Handler) BuyNow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, ok := h.catalog.FindByID(q.Get("id"))
	if !ok {
		nf := render.NotFound()
		h.renderPage(w, r, http.StatusNotFound, render.PageProduct, render.ProductPage{
			Page:     h.page(w, r, "Product Not Found"),
			NotFound: &nf,
		})
		return
	}

	order, err := h.checkout.BuyNow(r.Context(), p, cast.ToInt(q.Get("qty")), q.Get("color"))
	if err != nil {
		h.checkoutFailed(w, r, err)
		return
	}
	http.Redirect(w, r, order.WhatsAppURL, http.StatusSeeOther)
}

// deliveryForm decodes and validates the posted form. On failure it has
// already re-rendered the checkout page.
func (h *Handler) deliveryForm(w http.ResponseWriter, r *http.Request, requireEmail bool) (checkout.DeliveryForm, bool) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid_form", err.Error())
		return checkout.DeliveryForm{}, false
	}

	form, err := checkout.DecodeDeliveryForm(r.PostForm)
	if err == nil {
		err = form.Validate(requireEmail)
	}
	if err == nil {
		return form, true
	}

	view := render.FormView{Values: form.Values()}
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		view.Errors = verr.Messages()
		view.Invalid = verr.Invalid()
	} else {
		view.Errors = []string{"We couldn't read your delivery details. Please try again."}
	}
	slog.InfoContext(r.Context(), "delivery form rejected", "errors", len(view.Errors))
	h.renderCheckout(w, r, http.StatusUnprocessableEntity, view)
	return checkout.DeliveryForm{}, false
}

// allowCheckout admits one valid submission per cart per window. A repeat
// inside the window is sent back to the checkout page.
func (h *Handler) allowCheckout(w http.ResponseWriter, r *http.Request) bool {
	if h.checkoutLimit == nil || h.checkoutLimit.Allow(middlewares.CartID(r.Context())) {
		return true
	}
	slog.InfoContext(r.Context(), "duplicate checkout submission throttled")
	secs := int(math.Ceil(h.checkoutLimit.Window().Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	h.flash(w, r, render.Notify("Your order is already being processed. Please wait a moment.", render.NotifyWarning))
	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
	return false
}

func (h *Handler) checkoutFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, checkout.ErrEmptyCart) {
		h.flash(w, r, render.Notify("Your cart is empty.", render.NotifyError))
		http.Redirect(w, r, "/checkout", http.StatusSeeOther)
		return
	}
	slog.ErrorContext(r.Context(), "checkout failed", "error", err)
	h.flash(w, r, render.Notify("Something went wrong placing your order. Please try again.", render.NotifyError))
	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
}

// --- orders ---

func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	order, ok := h.order(w, r)
	if !ok {
		return
	}
	pdf, err := checkout.Receipt(order)
	if err != nil {
		slog.ErrorContext(r.Context(), "error rendering receipt", "order_id", order.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "receipt_error", "")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="classic-carry-`+order.ID+`.pdf"`)
	_, _ = w.Write(pdf)
}

func (h *Handler) WhatsAppQR(w http.ResponseWriter, r *http.Request) {
	order, ok := h.order(w, r)
	if !ok {
		return
	}
	if order.WhatsAppURL == "" {
		writeError(w, http.StatusNotFound, "no_whatsapp_link", "")
		return
	}
	png, err := checkout.QRCode(order.WhatsAppURL)
	if err != nil {
		slog.ErrorContext(r.Context(), "error rendering qr code", "order_id", order.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "qr_error", "")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *Handler) order(w http.ResponseWriter, r *http.Request) (*checkout.Order, bool) {
	id := chi.URLParam(r, "id")
	order, _, err := h.checkout.Lookup(r.Context(), id)
	if errors.Is(err, orderlog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order_not_found", "")
		return nil, false
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "error loading order", "order_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "order_lookup_failed", "")
		return nil, false
	}
	return order, true
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK
	for _, c := range h.checks {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(h.checks))
		}
		if err := c.Check(ctx); err != nil {
			resp.Checks[c.Name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	writeJSON(w, status, resp)
}

// --- helpers ---

// page builds the shared layout data. It pops pending notifications, so
// it must run before the body is written.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, title string) render.Page {
	ctx := r.Context()
	var notes []render.Notification
	for _, f := range h.sessions.Flashes(w, r) {
		notes = append(notes, render.Notify(f.Message, render.NotificationKind(f.Kind)))
	}
	return render.Page{
		Title:         title,
		Nav:           render.Nav(r.URL.Path, h.carts.TotalItemCount(ctx, middlewares.CartID(ctx))),
		Notifications: notes,
		Year:          time.Now().Year(),
	}
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.templates.Render(&buf, page, data); err != nil {
		slog.ErrorContext(r.Context(), "error rendering page", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) flash(w http.ResponseWriter, r *http.Request, n render.Notification) {
	h.sessions.AddFlash(w, r, session.Flash{Message: n.Message, Kind: string(n.Kind)})
}

// fail answers JSON callers with an error body and page callers with a
// flashed notification and a redirect back.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if wantsJSON(r) {
		writeError(w, status, code, msg)
		return
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	h.flash(w, r, render.Notify(msg, render.NotifyError))
	redirectBack(w, r, "/")
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// redirectBack returns to the referring page on this host, or to fallback.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	target := fallback
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" && (ref.Host == "" || ref.Host == r.Host) {
		target = ref.RequestURI()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func firstN(products []catalog.Product, n int) []catalog.Product {
	if len(products) > n {
		return products[:n]
	}
	return products
}

func mapCartToResponse(s cart.Summary) CartResponse {
	items := make([]CartItemResponse, len(s.Items))
	for i, it := range s.Items {
		items[i] = CartItemResponse{
			ID:        it.ID,
			Name:      it.Name,
			Image:     it.Image,
			Color:     it.SelectedColor,
			Price:     it.Price,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		}
	}
	t := render.CartSummary(s)
	return CartResponse{
		Items:            items,
		ItemCount:        s.ItemCount,
		Subtotal:         s.Subtotal,
		Delivery:         s.Delivery,
		GrandTotal:       s.GrandTotal,
		FreeDelivery:     s.FreeDelivery && !s.Empty(),
		RemainingForFree: s.RemainingForFree,
		Display: CartDisplay{
			Subtotal:   t.Subtotal,
			Delivery:   t.Delivery,
			GrandTotal: t.GrandTotal,
			Hint:       t.Hint,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
