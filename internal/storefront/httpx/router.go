package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/classic-carry/internal/pkg/session"
	"github.com/jcmexdev/classic-carry/internal/render"
	"github.com/jcmexdev/classic-carry/internal/storefront/httpx/middlewares"
)

type RouterOptions struct {
	Sessions *session.Manager
	// CORSOrigins may call /api; empty allows none cross-origin.
	CORSOrigins []string
	// CheckoutWindow is the minimum gap between valid checkout submissions
	// from one cart. Zero disables the limit.
	CheckoutWindow time.Duration
	// ImagesDir is served at /assets/images when not empty.
	ImagesDir   string
	ServiceName string
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	if opts.CheckoutWindow > 0 {
		handler.checkoutLimit = middlewares.NewLimiter(opts.CheckoutWindow)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middlewares.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health)

	assets := http.StripPrefix("/assets/", http.FileServerFS(render.Assets()))
	r.Handle("/assets/css/*", assets)
	r.Handle("/assets/js/*", assets)
	if opts.ImagesDir != "" {
		r.Handle("/assets/images/*", http.StripPrefix("/assets/images/", http.FileServer(http.Dir(opts.ImagesDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(middlewares.Session(opts.Sessions))

		r.Get("/", handler.Home)
		r.Get("/caps", handler.Caps)
		r.Get("/wallets", handler.Wallets)
		r.Get("/product", handler.Product)
		r.Get("/checkout", handler.Checkout)
		r.Get("/success", handler.Success)
		r.Get("/buy-now", handler.BuyNow)

		r.Post("/cart/items", handler.AddToCart)
		r.Post("/cart/items/{id}/quantity", handler.UpdateQuantity)
		r.Post("/cart/items/{id}/remove", handler.RemoveItem)
		r.Post("/cart/clear", handler.ClearCart)

		r.Post("/checkout/whatsapp", handler.CheckoutWhatsApp)
		r.Post("/checkout/order", handler.PlaceOrder)

		r.Get("/orders/{id}/receipt.pdf", handler.Receipt)
		r.Get("/orders/{id}/whatsapp.png", handler.WhatsAppQR)

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.New(cors.Options{
				AllowedOrigins:   opts.CORSOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost},
				AllowedHeaders:   []string{"Accept", "Content-Type"},
				AllowCredentials: true,
			}).Handler)
			r.Get("/cart", handler.CartJSON)
			r.Post("/cart/items", handler.AddToCart)
		})
	})

	name := opts.ServiceName
	if name == "" {
		name = "storefront"
	}
	return otelhttp.NewHandler(r, name)
}
