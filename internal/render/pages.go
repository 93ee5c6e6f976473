package render

// Page carries what every page layout needs.
type Page struct {
	Title         string
	Nav           NavView
	Notifications []Notification
	Year          int
}

type HomePage struct {
	Page
	Hero       Hero
	Featured   []Card
	HotCaps    []Card
	HotWallets []Card
}

type ListingPage struct {
	Page
	Heading string
	Intro   string
	Filter  Filter
}

// ProductPage has exactly one of Product and NotFound set.
type ProductPage struct {
	Page
	Product  *DetailView
	NotFound *NotFoundView
}

type FormView struct {
	Values map[string]string
	// Errors lists every problem at once, in form order.
	Errors  []string
	Invalid map[string]bool
}

type CheckoutPage struct {
	Page
	Lines        []CartLine
	Totals       Totals
	Form         FormView
	FormsEnabled bool
}

type SuccessPage struct {
	Page
	Heading     string
	Message     string
	OrderID     string
	Channel     string
	Warnings    []string
	ReceiptURL  string
	QRCodeURL   string
	WhatsAppURL string
	// OpenWhatsApp asks the page to open WhatsAppURL in a new tab on load.
	OpenWhatsApp bool
}

const (
	PageHome     = "home"
	PageListing  = "listing"
	PageProduct  = "product"
	PageCheckout = "checkout"
	PageSuccess  = "success"
)
