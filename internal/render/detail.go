package render

import (
	"math"
	"net/url"
	"strconv"

	"github.com/jcmexdev/classic-carry/internal/catalog"
)

type Thumbnail struct {
	URL    string
	Alt    string
	Active bool
}

type Swatch struct {
	Color    string
	Selected bool
}

type Stepper struct {
	Value         int
	Min           int
	MinusDisabled bool
}

type Stock struct {
	Label string
	Level catalog.StockLevel
}

type DetailView struct {
	ID          string
	Name        string
	Price       string
	Description string
	Rating      float64
	// Stars holds five entries, each "full", "half" or "empty".
	Stars          []string
	RatingLabel    string
	Stock          Stock
	MainImage      string
	Thumbnails     []Thumbnail
	Swatches       []Swatch
	SelectedColor  string
	Quantity       Stepper
	Features       []string
	Specifications []catalog.Spec
	AddButton      Button
	BuyNowURL      string
	CanBuy         bool
}

// Detail builds the product page: gallery, price, stock, swatches, quantity
// stepper and the add-to-cart and buy-now actions.
func Detail(p catalog.Product, qty int) DetailView {
	if qty < 1 {
		qty = 1
	}

	thumbs := make([]Thumbnail, 0, len(p.Images))
	for i, img := range p.Images {
		thumbs = append(thumbs, Thumbnail{
			URL:    img,
			Alt:    p.Name + " - View " + strconv.Itoa(i+1),
			Active: img == p.MainImage,
		})
	}

	swatches := make([]Swatch, 0, len(p.Colors))
	for _, c := range p.Colors {
		swatches = append(swatches, Swatch{Color: c, Selected: c == p.SelectedColor})
	}

	description := p.Description
	if description == "" {
		description = defaultDescription
	}
	features := p.Features
	if len(features) == 0 {
		features = defaultFeatures
	}

	return DetailView{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.FormattedPrice(),
		Description:    description,
		Rating:         p.Rating,
		Stars:          stars(p.Rating),
		RatingLabel:    strconv.FormatFloat(p.Rating, 'f', 1, 64) + " (" + strconv.Itoa(p.ReviewCount) + " reviews)",
		Stock:          Stock{Label: p.StockStatus(), Level: p.StockLevel()},
		MainImage:      p.MainImage,
		Thumbnails:     thumbs,
		Swatches:       swatches,
		SelectedColor:  p.SelectedColor,
		Quantity:       Stepper{Value: qty, Min: 1, MinusDisabled: qty <= 1},
		Features:       features,
		Specifications: p.Specifications,
		AddButton:      AddToCartButton(p.ID, ButtonIdle),
		BuyNowURL:      BuyNowURL(p.ID, qty, p.SelectedColor),
		CanBuy:         p.IsInStock(),
	}
}

// BuyNowURL links to the single-product WhatsApp handoff.
func BuyNowURL(id string, qty int, color string) string {
	q := url.Values{}
	q.Set("id", id)
	q.Set("qty", strconv.Itoa(qty))
	if color != "" {
		q.Set("color", color)
	}
	return "/buy-now?" + q.Encode()
}

func stars(rating float64) []string {
	out := make([]string, 5)
	halves := int(math.Round(rating * 2))
	for i := range out {
		switch {
		case halves >= 2*(i+1):
			out[i] = "full"
		case halves == 2*i+1:
			out[i] = "half"
		default:
			out[i] = "empty"
		}
	}
	return out
}
