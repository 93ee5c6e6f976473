package checkout

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// DeliveryForm is the customer's delivery details as posted by the checkout
// page.
type DeliveryForm struct {
	FirstName     string `schema:"firstName" json:"first_name" validate:"required"`
	LastName      string `schema:"lastName" json:"last_name" validate:"required"`
	Email         string `schema:"email" json:"email,omitempty" validate:"omitempty,email"`
	Phone         string `schema:"phone" json:"phone" validate:"required,phone"`
	Address       string `schema:"address" json:"address" validate:"required"`
	City          string `schema:"city" json:"city" validate:"required"`
	Province      string `schema:"province" json:"province" validate:"required"`
	PostalCode    string `schema:"postalCode" json:"postal_code,omitempty"`
	DeliveryNotes string `schema:"deliveryNotes" json:"delivery_notes,omitempty"`
}

func (f DeliveryForm) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// Values returns the form as posted field values, keyed like the page form.
func (f DeliveryForm) Values() map[string]string {
	return map[string]string{
		"firstName":     f.FirstName,
		"lastName":      f.LastName,
		"email":         f.Email,
		"phone":         f.Phone,
		"address":       f.Address,
		"city":          f.City,
		"province":      f.Province,
		"postalCode":    f.PostalCode,
		"deliveryNotes": f.DeliveryNotes,
	}
}

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid field of a form, in form order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "checkout: invalid delivery form: " + strings.Join(e.Messages(), "; ")
}

func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Message
	}
	return out
}

// Invalid reports the offending field names.
func (e *ValidationError) Invalid() map[string]bool {
	out := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = true
	}
	return out
}

var (
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "")
	fieldOrder      = []string{"firstName", "lastName", "email", "phone", "address", "city", "province", "postalCode", "deliveryNotes"}
	fieldLabels     = map[string]string{
		"firstName":  "First name",
		"lastName":   "Last name",
		"email":      "Email",
		"phone":      "Phone number",
		"address":    "Address",
		"city":       "City",
		"province":   "Province",
		"postalCode": "Postal code",
	}
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("schema"), ",", 2)[0]
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(phoneSeparators.Replace(fl.Field().String()))
	})
	return v
}

// DecodeDeliveryForm reads a posted delivery form. Values are trimmed.
func DecodeDeliveryForm(values url.Values) (DeliveryForm, error) {
	var f DeliveryForm
	if err := decoder.Decode(&f, values); err != nil {
		return DeliveryForm{}, fmt.Errorf("checkout: decode delivery form: %w", err)
	}
	for _, p := range []*string{
		&f.FirstName, &f.LastName, &f.Email, &f.Phone, &f.Address,
		&f.City, &f.Province, &f.PostalCode, &f.DeliveryNotes,
	} {
		*p = strings.TrimSpace(*p)
	}
	return f, nil
}

// Validate checks every rule and returns a *ValidationError naming all
// offending fields. requireEmail is set for form-backend checkout, which
// sends the customer a confirmation.
func (f DeliveryForm) Validate(requireEmail bool) error {
	byField := make(map[string]string)

	if err := validate.Struct(f); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("checkout: validate delivery form: %w", err)
		}
		for _, fe := range verrs {
			byField[fe.Field()] = fieldMessage(fe.Field(), fe.Tag())
		}
	}
	if requireEmail && f.Email == "" {
		byField["email"] = fieldMessage("email", "required")
	}

	if len(byField) == 0 {
		return nil
	}
	verr := &ValidationError{}
	for _, name := range fieldOrder {
		if msg, ok := byField[name]; ok {
			verr.Fields = append(verr.Fields, FieldError{Field: name, Message: msg})
		}
	}
	return verr
}

func fieldMessage(field, tag string) string {
	switch tag {
	case "required":
		return fieldLabels[field] + " is required"
	case "email":
		return "Please enter a valid email address"
	case "phone":
		return "Please enter a valid phone number"
	default:
		return fieldLabels[field] + " is invalid"
	}
}
