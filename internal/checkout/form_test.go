package checkout

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() DeliveryForm {
	return DeliveryForm{
		FirstName: "Ayesha",
		LastName:  "Khan",
		Email:     "ayesha@example.com",
		Phone:     "0300-123 4567",
		Address:   "House 12, Street 4",
		City:      "Lahore",
		Province:  "Punjab",
	}
}

func TestDecodeDeliveryForm(t *testing.T) {
	f, err := DecodeDeliveryForm(url.Values{
		"firstName":  {"  Ayesha "},
		"lastName":   {"Khan"},
		"phone":      {"+923001234567"},
		"postalCode": {"54000"},
		"csrf":       {"ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ayesha", f.FirstName)
	assert.Equal(t, "Ayesha Khan", f.FullName())
	assert.Equal(t, "54000", f.PostalCode)
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validForm().Validate(true))

	f := validForm()
	f.Email = ""
	assert.NoError(t, f.Validate(false))
}

func TestValidate_CollectsEveryError(t *testing.T) {
	err := DeliveryForm{Phone: "12", Email: "not-an-email"}.Validate(true)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	var fields []string
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"firstName", "lastName", "email", "phone", "address", "city", "province"}, fields)
	assert.Equal(t, "Please enter a valid email address", verr.Fields[2].Message)
	assert.Equal(t, "Please enter a valid phone number", verr.Fields[3].Message)
	assert.Equal(t, "First name is required", verr.Messages()[0])
	assert.True(t, verr.Invalid()["city"])
	assert.False(t, verr.Invalid()["postalCode"])
}

func TestValidate_EmailRequiredForForms(t *testing.T) {
	f := validForm()
	f.Email = ""

	var verr *ValidationError
	require.ErrorAs(t, f.Validate(true), &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, FieldError{Field: "email", Message: "Email is required"}, verr.Fields[0])
}

func TestValidate_Phone(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"03001234567", true},
		{"+92 300 123 4567", true},
		{"0300-1234567", true},
		{"123456789", false},
		{"+92300123456789012", false},
		{"0300abc4567", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			f := validForm()
			f.Phone = tt.phone
			err := f.Validate(false)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
