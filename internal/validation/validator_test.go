package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/validation"
)

type bookRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	ISBN        string   `json:"isbn,omitempty" validate:"omitempty,isbn"`
	TotalCopies int      `json:"total_copies" validate:"gte=1"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Email       string   `json:"email,omitempty" validate:"omitempty,email"`
	Name        string   `json:"name,omitempty" validate:"trimmed"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(bookRequest{
		Title:       "진달래꽃",
		ISBN:        "978-0-13-419044-0",
		TotalCopies: 2,
	})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()
	badLat := 91.0

	tests := []struct {
		name      string
		req       bookRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing title",
			req:       bookRequest{TotalCopies: 1},
			wantField: "title",
			wantMsg:   "is required",
		},
		{
			name:      "bad isbn checksum",
			req:       bookRequest{Title: "T", TotalCopies: 1, ISBN: "9780134190441"},
			wantField: "isbn",
			wantMsg:   "ISBN",
		},
		{
			name:      "zero copies",
			req:       bookRequest{Title: "T"},
			wantField: "total_copies",
			wantMsg:   "greater than or equal to 1",
		},
		{
			name:      "latitude out of range",
			req:       bookRequest{Title: "T", TotalCopies: 1, Latitude: &badLat},
			wantField: "latitude",
			wantMsg:   "-90 and 90",
		},
		{
			name:      "invalid email",
			req:       bookRequest{Title: "T", TotalCopies: 1, Email: "nope"},
			wantField: "email",
			wantMsg:   "email",
		},
		{
			name:      "untrimmed name",
			req:       bookRequest{Title: "T", TotalCopies: 1, Name: " padded"},
			wantField: "name",
			wantMsg:   "whitespace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Contains(t, domainErr.Message, tt.wantField)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details[tt.wantField], tt.wantMsg)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(bookRequest{TotalCopies: 1})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "title")
	assert.NotContains(t, err.Error(), "Title")
}

func TestValidISBN(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"9780134190440", true},
		{"978-0-13-419044-0", true},
		{"0-306-40615-2", true},
		{"080442957X", true},
		{"9780134190441", false},
		{"0306406153", false},
		{"12345", false},
		{"97801341904A0", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, validation.ValidISBN(tt.in))
		})
	}
}
