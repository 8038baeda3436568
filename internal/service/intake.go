package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrFormIncomplete is returned when a required form field is missing or blank
	ErrFormIncomplete = errors.New("order form incomplete")
	// ErrInvalidQuantity is returned when jumlah is not an integer in 1..MaxQuantity
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Canonical form keys
const (
	FieldUsername = "username"
	FieldPassword = "password"
	FieldPayment  = "payment"
	FieldQuantity = "jumlah"

	// MaxQuantity caps a single order
	MaxQuantity = 1000
)

var fieldAliases = map[string]string{
	"username":       FieldUsername,
	"user":           FieldUsername,
	"password":       FieldPassword,
	"pass":           FieldPassword,
	"payment":        FieldPayment,
	"payment method": FieldPayment,
	"metode":         FieldPayment,
	"jumlah":         FieldQuantity,
	"quantity":       FieldQuantity,
	"qty":            FieldQuantity,
}

// OrderForm is the parsed key/value form a customer submits
type OrderForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Payment  string `validate:"required"`
	Quantity string `validate:"required"`
	// Extra holds keys that are not part of the form template
	Extra map[string]string
}

// ValidOrder is an OrderForm that passed validation
type ValidOrder struct {
	Credentials core.Credentials
	Quantity    int
}

var validate = validator.New()

// ParseOrderForm reads "key: value" lines. Keys are matched case-insensitively with
// inner whitespace collapsed; the first colon splits key from value so values may
// contain colons. Lines without a colon are ignored. A later duplicate key wins.
func ParseOrderForm(text string) OrderForm {
	form := OrderForm{}
	for _, line := range strings.Split(text, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := normalizeKey(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}

		switch fieldAliases[key] {
		case FieldUsername:
			form.Username = value
		case FieldPassword:
			form.Password = value
		case FieldPayment:
			form.Payment = value
		case FieldQuantity:
			form.Quantity = value
		default:
			if form.Extra == nil {
				form.Extra = make(map[string]string)
			}
			form.Extra[key] = value
		}
	}
	return form
}

// Validate checks required fields and the quantity. Missing fields win over a bad quantity.
func (f OrderForm) Validate() (ValidOrder, error) {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return ValidOrder{}, fmt.Errorf("%w: missing %s", ErrFormIncomplete, strings.ToLower(verrs[0].Field()))
		}
		return ValidOrder{}, fmt.Errorf("%w: %v", ErrFormIncomplete, err)
	}

	qty, err := strconv.Atoi(f.Quantity)
	if err != nil || qty <= 0 || qty > MaxQuantity {
		return ValidOrder{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, f.Quantity)
	}

	return ValidOrder{
		Credentials: core.Credentials{
			Username:      f.Username,
			Password:      f.Password,
			PaymentMethod: f.Payment,
			Extra:         f.Extra,
		},
		Quantity: qty,
	}, nil
}

func normalizeKey(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}
