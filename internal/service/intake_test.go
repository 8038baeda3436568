package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOrderForm(t *testing.T) {
	form := ParseOrderForm("Username: budi\nPASSWORD : a:b:c\n  payment   method : Qris\njumlah: 2\nhalo kak\nserver: asia")

	require.Equal(t, "budi", form.Username)
	require.Equal(t, "a:b:c", form.Password)
	require.Equal(t, "Qris", form.Payment)
	require.Equal(t, "2", form.Quantity)
	require.Equal(t, map[string]string{"server": "asia"}, form.Extra)
}

func TestParseOrderForm_Aliases(t *testing.T) {
	form := ParseOrderForm("user: x\npass: y\nmetode: Dana\nqty: 3")
	order, err := form.Validate()
	require.NoError(t, err)
	require.Equal(t, "x", order.Credentials.Username)
	require.Equal(t, "y", order.Credentials.Password)
	require.Equal(t, "Dana", order.Credentials.PaymentMethod)
	require.Equal(t, 3, order.Quantity)
}

func TestOrderForm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
		qty     int
	}{
		{name: "complete", text: "username: u\npassword: p\npayment: Qris\njumlah: 5", qty: 5},
		{name: "missing password", text: "username: u\npayment: Qris\njumlah: 1", wantErr: ErrFormIncomplete},
		{name: "blank username", text: "username:   \npassword: p\npayment: Qris\njumlah: 1", wantErr: ErrFormIncomplete},
		{name: "missing quantity", text: "username: u\npassword: p\npayment: Qris", wantErr: ErrFormIncomplete},
		{name: "zero quantity", text: "username: u\npassword: p\npayment: Qris\njumlah: 0", wantErr: ErrInvalidQuantity},
		{name: "negative quantity", text: "username: u\npassword: p\npayment: Qris\njumlah: -2", wantErr: ErrInvalidQuantity},
		{name: "quantity at cap", text: "username: u\npassword: p\npayment: Qris\njumlah: 1000", qty: MaxQuantity},
		{name: "quantity over cap", text: "username: u\npassword: p\npayment: Qris\njumlah: 1001", wantErr: ErrInvalidQuantity},
		{name: "huge quantity", text: "username: u\npassword: p\npayment: Qris\njumlah: 100000000000000000", wantErr: ErrInvalidQuantity},
		{name: "quantity with suffix", text: "username: u\npassword: p\npayment: Qris\njumlah: 2x", wantErr: ErrInvalidQuantity},
		{name: "empty text", text: "", wantErr: ErrFormIncomplete},
		{name: "missing field wins over bad quantity", text: "password: p\npayment: Qris\njumlah: abc", wantErr: ErrFormIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := ParseOrderForm(tt.text).Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.qty, order.Quantity)
		})
	}
}
