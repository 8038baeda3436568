package service

import (
	"testing"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/stretchr/testify/require"
)

func TestMenu_Resolve(t *testing.T) {
	m := NewMenu(core.DefaultCatalog())

	tests := []struct {
		token string
		kind  RouteKind
	}{
		{TokenJokiCDID, RouteProductList},
		{" JOKI_CDID ", RouteProductList},
		{TokenJokiBloxFruit, RouteComingSoon},
		{TokenComplaint, RouteComplaintPrompt},
		{"cdid_125m", RouteOrderForm},
		{"cdid_7m", RouteMainMenu},
		{"cdid_", RouteMainMenu},
		{"", RouteMainMenu},
		{"halo kak", RouteMainMenu},
		{TokenComplaintYes, RouteMainMenu},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			require.Equal(t, tt.kind, m.Resolve(tt.token).Kind)
		})
	}

	route := m.Resolve("cdid_125m")
	require.Equal(t, "125M Uang CDID", route.Product.Name)
	require.Equal(t, int64(140000), route.Product.Price)
}

func TestMenu_ResolveComplaint(t *testing.T) {
	m := NewMenu(core.DefaultCatalog())

	require.Equal(t, ComplaintConfirmed, m.ResolveComplaint(TokenComplaintYes))
	require.Equal(t, ComplaintConfirmed, m.ResolveComplaint("Ya"))
	require.Equal(t, ComplaintDeclined, m.ResolveComplaint(TokenComplaintNo))
	require.Equal(t, ComplaintDeclined, m.ResolveComplaint("tidak"))
	require.Equal(t, ComplaintNoAnswer, m.ResolveComplaint("joki_cdid"))
}

func TestMenu_ProductListFollowsCatalogOrder(t *testing.T) {
	m := NewMenu(core.DefaultCatalog())
	list := m.ProductList()

	require.Len(t, list.Rows, 7)
	require.Equal(t, "cdid_1m", list.Rows[0].ID)
	require.Equal(t, "cdid_125m", list.Rows[6].ID)
	require.Equal(t, "Harga: Rp 140.000", list.Rows[6].Description)
}

func TestFormTemplateParsesBackAsIncomplete(t *testing.T) {
	p, _ := core.DefaultCatalog().Lookup("cdid_1m")
	_, err := ParseOrderForm(FormTemplate(p)).Validate()
	require.ErrorIs(t, err, ErrFormIncomplete)
}
