package service

import (
	"fmt"
	"strings"

	"github.com/apengjers/joki-bot/internal/core"
)

// Menu tokens (button and list-row ids)
const (
	TokenJokiCDID      = "joki_cdid"
	TokenJokiBloxFruit = "joki_bloxfruit"
	TokenComplaint     = "komplain_cs"
	TokenComplaintYes  = "hubungi_cs_ya"
	TokenComplaintNo   = "hubungi_cs_tidak"
	ProductTokenPrefix = "cdid_"
)

var cancelWords = map[string]struct{}{
	"batal":  {},
	"cancel": {},
}

// Reply texts
const (
	msgWelcome          = "Selamat datang di APENGJERS! 🤖\n\nSilakan pilih salah satu layanan joki di bawah ini."
	msgWelcomeFooter    = "Bot Joki Terpercaya"
	msgProductListText  = "Berikut adalah daftar harga untuk Joki CDID:"
	msgProductListTitle = "Daftar Harga"
	msgComingSoon       = "Layanan *Joki BloxFruit* akan segera hadir!"
	msgComplaintPrompt  = "Anda akan menghubungi Layanan Pengaduan APENGJERS. Pastikan anda menjelaskan Permasalahan anda sedetail mungkin dan kooperatif dengan admin yang melayani.\n\n*Ya* untuk melanjutkan chat ke Layanan Pengaduan Apengjers, *Tidak* untuk Kembali ke Menu awal."
	msgComplaintFooter  = "Konfirmasi Pilihan Anda"
	msgComplaintDecline = "Baik, kembali ke menu utama. Silakan kirim pesan apa saja untuk menampilkan menu."
	msgFormPrompt       = "📝 Silakan salin, isi, dan kirim kembali form di bawah ini:"
	msgFormIncomplete   = "❌ Form tidak lengkap. Pastikan semua field (username, password, payment, jumlah) terisi.\nKetik *batal* untuk membatalkan pesanan."
	msgInvalidQuantity  = "❌ Jumlah tidak valid."
	msgOrderCancelled   = "Pesanan dibatalkan. Silakan kirim pesan apa saja untuk menampilkan menu."
	msgPaymentBusy      = "⚠️ Maaf, sistem pembayaran sedang sibuk. Silakan kirim ulang form beberapa saat lagi."
)

// RouteKind is what the dispatcher should do with a token
type RouteKind int

const (
	RouteMainMenu RouteKind = iota
	RouteProductList
	RouteComingSoon
	RouteComplaintPrompt
	RouteOrderForm
)

// Route is the outcome of resolving a token in the Idle state.
// Product is set only for RouteOrderForm.
type Route struct {
	Kind    RouteKind
	Product core.Product
}

// ComplaintAnswer is the outcome of a token in the complaint confirmation state
type ComplaintAnswer int

const (
	ComplaintNoAnswer ComplaintAnswer = iota
	ComplaintConfirmed
	ComplaintDeclined
)

// Menu maps tokens to routes. It has no side effects.
type Menu struct {
	catalog *core.Catalog
	static  map[string]RouteKind
}

// NewMenu builds the routing table over catalog
func NewMenu(catalog *core.Catalog) *Menu {
	return &Menu{
		catalog: catalog,
		static: map[string]RouteKind{
			TokenJokiCDID:      RouteProductList,
			TokenJokiBloxFruit: RouteComingSoon,
			TokenComplaint:     RouteComplaintPrompt,
		},
	}
}

// Resolve routes a token received while the sender is Idle
func (m *Menu) Resolve(token string) Route {
	token = normalizeToken(token)
	if kind, ok := m.static[token]; ok {
		return Route{Kind: kind}
	}
	if strings.HasPrefix(token, ProductTokenPrefix) {
		if p, ok := m.catalog.Lookup(token); ok {
			return Route{Kind: RouteOrderForm, Product: p}
		}
	}
	return Route{Kind: RouteMainMenu}
}

// ResolveComplaint routes a token received while awaiting complaint confirmation
func (m *Menu) ResolveComplaint(token string) ComplaintAnswer {
	switch normalizeToken(token) {
	case TokenComplaintYes, "ya":
		return ComplaintConfirmed
	case TokenComplaintNo, "tidak":
		return ComplaintDeclined
	}
	return ComplaintNoAnswer
}

// IsCancel reports whether the token abandons an order form
func (m *Menu) IsCancel(token string) bool {
	_, ok := cancelWords[normalizeToken(token)]
	return ok
}

// MainMenuButtons are the three top-level services
func (m *Menu) MainMenuButtons() []core.Button {
	return []core.Button{
		{ID: TokenJokiCDID, Title: "Joki CDID 🚗"},
		{ID: TokenJokiBloxFruit, Title: "Joki BloxFruit 🏴‍☠️"},
		{ID: TokenComplaint, Title: "Komplain 💬"},
	}
}

// ComplaintButtons are the Ya/Tidak confirmation buttons
func (m *Menu) ComplaintButtons() []core.Button {
	return []core.Button{
		{ID: TokenComplaintYes, Title: "Ya"},
		{ID: TokenComplaintNo, Title: "Tidak"},
	}
}

// ProductList is the CDID price list prompt
func (m *Menu) ProductList() core.ListPrompt {
	products := m.catalog.Products()
	rows := make([]core.ListRow, len(products))
	for i, p := range products {
		rows[i] = core.ListRow{
			ID:          p.ID,
			Title:       p.Name,
			Description: "Harga: " + core.FormatRupiah(p.Price),
		}
	}
	return core.ListPrompt{
		Title:        msgProductListTitle,
		Text:         msgProductListText,
		Footer:       "Pilih salah satu",
		ButtonText:   "Lihat Paket",
		SectionTitle: "Pilih Paket Joki CDID",
		Rows:         rows,
	}
}

// FormTemplate is the blank order form for a product
func FormTemplate(p core.Product) string {
	return fmt.Sprintf("Joki %s\nusername: \npassword: \npayment: Qris\nJumlah: ", p.Name)
}

// ComplaintContactMessage is the reply carrying the support chat link
func ComplaintContactMessage(contactLink string) string {
	return fmt.Sprintf("Baik, silakan klik link di bawah ini untuk langsung memulai chat dengan admin kami:\n\n%s\n\nMohon jelaskan permasalahanmu dengan detail ya.", contactLink)
}

func normalizeToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}
