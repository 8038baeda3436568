package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	minutesPerDay  = 1440
	minutesPerHour = 60

	// DurationImmediate is the label for an empty or non-positive duration
	DurationImmediate = "Segera"
	// DurationUnderOneMinute is the label for a duration that decomposes to nothing
	DurationUnderOneMinute = "Kurang dari satu menit"
)

// Estimate is the computed price and fulfillment time of an order
type Estimate struct {
	TotalPrice   int64
	TotalMinutes int
	Label        string
}

// EstimateOrder computes total price and a formatted duration for qty units of product
func EstimateOrder(product Product, qty int) (Estimate, error) {
	if qty <= 0 {
		return Estimate{}, fmt.Errorf("quantity must be positive, got %d", qty)
	}
	if product.Price > 0 && int64(qty) > math.MaxInt64/product.Price {
		return Estimate{}, fmt.Errorf("quantity %d overflows total price of %s", qty, product.ID)
	}
	if product.BaseMinutes > 0 && qty > math.MaxInt/product.BaseMinutes {
		return Estimate{}, fmt.Errorf("quantity %d overflows duration of %s", qty, product.ID)
	}
	minutes := product.BaseMinutes * qty
	return Estimate{
		TotalPrice:   product.Price * int64(qty),
		TotalMinutes: minutes,
		Label:        FormatDuration(minutes),
	}, nil
}

// FormatDuration renders minutes as "<d> Hari <h> Jam <m> Menit", omitting zero parts
func FormatDuration(totalMinutes int) string {
	if totalMinutes <= 0 {
		return DurationImmediate
	}

	days := totalMinutes / minutesPerDay
	rest := totalMinutes % minutesPerDay
	hours := rest / minutesPerHour
	minutes := rest % minutesPerHour

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d Hari", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d Jam", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d Menit", minutes))
	}

	if len(parts) == 0 {
		return DurationUnderOneMinute
	}
	return strings.Join(parts, " ")
}

// FormatRupiah renders an amount with id-ID thousand grouping, e.g. "Rp 10.000"
func FormatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return "Rp " + sign + b.String()
}
