package chi

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dealscout/dealscout/internal/domain/listing"
)

var printer = message.NewPrinter(language.English)

// formatMoney renders a whole-dollar amount with thousands separators: $850,000.
func formatMoney(v float64) string {
	return printer.Sprintf("$%d", int64(math.Round(v)))
}

// formatPrice renders the card headline price. Rents get a monthly suffix.
func formatPrice(l listing.Listing) string {
	if l.Price() <= 0 {
		return "Price on request"
	}
	s := formatMoney(l.Price())
	if l.Kind() == listing.KindRental {
		s += "/mo"
	}
	return s
}

// formatPerSqft renders price per square foot, empty when unknown.
func formatPerSqft(l listing.Listing) string {
	v := l.PricePerArea()
	if v <= 0 {
		return ""
	}
	if l.Kind() == listing.KindRental {
		return printer.Sprintf("$%.2f", v)
	}
	return formatMoney(v)
}

func formatSqft(n int) string {
	if n <= 0 {
		return ""
	}
	return printer.Sprintf("%d", n)
}

func formatBaths(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}
