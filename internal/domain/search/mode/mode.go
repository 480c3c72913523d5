package mode

import (
	"fmt"
	"strings"

	"github.com/dealscout/dealscout/internal/domain"
	"github.com/dealscout/dealscout/internal/domain/listing"
)

// Mode selects between the sale and rental listing tables.
type Mode string

// Search mode constants.
const (
	Buy  Mode = "buy"
	Rent Mode = "rent"
)

// Remote table names.
const (
	SalesTable   = "sales"
	RentalsTable = "rentals"
)

// Parse normalizes a user-supplied mode. Empty input defaults to Buy.
func Parse(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return Buy, nil
	}
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidMode, s)
	}
	return m, nil
}

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Buy || m == Rent
}

// IsRent reports whether the mode selects rentals.
func (m Mode) IsRent() bool { return m == Rent }

// Table returns the remote table the mode reads from.
func (m Mode) Table() string {
	if m == Rent {
		return RentalsTable
	}
	return SalesTable
}

// PriceColumn returns the column capped by the max price filter.
func (m Mode) PriceColumn() string {
	if m == Rent {
		return "rent"
	}
	return "price"
}

// Kind returns the listing variant stored in the mode's table.
func (m Mode) Kind() listing.Kind {
	if m == Rent {
		return listing.KindRental
	}
	return listing.KindSale
}
