// Package listing holds the sale and rental listing records read from the remote store.
package listing

import "fmt"

// Kind discriminates the listing variant.
type Kind string

// Listing kinds.
const (
	KindSale   Kind = "sale"
	KindRental Kind = "rental"
)

// StatusActive is the only status the search reads.
const StatusActive = "active"

// Media groups the reference collections attached to a listing.
type Media struct {
	Images     []string
	Videos     []string
	Floorplans []string
	Agents     []string
	Amenities  []string
}

// Common holds the fields shared by sale and rental listings.
type Common struct {
	ID              string
	Address         string
	Neighborhood    string
	ZipCode         string
	Bedrooms        int
	Bathrooms       float64
	Sqft            int
	Grade           string
	Score           float64
	DiscountPercent float64
	Status          string
	Media           Media
}

// Sale is a listing offered for purchase.
type Sale struct {
	Common
	Price        float64
	PricePerSqft float64
}

// Rental is a listing offered for monthly rent.
type Rental struct {
	Common
	Rent        float64
	RentPerSqft float64
}

// Listing is a tagged union over Sale and Rental. Exactly one variant is set.
type Listing struct {
	kind   Kind
	sale   *Sale
	rental *Rental
}

// NewSale wraps a sale record.
func NewSale(s Sale) Listing {
	return Listing{kind: KindSale, sale: &s}
}

// NewRental wraps a rental record.
func NewRental(r Rental) Listing {
	return Listing{kind: KindRental, rental: &r}
}

// Kind returns the variant discriminant.
func (l Listing) Kind() Kind { return l.kind }

// Sale returns the sale variant, nil for rentals.
func (l Listing) Sale() *Sale { return l.sale }

// Rental returns the rental variant, nil for sales.
func (l Listing) Rental() *Rental { return l.rental }

// Common returns the shared fields of whichever variant is set.
func (l Listing) Common() Common {
	switch l.kind {
	case KindSale:
		return l.sale.Common
	case KindRental:
		return l.rental.Common
	default:
		return Common{}
	}
}

// ID returns the listing identifier.
func (l Listing) ID() string { return l.Common().ID }

// Price returns the sale price or the monthly rent.
func (l Listing) Price() float64 {
	switch l.kind {
	case KindSale:
		return l.sale.Price
	case KindRental:
		return l.rental.Rent
	default:
		return 0
	}
}

// PricePerArea returns price or rent per square foot.
func (l Listing) PricePerArea() float64 {
	switch l.kind {
	case KindSale:
		return l.sale.PricePerSqft
	case KindRental:
		return l.rental.RentPerSqft
	default:
		return 0
	}
}

// IsZero reports whether no variant is set.
func (l Listing) IsZero() bool { return l.kind == "" }

// Validate checks the union invariant.
func (l Listing) Validate() error {
	switch l.kind {
	case KindSale:
		if l.sale == nil || l.rental != nil {
			return fmt.Errorf("sale listing must carry only the sale variant")
		}
	case KindRental:
		if l.rental == nil || l.sale != nil {
			return fmt.Errorf("rental listing must carry only the rental variant")
		}
	default:
		return fmt.Errorf("unknown listing kind %q", l.kind)
	}
	if l.ID() == "" {
		return fmt.Errorf("listing id is required")
	}
	return nil
}
