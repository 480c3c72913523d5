package listing

import (
	"fmt"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain"
	"github.com/dealscout/dealscout/internal/domain/listing"
)

// toListing maps a store row onto the listing variant selected by kind.
func toListing(r db.ListingRow, kind listing.Kind) (listing.Listing, error) {
	c := listing.Common{
		ID:              string(r.ID),
		Address:         r.Address,
		Neighborhood:    deref(r.Neighborhood),
		ZipCode:         deref(r.ZipCode),
		Bedrooms:        deref(r.Bedrooms),
		Bathrooms:       deref(r.Bathrooms),
		Sqft:            deref(r.Sqft),
		Grade:           deref(r.Grade),
		Score:           deref(r.Score),
		DiscountPercent: deref(r.DiscountPercent),
		Status:          r.Status,
		Media: listing.Media{
			Images:     r.Images,
			Videos:     r.Videos,
			Floorplans: r.Floorplans,
			Agents:     r.Agents,
			Amenities:  r.Amenities,
		},
	}

	var l listing.Listing
	switch kind {
	case listing.KindSale:
		l = listing.NewSale(listing.Sale{
			Common:       c,
			Price:        deref(r.Price),
			PricePerSqft: perSqft(r.PricePerSqft, r.Price, c.Sqft),
		})
	case listing.KindRental:
		l = listing.NewRental(listing.Rental{
			Common:      c,
			Rent:        deref(r.Rent),
			RentPerSqft: perSqft(r.RentPerSqft, r.Rent, c.Sqft),
		})
	default:
		return listing.Listing{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidListing, kind)
	}

	if err := l.Validate(); err != nil {
		return listing.Listing{}, fmt.Errorf("%w: %w", domain.ErrInvalidListing, err)
	}
	return l, nil
}

// perSqft prefers the stored ratio and derives it from price and area otherwise.
func perSqft(stored, price *float64, sqft int) float64 {
	if stored != nil {
		return *stored
	}
	if price != nil && sqft > 0 {
		return *price / float64(sqft)
	}
	return 0
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
