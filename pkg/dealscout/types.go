package dealscout

import (
	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/result"
)

// Mode selects sale or rental listings.
type Mode string

// Mode constants.
const (
	Buy  Mode = "buy"
	Rent Mode = "rent"
)

// PageSize is the number of listings per page.
const PageSize = 50

// Filters narrow a search. Empty fields do not filter. MaxPrice and Bedrooms
// are parsed leniently: "$850,000" is accepted and unparseable values are ignored.
// An empty Mode means Buy.
type Filters struct {
	Term     string // address or neighborhood substring
	Zip      string // zip code substring
	MaxPrice string // price cap, or monthly rent cap in Rent mode
	Bedrooms string // minimum bedrooms
	Mode     Mode
}

// Listing is a sale or rental. For rentals Price is the monthly rent.
type Listing struct {
	ID              string
	Rental          bool
	Address         string
	Neighborhood    string
	ZipCode         string
	Price           float64
	PricePerSqft    float64
	Bedrooms        int
	Bathrooms       float64
	Sqft            int
	Grade           string
	Score           float64
	DiscountPercent float64
	Images          []string
	Videos          []string
	Floorplans      []string
	Agents          []string
	Amenities       []string
}

// Page is one page of a ranked search.
type Page struct {
	Listings   []Listing
	Offset     int
	NextOffset int
	HasMore    bool
}

func (f Filters) toDomain() (filter.Filters, error) {
	m, err := mode.Parse(string(f.Mode))
	if err != nil {
		return filter.Filters{}, err
	}
	return filter.Filters{
		Term:     f.Term,
		Zip:      f.Zip,
		MaxPrice: f.MaxPrice,
		Bedrooms: f.Bedrooms,
		Mode:     m,
	}, nil
}

func filtersFromDomain(f filter.Filters) Filters {
	return Filters{
		Term:     f.Term,
		Zip:      f.Zip,
		MaxPrice: f.MaxPrice,
		Bedrooms: f.Bedrooms,
		Mode:     Mode(f.Mode),
	}
}

func listingFromDomain(l listing.Listing) Listing {
	c := l.Common()
	return Listing{
		ID:              c.ID,
		Rental:          l.Kind() == listing.KindRental,
		Address:         c.Address,
		Neighborhood:    c.Neighborhood,
		ZipCode:         c.ZipCode,
		Price:           l.Price(),
		PricePerSqft:    l.PricePerArea(),
		Bedrooms:        c.Bedrooms,
		Bathrooms:       c.Bathrooms,
		Sqft:            c.Sqft,
		Grade:           c.Grade,
		Score:           c.Score,
		DiscountPercent: c.DiscountPercent,
		Images:          c.Media.Images,
		Videos:          c.Media.Videos,
		Floorplans:      c.Media.Floorplans,
		Agents:          c.Media.Agents,
		Amenities:       c.Media.Amenities,
	}
}

func listingsFromDomain(ls []listing.Listing) []Listing {
	out := make([]Listing, len(ls))
	for i, l := range ls {
		out[i] = listingFromDomain(l)
	}
	return out
}

func pageFromDomain(p result.Page, pageSize int) Page {
	return Page{
		Listings:   listingsFromDomain(p.Listings),
		Offset:     p.Offset,
		NextOffset: p.NextOffset(pageSize),
		HasMore:    p.HasMore,
	}
}
