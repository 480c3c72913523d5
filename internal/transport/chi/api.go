package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

// listListingsParams are the query parameters of GET /api/v1/listings.
type listListingsParams struct {
	Mode     *string
	Term     *string
	Zip      *string
	MaxPrice *string
	Bedrooms *string
	Offset   *int
}

type listingResponse struct {
	ID              string   `json:"id"`
	Kind            string   `json:"kind"`
	Address         string   `json:"address"`
	Neighborhood    string   `json:"neighborhood,omitempty"`
	ZipCode         string   `json:"zip_code,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	PricePerSqft    *float64 `json:"price_per_sqft,omitempty"`
	Rent            *float64 `json:"rent,omitempty"`
	RentPerSqft     *float64 `json:"rent_per_sqft,omitempty"`
	FormattedPrice  string   `json:"formatted_price"`
	Bedrooms        int      `json:"bedrooms"`
	Bathrooms       float64  `json:"bathrooms"`
	Sqft            int      `json:"sqft,omitempty"`
	Grade           string   `json:"grade,omitempty"`
	Score           float64  `json:"score"`
	DiscountPercent float64  `json:"discount_percent,omitempty"`
	Images          []string `json:"images"`
	Videos          []string `json:"videos,omitempty"`
	Floorplans      []string `json:"floorplans,omitempty"`
	Agents          []string `json:"agents,omitempty"`
	Amenities       []string `json:"amenities,omitempty"`
}

type listingPageResponse struct {
	Items      []listingResponse `json:"items"`
	Offset     int               `json:"offset"`
	NextOffset int               `json:"next_offset"`
	HasMore    bool              `json:"has_more"`
}

// ListListings handles GET /api/v1/listings.
func (s *Server) ListListings(w http.ResponseWriter, r *http.Request) {
	var params listListingsParams
	values := r.URL.Query()
	bind := []struct {
		name string
		dest any
	}{
		{"mode", &params.Mode},
		{"term", &params.Term},
		{"zip", &params.Zip},
		{"max_price", &params.MaxPrice},
		{"bedrooms", &params.Bedrooms},
		{"offset", &params.Offset},
	}
	for _, b := range bind {
		if err := runtime.BindQueryParameter("form", true, false, b.name, values, b.dest); err != nil {
			writeError(w, r, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter "+b.name)
			return
		}
	}

	m, err := mode.Parse(derefString(params.Mode))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	offset := derefInt(params.Offset)
	if offset < 0 {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, "offset must not be negative")
		return
	}
	if offset > query.MaxOffset(s.search.PageSize()) {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, "offset out of range")
		return
	}

	f := filter.Filters{
		Term:     derefString(params.Term),
		Zip:      derefString(params.Zip),
		MaxPrice: derefString(params.MaxPrice),
		Bedrooms: derefString(params.Bedrooms),
		Mode:     m,
	}

	page, err := s.search.FetchPage(r.Context(), f, offset)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]listingResponse, len(page.Listings))
	for i, l := range page.Listings {
		items[i] = listingToResponse(l)
	}
	writeJSON(w, r, http.StatusOK, listingPageResponse{
		Items:      items,
		Offset:     page.Offset,
		NextOffset: page.NextOffset(s.search.PageSize()),
		HasMore:    page.HasMore,
	})
}

// GetListing handles GET /api/v1/listings/{mode}/{id}.
func (s *Server) GetListing(w http.ResponseWriter, r *http.Request) {
	m, err := mode.Parse(gochi.URLParam(r, "mode"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	l, err := s.search.Get(r.Context(), m, gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, listingToResponse(l))
}

func listingToResponse(l listing.Listing) listingResponse {
	c := l.Common()
	resp := listingResponse{
		ID:              c.ID,
		Kind:            string(l.Kind()),
		Address:         c.Address,
		Neighborhood:    c.Neighborhood,
		ZipCode:         c.ZipCode,
		FormattedPrice:  formatPrice(l),
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
	if resp.Images == nil {
		resp.Images = []string{}
	}
	switch l.Kind() {
	case listing.KindSale:
		sale := l.Sale()
		price := sale.Price
		resp.Price = &price
		resp.PricePerSqft = positive(sale.PricePerSqft)
	case listing.KindRental:
		rental := l.Rental()
		rent := rental.Rent
		resp.Rent = &rent
		resp.RentPerSqft = positive(rental.RentPerSqft)
	}
	return resp
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
