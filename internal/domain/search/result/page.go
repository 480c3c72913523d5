// Package result holds one fetched page of listings.
package result

import "github.com/dealscout/dealscout/internal/domain/listing"

// Page is a slice of the ranked result set starting at Offset.
type Page struct {
	Listings []listing.Listing
	Offset   int
	HasMore  bool
}

// NewPage builds a page. HasMore is true when the page came back full, which over-reports
// by one empty page when the total is an exact multiple of pageSize.
func NewPage(listings []listing.Listing, offset, pageSize int) Page {
	return Page{
		Listings: listings,
		Offset:   offset,
		HasMore:  len(listings) == pageSize,
	}
}

// NewFilteredPage builds a page from listings that survived mapping out of rows
// fetched rows. HasMore follows the fetched count so skipped rows do not end paging.
func NewFilteredPage(listings []listing.Listing, fetched, offset, pageSize int) Page {
	return Page{
		Listings: listings,
		Offset:   offset,
		HasMore:  fetched == pageSize,
	}
}

// Len returns the number of listings in the page.
func (p Page) Len() int { return len(p.Listings) }

// NextOffset returns the offset of the following page.
func (p Page) NextOffset(pageSize int) int { return p.Offset + pageSize }
