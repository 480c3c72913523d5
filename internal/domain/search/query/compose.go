package query

import (
	"math"

	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
)

// PageSize is the fixed number of listings per page.
const PageSize = 50

// Listing table columns referenced by the composer.
const (
	ColStatus       = "status"
	ColAddress      = "address"
	ColNeighborhood = "neighborhood"
	ColZipCode      = "zip_code"
	ColBedrooms     = "bedrooms"
	ColScore        = "score"
	ColID           = "id"
)

// MaxOffset is the largest page offset whose row range and next offset still
// fit in an int. Callers taking offsets from outside must reject larger ones.
func MaxOffset(pageSize int) int {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	return math.MaxInt - pageSize
}

// Compose translates filter state and a page offset into a listing query.
// Unparseable max price or bedroom values add no predicate. Offsets outside
// [0, MaxOffset(pageSize)] are clamped.
func Compose(f filter.Filters, offset, pageSize int) *Query {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	offset = min(max(offset, 0), MaxOffset(pageSize))

	b := From(f.Mode.Table()).
		Eq(ColStatus, listing.StatusActive)

	if f.Term != "" {
		pattern := "%" + f.Term + "%"
		b.Or(
			Condition{Column: ColAddress, Op: OpILike, Value: pattern},
			Condition{Column: ColNeighborhood, Op: OpILike, Value: pattern},
		)
	}
	if f.Zip != "" {
		b.ILike(ColZipCode, "%"+f.Zip+"%")
	}
	if v, ok := f.MaxPriceValue(); ok {
		b.Lte(f.Mode.PriceColumn(), v)
	}
	if n, ok := f.BedroomsValue(); ok {
		b.Gte(ColBedrooms, n)
	}

	return b.OrderDesc(ColScore).
		Range(offset, offset+pageSize-1).
		MustBuild()
}

// ByID builds a single-row lookup of an active listing.
func ByID(table, id string) *Query {
	return From(table).
		Eq(ColID, id).
		Eq(ColStatus, listing.StatusActive).
		Range(0, 0).
		MustBuild()
}
