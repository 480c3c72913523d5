package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// ListingRow is one row of the sales or rentals table. Sale rows leave the rent
// columns nil and rental rows leave the price columns nil.
type ListingRow struct {
	ID              RowID      `json:"id" db:"id"`
	Address         string     `json:"address" db:"address"`
	Neighborhood    *string    `json:"neighborhood" db:"neighborhood"`
	ZipCode         *string    `json:"zip_code" db:"zip_code"`
	Price           *float64   `json:"price" db:"price"`
	PricePerSqft    *float64   `json:"price_per_sqft" db:"price_per_sqft"`
	Rent            *float64   `json:"rent" db:"rent"`
	RentPerSqft     *float64   `json:"rent_per_sqft" db:"rent_per_sqft"`
	Bedrooms        *int       `json:"bedrooms" db:"bedrooms"`
	Bathrooms       *float64   `json:"bathrooms" db:"bathrooms"`
	Sqft            *int       `json:"sqft" db:"sqft"`
	Grade           *string    `json:"grade" db:"grade"`
	Score           *float64   `json:"score" db:"score"`
	DiscountPercent *float64   `json:"discount_percent" db:"discount_percent"`
	Status          string     `json:"status" db:"status"`
	Images          StringList `json:"images" db:"images"`
	Videos          StringList `json:"videos" db:"videos"`
	Floorplans      StringList `json:"floorplans" db:"floorplans"`
	Agents          StringList `json:"agents" db:"agents"`
	Amenities       StringList `json:"amenities" db:"amenities"`
}

// Dest returns the scan destination for a column, or nil for unknown columns.
func (r *ListingRow) Dest(column string) any {
	switch column {
	case "id":
		return &r.ID
	case "address":
		return &r.Address
	case "neighborhood":
		return &r.Neighborhood
	case "zip_code":
		return &r.ZipCode
	case "price":
		return &r.Price
	case "price_per_sqft":
		return &r.PricePerSqft
	case "rent":
		return &r.Rent
	case "rent_per_sqft":
		return &r.RentPerSqft
	case "bedrooms":
		return &r.Bedrooms
	case "bathrooms":
		return &r.Bathrooms
	case "sqft":
		return &r.Sqft
	case "grade":
		return &r.Grade
	case "score":
		return &r.Score
	case "discount_percent":
		return &r.DiscountPercent
	case "status":
		return &r.Status
	case "images":
		return &r.Images
	case "videos":
		return &r.Videos
	case "floorplans":
		return &r.Floorplans
	case "agents":
		return &r.Agents
	case "amenities":
		return &r.Amenities
	default:
		return nil
	}
}

// RowID accepts both text and integer primary keys.
type RowID string

// UnmarshalJSON decodes a JSON string or number.
func (id *RowID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = RowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = RowID(n.String())
	return nil
}

// Scan implements sql.Scanner.
func (id *RowID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*id = RowID(v)
	case []byte:
		*id = RowID(v)
	case int64:
		*id = RowID(strconv.FormatInt(v, 10))
	case nil:
		*id = ""
	default:
		return fmt.Errorf("unsupported id type %T", src)
	}
	return nil
}

// StringList is a JSON array of strings stored in a json/jsonb/text column.
type StringList []string

// Scan implements sql.Scanner for JSON text.
func (l *StringList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported list type %T", src)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	*l = out
	return nil
}

// Value implements driver.Valuer so lists round-trip through text columns.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

// ScanRow scans one result row by column name. Columns without a ListingRow
// field are read and discarded.
func ScanRow(columns []string, scan func(dest ...any) error) (ListingRow, error) {
	var r ListingRow
	dests := make([]any, len(columns))
	for i, c := range columns {
		if d := r.Dest(c); d != nil {
			dests[i] = d
			continue
		}
		var discard any
		dests[i] = &discard
	}
	if err := scan(dests...); err != nil {
		return ListingRow{}, &Error{Op: OpScan, Err: err}
	}
	return r, nil
}
