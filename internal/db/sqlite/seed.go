package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dealscout/dealscout/internal/db"
)

type neighborhood struct {
	name   string
	zip    string
	street string
}

var neighborhoods = []neighborhood{
	{"East Village", "10009", "Avenue B"},
	{"Lower East Side", "10002", "Rivington St"},
	{"Williamsburg", "11211", "Graham Ave"},
	{"Astoria", "11102", "30th Ave"},
	{"Harlem", "10027", "Lenox Ave"},
	{"Park Slope", "11215", "7th Ave"},
	{"Chelsea", "10011", "W 22nd St"},
	{"Bushwick", "11237", "Knickerbocker Ave"},
}

var grades = []string{"A+", "A", "A-", "B+", "B"}

// SeedSales and SeedRentals are the number of demo rows per table.
const (
	SeedSales   = 120
	SeedRentals = 80
)

// Seed inserts deterministic demo listings. It is idempotent.
func Seed(ctx context.Context, conn *sql.DB) error {
	var count int
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sales").Scan(&count); err != nil {
		return fmt.Errorf("count sales: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	if err := seedTable(ctx, tx, "sales", "price", SeedSales, salePrice); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := seedTable(ctx, tx, "rentals", "rent", SeedRentals, monthlyRent); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func salePrice(i, sqft int) float64   { return float64(sqft * (900 + (i*37)%700)) }
func monthlyRent(i, sqft int) float64 { return float64(sqft*(3+(i*7)%4) + 500) }

func seedTable(ctx context.Context, tx *sql.Tx, table, priceCol string, n int, price func(i, sqft int) float64) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (
		id, address, neighborhood, zip_code, %s, %s_per_sqft, bedrooms, bathrooms, sqft,
		grade, score, discount_percent, status, images, agents, amenities
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table, priceCol, priceCol)

	for i := range n {
		hood := neighborhoods[i%len(neighborhoods)]
		bedrooms := i % 4
		sqft := 450 + bedrooms*250 + (i*13)%200
		p := price(i, sqft)
		status := "active"
		if i%17 == 16 {
			status = "off_market"
		}
		images := db.StringList{fmt.Sprintf("/static/img/listing-%d.svg", i%6+1)}
		agents := db.StringList{fmt.Sprintf("Agent %c", 'A'+rune(i%5))}
		amenities := db.StringList{"Doorman", "Laundry"}[:i%3]

		if _, err := tx.ExecContext(ctx, stmt,
			fmt.Sprintf("%s-%03d", table[:1], i+1),
			fmt.Sprintf("%d %s, %s", 100+i*7, hood.street, hood.name),
			hood.name,
			hood.zip,
			p,
			p/float64(sqft),
			bedrooms,
			1+float64(bedrooms/2)*0.5,
			sqft,
			grades[i%len(grades)],
			99-float64((i*31)%120)/2,
			float64((i*11)%25),
			status,
			images,
			agents,
			amenities,
		); err != nil {
			return fmt.Errorf("seed %s row %d: %w", table, i+1, err)
		}
	}
	return nil
}
