package sqlbuild

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

func TestRender_PostgresZipScenario(t *testing.T) {
	q := query.Compose(filter.Filters{Zip: "10009", Mode: mode.Buy}, 0, query.PageSize)

	sql, args, err := Render(q, Postgres)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := `SELECT * FROM "sales" WHERE "status" = $1 AND "zip_code" ILIKE $2 ` +
		`ORDER BY "score" DESC LIMIT $3 OFFSET $4`
	if sql != want {
		t.Errorf("sql:\ngot:  %s\nwant: %s", sql, want)
	}
	wantArgs := []any{"active", "%10009%", 50, 0}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestRender_SQLiteTermGroup(t *testing.T) {
	q := query.Compose(filter.Filters{Term: "soho", Bedrooms: "2", Mode: mode.Rent}, 50, query.PageSize)

	sql, args, err := Render(q, SQLite)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := `SELECT * FROM "rentals" WHERE "status" = ? AND ("address" LIKE ? OR "neighborhood" LIKE ?) ` +
		`AND "bedrooms" >= ? ORDER BY "score" DESC LIMIT ? OFFSET ?`
	if sql != want {
		t.Errorf("sql:\ngot:  %s\nwant: %s", sql, want)
	}
	wantArgs := []any{"active", "%soho%", "%soho%", 2, 50, 50}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestRender_ColumnsAndAscOrder(t *testing.T) {
	q := query.From("sales").Select("id", "score").Lte("price", 10.0).OrderAsc("id").Range(0, 9).MustBuild()

	sql, _, err := Render(q, Postgres)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := `SELECT "id", "score" FROM "sales" WHERE "price" <= $1 ORDER BY "id" ASC LIMIT $2 OFFSET $3`
	if sql != want {
		t.Errorf("sql:\ngot:  %s\nwant: %s", sql, want)
	}
}

func TestRender_RejectsBadIdentifiers(t *testing.T) {
	tests := []*query.Query{
		{Table: "sales; DROP TABLE sales", Window: query.Range{From: 0, To: 1}},
		query.From("sales").Select("id\"").Range(0, 1).MustBuild(),
		query.From("sales").Eq("Status", "x").Range(0, 1).MustBuild(),
		query.From("sales").OrderDesc("score desc").Range(0, 1).MustBuild(),
	}
	for _, q := range tests {
		_, _, err := Render(q, Postgres)
		if !errors.Is(err, db.ErrBadColumn) {
			t.Errorf("Render(%s): expected ErrBadColumn, got %v", q, err)
		}
	}
}

func TestRender_InvalidQuery(t *testing.T) {
	_, _, err := Render(&query.Query{}, Postgres)
	if err == nil {
		t.Error("expected error for empty query")
	}
}
