// Package dealscout embeds the dealscout listing search in a Go program.
//
// The client reads ranked sale and rental listings from a PostgREST
// endpoint, a PostgreSQL database or a local SQLite file, optionally
// through a Redis page cache.
//
// # One-shot queries
//
//	client, _ := dealscout.New(ctx, dealscout.WithPostgREST("https://xyz.supabase.co", anonKey))
//	defer client.Close()
//	page, _ := client.Search(ctx, dealscout.Filters{Zip: "10009"}, 0)
//	for _, l := range page.Listings {
//	    fmt.Println(l.Score, l.Address, l.Price)
//	}
//
// # Interactive sessions
//
// A Session keeps filter state and accumulated results the way the search
// page does: field edits are debounced, a mode change fetches immediately
// and LoadMore appends the next page of 50.
//
//	s := client.NewSession()
//	defer s.Close()
//	s.SetTerm("east village")
//	s.Flush(ctx)
//	s.LoadMore(ctx)
//	st := s.State()
package dealscout
