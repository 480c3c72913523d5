package chi

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/domain/listing"
	"github.com/dealscout/dealscout/internal/domain/search/filter"
	"github.com/dealscout/dealscout/internal/domain/search/mode"
	"github.com/dealscout/dealscout/internal/logger"
	"github.com/dealscout/dealscout/internal/usecase/browse"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{
	"home", "manifesto", "pricing", "neighborhoods", "login", "search", "error",
}

// pageSet holds one template tree per page, each sharing the layout and partials.
type pageSet struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

func loadPages() (*pageSet, error) {
	base, err := template.ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	ps := &pageSet{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		ps.pages[name] = t
	}
	ps.fragments = base
	return ps, nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

type pageView struct {
	Title         string
	Active        string
	LoginURL      string
	Search        *searchView
	Neighborhoods []neighborhoodView
	Status        int
	Message       string
}

type searchView struct {
	Filters          filter.Filters
	IsRent           bool
	PriceLabel       string
	PricePlaceholder string
	BedroomOptions   []optionView
	Count            string
	Cards            []cardView
	HasMore          bool
	Busy             bool
	Empty            bool
	Overlay          *cardView
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type cardView struct {
	ID           string
	Kind         string
	Address      string
	Neighborhood string
	ZipCode      string
	Grade        string
	Score        string
	Image        string
	Price        string
	PerSqft      string
	Beds         int
	Baths        string
	Sqft         string
	Discount     string
	Media        listing.Media
}

type neighborhoodView struct {
	Name  string
	Zip   string
	Blurb string
}

var neighborhoods = []neighborhoodView{
	{"East Village", "10009", "Walk-ups, tenement charm and the occasional underpriced two-bed."},
	{"Lower East Side", "10002", "Old-law buildings next to glass towers, with prices all over the map."},
	{"Williamsburg", "11211", "New development inventory that lingers long enough to discount."},
	{"Astoria", "11102", "Prewar rentals with square footage Manhattan forgot."},
	{"Harlem", "10027", "Brownstone stock with the widest spread between ask and value."},
	{"Park Slope", "11215", "Family-size co-ops that trade on grade more than glamour."},
	{"Chelsea", "10011", "Gallery blocks where doorman buildings sometimes slip below comps."},
	{"Bushwick", "11237", "Lofts and conversions where per-foot pricing still makes sense."},
}

var bedroomChoices = []optionView{
	{Value: "", Label: "Any"},
	{Value: "1", Label: "1+"},
	{Value: "2", Label: "2+"},
	{Value: "3", Label: "3+"},
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, view pageView) {
	t, ok := s.pages.pages[name]
	if !ok {
		s.renderFailed(w, r, fmt.Errorf("unknown page %q", name))
		return
	}
	view.LoginURL = s.opts.LoginURL
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", view); err != nil {
		s.renderFailed(w, r, err)
		return
	}
	writeHTML(w, status, buf.Bytes())
}

func (s *Server) renderFragment(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		s.renderFailed(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Error("render failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// renderError shows the error page with the status matching a domain error.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("page error", zap.Error(err))
	} else {
		logger.FromContext(r.Context()).Warn("page error", zap.Error(err))
	}
	s.render(w, r, status, "error", pageView{
		Title:   http.StatusText(status),
		Status:  status,
		Message: safeDomainMessage(err),
	})
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) page(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := pageView{Title: title, Active: name}
		if name == "neighborhoods" {
			view.Neighborhoods = neighborhoods
		}
		s.render(w, r, http.StatusOK, name, view)
	}
}

// Login handles GET /login. Sign-in itself happens at the external provider.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", pageView{Title: "Log in", Active: "login"})
}

// NotFound renders the 404 page.
func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "error", pageView{
		Title:   "Not found",
		Status:  http.StatusNotFound,
		Message: "This page does not exist.",
	})
}

// SearchPage handles GET /search. Query parameters named like the form
// fields (and mode) are applied before rendering, so links can open a
// prefiltered search.
func (s *Server) SearchPage(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)
	if err := applyQuery(r, c); err != nil {
		s.renderError(w, r, err)
		return
	}
	ensureLoaded(r.Context(), c)
	s.render(w, r, http.StatusOK, "search", pageView{
		Title:  "Search",
		Active: "search",
		Search: newSearchView(c.Snapshot(), nil),
	})
}

// SearchResults handles GET /search/results, the grid fragment the page script polls.
func (s *Server) SearchResults(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)
	ensureLoaded(r.Context(), c)
	s.renderFragment(w, r, "results", newSearchView(c.Snapshot(), nil))
}

// UpdateFilters handles POST /search/filters. Edits are debounced unless
// the form was submitted with its button, which fetches at once.
func (s *Server) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "error", pageView{
			Title: "Bad request", Status: http.StatusBadRequest, Message: "invalid form",
		})
		return
	}
	c := s.session(w, r)
	setFields(c, r.PostForm.Has, r.PostForm.Get)
	if r.PostForm.Has("submit") {
		c.Flush(r.Context())
	}
	done(w, r)
}

// UpdateMode handles POST /search/mode. A change fetches immediately.
func (s *Server) UpdateMode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "error", pageView{
			Title: "Bad request", Status: http.StatusBadRequest, Message: "invalid form",
		})
		return
	}
	m, err := mode.Parse(r.PostForm.Get("mode"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	c := s.session(w, r)
	if c.Snapshot().Filters.Mode != m {
		c.SetMode(r.Context(), m)
	}
	done(w, r)
}

// LoadMore handles POST /search/more.
func (s *Server) LoadMore(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)
	c.LoadMore(r.Context())
	done(w, r)
}

// ShowListing handles GET /search/listings/{id}. Listings outside the
// current results are looked up directly so shared links still open.
func (s *Server) ShowListing(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "id")
	c := s.session(w, r)

	l, ok := c.Select(id)
	if !ok {
		var err error
		l, err = s.search.Get(r.Context(), c.Snapshot().Filters.Mode, id)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
	}
	overlay := newCardView(l)

	if r.URL.Query().Get("fragment") != "" {
		s.renderFragment(w, r, "overlay", overlay)
		return
	}
	ensureLoaded(r.Context(), c)
	s.render(w, r, http.StatusOK, "search", pageView{
		Title:  l.Common().Address,
		Active: "search",
		Search: newSearchView(c.Snapshot(), &overlay),
	})
}

// CloseListing handles POST /search/close.
func (s *Server) CloseListing(w http.ResponseWriter, r *http.Request) {
	c := s.session(w, r)
	c.ClearSelection()
	done(w, r)
}

var formFields = []filter.Field{filter.Term, filter.Zip, filter.MaxPrice, filter.Bedrooms}

// setFields forwards changed form values to the controller.
func setFields(c *browse.Controller, has func(string) bool, get func(string) string) bool {
	current := c.Snapshot().Filters
	changed := false
	for _, f := range formFields {
		if !has(string(f)) {
			continue
		}
		v := get(string(f))
		if v == current.Get(f) {
			continue
		}
		c.SetFilter(f, v)
		changed = true
	}
	return changed
}

func applyQuery(r *http.Request, c *browse.Controller) error {
	q := r.URL.Query()
	if len(q) == 0 {
		return nil
	}
	changed := setFields(c, q.Has, q.Get)
	if q.Has("mode") {
		m, err := mode.Parse(q.Get("mode"))
		if err != nil {
			return err
		}
		if c.Snapshot().Filters.Mode != m {
			c.SetMode(r.Context(), m)
			return nil
		}
	}
	if changed {
		c.Flush(r.Context())
	}
	return nil
}

func newSearchView(st browse.State, overlay *cardView) *searchView {
	v := &searchView{
		Filters: st.Filters,
		IsRent:  st.Filters.Mode.IsRent(),
		HasMore: st.HasMore && !st.Loading,
		Busy:    st.Loading || st.Pending,
		Empty:   st.IsEmpty(),
		Count:   formatCount(len(st.Results)),
		Overlay: overlay,
	}
	if v.IsRent {
		v.PriceLabel, v.PricePlaceholder = "Max /month", "$4,000"
	} else {
		v.PriceLabel, v.PricePlaceholder = "Max price", "$1,500,000"
	}
	v.BedroomOptions = make([]optionView, len(bedroomChoices))
	for i, o := range bedroomChoices {
		o.Selected = o.Value == st.Filters.Bedrooms
		v.BedroomOptions[i] = o
	}
	v.Cards = make([]cardView, len(st.Results))
	for i, l := range st.Results {
		v.Cards[i] = newCardView(l)
	}
	if v.Overlay == nil {
		if l, ok := st.SelectedListing(); ok {
			card := newCardView(l)
			v.Overlay = &card
		}
	}
	return v
}

func newCardView(l listing.Listing) cardView {
	c := l.Common()
	card := cardView{
		ID:           c.ID,
		Kind:         string(l.Kind()),
		Address:      c.Address,
		Neighborhood: c.Neighborhood,
		ZipCode:      c.ZipCode,
		Grade:        c.Grade,
		Score:        formatScore(c.Score),
		Price:        formatPrice(l),
		PerSqft:      formatPerSqft(l),
		Beds:         c.Bedrooms,
		Baths:        formatBaths(c.Bathrooms),
		Sqft:         formatSqft(c.Sqft),
		Media:        c.Media,
	}
	if len(c.Media.Images) > 0 {
		card.Image = c.Media.Images[0]
	}
	if c.DiscountPercent > 0 {
		card.Discount = printer.Sprintf("%.0f%% below comps", c.DiscountPercent)
	}
	return card
}
