package pagination

// Page is an offset window over a newest-first listing.
type Page struct {
	Limit  int `form:"limit" json:"limit"`
	Offset int `form:"offset" json:"offset"`
}

// Normalize clamps the page into [1, max] with def applied to a missing limit.
func (p Page) Normalize(def, max int) Page {
	limit := p.Limit
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
