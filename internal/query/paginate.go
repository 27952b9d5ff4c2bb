package query

// Pagination describes one page of an ordered listing
type Pagination struct {
	Number     int
	PerPage    int
	TotalPages int
	TotalItems int64
	HasPrev    bool
	HasNext    bool
}

// Paginate clamps the requested page into the valid range and computes the
// offset for it. Out-of-range requests land on the nearest valid page, never
// an error: page < 1 clamps to the first page, page > last clamps to the
// last. An empty listing still has one (empty) page.
func Paginate(page, perPage int, totalItems int64) (Pagination, int) {
	totalPages := int((totalItems + int64(perPage) - 1) / int64(perPage))
	if totalPages < 1 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	p := Pagination{
		Number:     page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalItems: totalItems,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	return p, (page - 1) * perPage
}
