package domain

// PaginationParams carries limit/skip values from the HTTP layer to the repo layer.
// A zero Limit means no limit.
type PaginationParams struct {
	Limit int
	Skip  int
}

// NewPaginationParams builds PaginationParams from optional HTTP query params.
// A nil limit falls back to 20 and is capped at 100 to prevent runaway queries.
// Negative skips are treated as zero.
func NewPaginationParams(limit, skip *int) PaginationParams {
	p := PaginationParams{Limit: 20}
	if limit != nil && *limit >= 1 {
		p.Limit = *limit
		if p.Limit > 100 {
			p.Limit = 100
		}
	}
	if skip != nil && *skip > 0 {
		p.Skip = *skip
	}
	return p
}
