package model

// PageMeta is the pagination metadata attached to every list response.
type PageMeta struct {
	Page            int  `json:"page"`
	Take            int  `json:"take"`
	ItemCount       int  `json:"itemCount"`
	PageCount       int  `json:"pageCount"`
	HasPreviousPage bool `json:"hasPreviousPage"`
	HasNextPage     bool `json:"hasNextPage"`
}

// NewPageMeta computes the page metadata for a 1-based page.
func NewPageMeta(page, take, itemCount int) PageMeta {
	pageCount := 0
	if take > 0 {
		pageCount = (itemCount + take - 1) / take
	}
	return PageMeta{
		Page:            page,
		Take:            take,
		ItemCount:       itemCount,
		PageCount:       pageCount,
		HasPreviousPage: page > 1,
		HasNextPage:     page < pageCount,
	}
}

// NormalizePage clamps page and take to sane bounds.
func NormalizePage(page, take, defaultTake, maxTake int) (int, int) {
	if page < 1 {
		page = 1
	}
	if take < 1 {
		take = defaultTake
	}
	if take > maxTake {
		take = maxTake
	}
	return page, take
}
