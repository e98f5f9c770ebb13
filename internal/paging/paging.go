// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package paging computes page windows for listings. Requested pages are
// clamped into range instead of being rejected.
package paging

// Meta describes one page of a listing.
type Meta struct {
	Page       int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
	TotalCount int `json:"totalCount"`
}

// Compute returns the metadata for the requested page of a listing holding
// total items. The page count is ceil(total/size); the page is clamped into
// [1, TotalPages], and is 1 when there are no pages. A size below 1 is
// treated as 1.
func Compute(total, page, size int) Meta {
	if size < 1 {
		size = 1
	}
	if total < 0 {
		total = 0
	}

	pages := (total + size - 1) / size
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}

	return Meta{
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
		TotalCount: total,
	}
}

// Offset returns the number of items preceding the current page.
func (m Meta) Offset() int {
	return (m.Page - 1) * m.PageSize
}

// HasPrev reports whether a previous page exists.
func (m Meta) HasPrev() bool {
	return m.Page > 1
}

// HasNext reports whether a next page exists.
func (m Meta) HasNext() bool {
	return m.Page < m.TotalPages
}

// Prev returns the previous page number.
func (m Meta) Prev() int {
	if m.Page <= 1 {
		return 1
	}
	return m.Page - 1
}

// Next returns the next page number.
func (m Meta) Next() int {
	if m.Page >= m.TotalPages {
		return m.Page
	}
	return m.Page + 1
}

// Pages returns the page numbers for navigation links.
func (m Meta) Pages() []int {
	out := make([]int, m.TotalPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Page is a window of items together with its metadata.
type Page[T any] struct {
	Meta
	Items []T
}

// Slice paginates an ordered in-memory sequence.
func Slice[T any](items []T, page, size int) Page[T] {
	m := Compute(len(items), page, size)
	start := m.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + m.PageSize
	if end > len(items) {
		end = len(items)
	}
	return Page[T]{Meta: m, Items: items[start:end]}
}

// Normalize substitutes def for a non-positive size and caps it at max when
// max is positive.
func Normalize(size, def, max int) int {
	if size <= 0 {
		size = def
	}
	if max > 0 && size > max {
		size = max
	}
	return size
}
