package render

import (
	"net/url"
	"strconv"

	"webmvc/internal/paging"
)

// Pager renders pagination links for a listing. Base is the listing path;
// Query holds the other query values to keep on every link.
type Pager struct {
	paging.Meta
	Base  string
	Query url.Values
	Param string // page parameter name, "p" when empty
}

// NewPager returns a Pager over m for the listing at base.
func NewPager(m paging.Meta, base string, q url.Values) Pager {
	return Pager{Meta: m, Base: base, Query: q}
}

// URL returns the link to page n.
func (p Pager) URL(n int) string {
	v := url.Values{}
	for k, vals := range p.Query {
		v[k] = vals
	}
	param := p.Param
	if param == "" {
		param = "p"
	}
	v.Set(param, strconv.Itoa(n))
	return p.Base + "?" + v.Encode()
}
