// Package cart implements the shopping cart. A Cart is a plain value;
// every operation returns a new cart and leaves its input untouched.
// Persistence is a read-modify-write against a Store keyed by the cart id
// carried in the visitor's cookie.
package cart

import "webmvc/internal/models"

// Item is one cart line.
type Item struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Subtotal is the line price times quantity.
func (i Item) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Cart is an ordered list of lines, one per product.
type Cart []Item

func (c Cart) clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

func (c Cart) index(productID int64) int {
	for i, it := range c {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts one unit of p in the cart, incrementing an existing line.
// Title and price are refreshed from p.
func Add(c Cart, p *models.Product) Cart {
	out := c.clone()
	if i := out.index(p.ID); i >= 0 {
		out[i].Quantity++
		out[i].Title = p.Title
		out[i].Slug = p.Slug
		out[i].Price = p.Price
		return out
	}
	return append(out, Item{
		ProductID: p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Price:     p.Price,
		Quantity:  1,
	})
}

// Remove drops the line for productID.
func Remove(c Cart, productID int64) Cart {
	out := make(Cart, 0, len(c))
	for _, it := range c {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	return out
}

// Update sets the quantity of a line. A quantity of zero or less removes
// it; an unknown product leaves the cart unchanged.
func Update(c Cart, productID int64, qty int) Cart {
	if qty <= 0 {
		return Remove(c, productID)
	}
	out := c.clone()
	if i := out.index(productID); i >= 0 {
		out[i].Quantity = qty
	}
	return out
}

// Total sums the line subtotals.
func Total(c Cart) float64 {
	var t float64
	for _, it := range c {
		t += it.Subtotal()
	}
	return t
}

// Count sums the quantities.
func Count(c Cart) int {
	var n int
	for _, it := range c {
		n += it.Quantity
	}
	return n
}
