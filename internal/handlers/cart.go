package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"webmvc/internal/cart"
	"webmvc/internal/models"
	"webmvc/internal/render"
)

// ProductFinder loads a product for the cart.
type ProductFinder interface {
	FindPublishedByID(ctx context.Context, id int64) (*models.Product, error)
}

// Cart groups the shopping cart handlers. The cart itself is a value
// loaded from and saved back to the cart store on every change.
type Cart struct {
	renderer *render.Renderer
	carts    cart.Store
	products ProductFinder
	secure   bool
}

// NewCart creates a new Cart handler group.
func NewCart(renderer *render.Renderer, carts cart.Store, products ProductFinder, secure bool) *Cart {
	return &Cart{
		renderer: renderer,
		carts:    carts,
		products: products,
		secure:   secure,
	}
}

// Count is middleware putting the visitor's cart item count in the request
// context for the site navigation. Visitors without a cart cookie cost no
// lookup.
func (c *Cart) Count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := cart.ID(r); id != "" {
			items, err := c.carts.Load(r.Context(), id)
			if err != nil {
				slog.Warn("cart load failed", "error", err)
			} else if n := cart.Count(items); n > 0 {
				r = r.WithContext(render.WithCartCount(r.Context(), n))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Cart) load(r *http.Request) (cart.Cart, error) {
	id := cart.ID(r)
	if id == "" {
		return nil, nil
	}
	return c.carts.Load(r.Context(), id)
}

// View renders the cart.
func (c *Cart) View(w http.ResponseWriter, r *http.Request) {
	items, err := c.load(r)
	if err != nil {
		slog.Error("cart load failed", "error", err)
		c.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	c.renderer.Page(w, r, "public/cart", &render.PageData{
		Title:     "Cart",
		Section:   "cart",
		CartCount: cart.Count(items),
		Data:      map[string]any{"Cart": items, "Total": cart.Total(items)},
	})
}

// Add puts one unit of a published product in the cart.
func (c *Cart) Add(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "productID")
	if !ok {
		c.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	ctx := r.Context()
	p, err := c.products.FindPublishedByID(ctx, id)
	if err != nil {
		slog.Error("cart product lookup failed", "product_id", id, "error", err)
		c.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if p == nil {
		c.renderer.Error(w, r, http.StatusNotFound)
		return
	}

	cartID := cart.EnsureID(w, r, c.secure)
	items, err := c.carts.Load(ctx, cartID)
	if err != nil {
		slog.Error("cart load failed", "error", err)
		c.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if err := c.carts.Save(ctx, cartID, cart.Add(items, p)); err != nil {
		slog.Error("cart save failed", "error", err)
		c.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	render.SetFlash(w, r, "success", p.Title+" added to your cart.")
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// Remove drops a product line from the cart.
func (c *Cart) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "productID")
	cartID := cart.ID(r)
	if !ok || cartID == "" {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	c.change(w, r, cartID, func(items cart.Cart) cart.Cart { return cart.Remove(items, id) })
}

// Update sets the quantity of the submitted lines. The form repeats one
// productId and one quantity per line; zero removes the line.
func (c *Cart) Update(w http.ResponseWriter, r *http.Request) {
	cartID := cart.ID(r)
	if cartID == "" || r.ParseForm() != nil {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	ids, qtys := r.PostForm["productId"], r.PostForm["quantity"]
	c.change(w, r, cartID, func(items cart.Cart) cart.Cart {
		for i := 0; i < len(ids) && i < len(qtys); i++ {
			id, err := strconv.ParseInt(ids[i], 10, 64)
			if err != nil {
				continue
			}
			qty, err := strconv.Atoi(qtys[i])
			if err != nil {
				continue
			}
			items = cart.Update(items, id, qty)
		}
		return items
	})
}

func (c *Cart) change(w http.ResponseWriter, r *http.Request, cartID string, fn func(cart.Cart) cart.Cart) {
	ctx := r.Context()
	items, err := c.carts.Load(ctx, cartID)
	if err != nil {
		slog.Error("cart load failed", "error", err)
		c.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if err := c.carts.Save(ctx, cartID, fn(items)); err != nil {
		slog.Error("cart save failed", "error", err)
		c.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// Checkout empties the cart and confirms the order. No payment is taken.
func (c *Cart) Checkout(w http.ResponseWriter, r *http.Request) {
	items, err := c.load(r)
	if err != nil {
		slog.Error("cart load failed", "error", err)
		c.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if len(items) == 0 {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	if err := c.carts.Clear(r.Context(), cart.ID(r)); err != nil {
		slog.Error("cart clear failed", "error", err)
		c.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("order sent", "lines", len(items), "total", cart.Total(items))

	r = r.WithContext(render.WithCartCount(r.Context(), 0))
	c.renderer.Page(w, r, "public/checkout", &render.PageData{
		Title:   "Order sent",
		Section: "cart",
		Data:    map[string]any{"Cart": items, "Total": cart.Total(items)},
	})
}
