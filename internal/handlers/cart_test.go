package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"webmvc/internal/cart"
	"webmvc/internal/models"
	"webmvc/internal/render"
)

// fakeProducts serves published products from a map.
type fakeProducts map[int64]*models.Product

func (f fakeProducts) FindPublishedByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f[id]
	if !ok || !p.Published {
		return nil, nil
	}
	return p, nil
}

func newTestCart(t *testing.T) (*Cart, *cart.MemoryStore) {
	t.Helper()
	renderer, err := render.New(true)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	products := fakeProducts{
		1: {Content: models.Content{ID: 1, Title: "Mug", Slug: "mug", Published: true}, Price: 9.5},
		2: {Content: models.Content{ID: 2, Title: "Shirt", Slug: "shirt", Published: true}, Price: 20},
		3: {Content: models.Content{ID: 3, Title: "Draft", Slug: "draft"}, Price: 1},
	}
	carts := cart.NewMemoryStore()
	return NewCart(renderer, carts, products, false), carts
}

func cartRequest(method, target, cartID string, body url.Values) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cartID != "" {
		req.AddCookie(&http.Cookie{Name: cart.CookieName, Value: cartID})
	}
	return req
}

func TestCartAdd_SetsCookieAndStoresLine(t *testing.T) {
	h, carts := newTestCart(t)

	req := withChiURLParam(cartRequest(http.MethodGet, "/add-cart/1", "", nil), "productID", "1")
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/cart" {
		t.Errorf("Location: got %q, want /cart", loc)
	}

	var cartID string
	for _, c := range rec.Result().Cookies() {
		if c.Name == cart.CookieName {
			cartID = c.Value
		}
	}
	if _, err := uuid.Parse(cartID); err != nil {
		t.Fatalf("cart cookie: got %q, want a uuid", cartID)
	}

	items, _ := carts.Load(context.Background(), cartID)
	if len(items) != 1 || items[0].ProductID != 1 || items[0].Quantity != 1 {
		t.Errorf("cart: got %+v, want one Mug", items)
	}
}

func TestCartAdd_TwiceIncrementsQuantity(t *testing.T) {
	h, carts := newTestCart(t)
	cartID := uuid.NewString()

	for i := 0; i < 2; i++ {
		req := withChiURLParam(cartRequest(http.MethodGet, "/add-cart/2", cartID, nil), "productID", "2")
		h.Add(httptest.NewRecorder(), req)
	}

	items, _ := carts.Load(context.Background(), cartID)
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Errorf("cart: got %+v, want Shirt x2", items)
	}
}

func TestCartAdd_UnknownOrDraftIs404(t *testing.T) {
	h, _ := newTestCart(t)

	for _, id := range []string{"3", "99", "abc"} {
		req := withChiURLParam(cartRequest(http.MethodGet, "/add-cart/"+id, "", nil), "productID", id)
		rec := httptest.NewRecorder()
		h.Add(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("product %s: got status %d, want %d", id, rec.Code, http.StatusNotFound)
		}
	}
}

func TestCartUpdate_ZeroRemovesLine(t *testing.T) {
	h, carts := newTestCart(t)
	cartID := uuid.NewString()
	ctx := context.Background()
	carts.Save(ctx, cartID, cart.Cart{
		{ProductID: 1, Title: "Mug", Price: 9.5, Quantity: 1},
		{ProductID: 2, Title: "Shirt", Price: 20, Quantity: 1},
	})

	form := url.Values{"productId": {"1", "2"}, "quantity": {"3", "0"}}
	rec := httptest.NewRecorder()
	h.Update(rec, cartRequest(http.MethodPost, "/update-cart", cartID, form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	items, _ := carts.Load(ctx, cartID)
	if len(items) != 1 || items[0].ProductID != 1 || items[0].Quantity != 3 {
		t.Errorf("cart: got %+v, want Mug x3", items)
	}
}

func TestCartRemove(t *testing.T) {
	h, carts := newTestCart(t)
	cartID := uuid.NewString()
	ctx := context.Background()
	carts.Save(ctx, cartID, cart.Cart{{ProductID: 1, Title: "Mug", Price: 9.5, Quantity: 2}})

	req := withChiURLParam(cartRequest(http.MethodGet, "/remove-cart/1", cartID, nil), "productID", "1")
	h.Remove(httptest.NewRecorder(), req)

	items, _ := carts.Load(ctx, cartID)
	if len(items) != 0 {
		t.Errorf("cart: got %+v, want empty", items)
	}
}

func TestCartView_ShowsTotal(t *testing.T) {
	h, carts := newTestCart(t)
	cartID := uuid.NewString()
	carts.Save(context.Background(), cartID, cart.Cart{
		{ProductID: 1, Title: "Mug", Slug: "mug", Price: 9.5, Quantity: 2},
	})

	rec := httptest.NewRecorder()
	h.View(rec, cartRequest(http.MethodGet, "/cart", cartID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Mug") || !strings.Contains(body, "19.00") {
		t.Errorf("body: want Mug and total 19.00")
	}
}

func TestCartCheckout_ClearsCart(t *testing.T) {
	h, carts := newTestCart(t)
	cartID := uuid.NewString()
	ctx := context.Background()
	carts.Save(ctx, cartID, cart.Cart{{ProductID: 2, Title: "Shirt", Price: 20, Quantity: 1}})

	rec := httptest.NewRecorder()
	h.Checkout(rec, cartRequest(http.MethodGet, "/checkout", cartID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	items, _ := carts.Load(ctx, cartID)
	if len(items) != 0 {
		t.Errorf("cart after checkout: got %+v, want empty", items)
	}
}

func TestCartCheckout_EmptyRedirects(t *testing.T) {
	h, _ := newTestCart(t)

	rec := httptest.NewRecorder()
	h.Checkout(rec, cartRequest(http.MethodGet, "/checkout", "", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
}

func TestCartCount_Middleware(t *testing.T) {
	h, carts := newTestCart(t)
	cartID := uuid.NewString()
	carts.Save(context.Background(), cartID, cart.Cart{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	})

	var got int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = render.CartCountFromCtx(r.Context())
	})
	h.Count(next).ServeHTTP(httptest.NewRecorder(), cartRequest(http.MethodGet, "/", cartID, nil))

	if got != 5 {
		t.Errorf("cart count: got %d, want 5", got)
	}
}
