package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/internal/store"
)

// Contact handles the public contact form.
type Contact struct {
	renderer *render.Renderer
	contacts *store.ContactStore
}

// NewContact creates a new Contact handler.
func NewContact(renderer *render.Renderer, contacts *store.ContactStore) *Contact {
	return &Contact{renderer: renderer, contacts: contacts}
}

// Page renders the empty contact form.
func (c *Contact) Page(w http.ResponseWriter, r *http.Request) {
	c.renderer.Page(w, r, "public/contact", &render.PageData{
		Title:   "Contact",
		Section: "contact",
	})
}

// Submit validates and stores a contact message.
func (c *Contact) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		c.renderer.Error(w, r, http.StatusBadRequest)
		return
	}
	msg := &models.Contact{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Phone:   strings.TrimSpace(r.PostFormValue("phone")),
		Message: strings.TrimSpace(r.PostFormValue("message")),
	}

	if errMsg := validateContact(msg.Name, msg.Email, msg.Phone, msg.Message); errMsg != "" {
		c.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "public/contact", &render.PageData{
			Title:   "Contact",
			Section: "contact",
			Errors:  []string{errMsg},
			Form:    r.PostForm,
		})
		return
	}

	if err := c.contacts.Create(r.Context(), msg); err != nil {
		slog.Error("save contact failed", "error", err)
		c.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("contact message received", "id", msg.ID)

	c.renderer.Page(w, r, "public/contact", &render.PageData{
		Title:   "Contact",
		Section: "contact",
		Data:    map[string]any{"Sent": true},
	})
}
