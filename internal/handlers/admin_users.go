package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"webmvc/internal/auth"
	"webmvc/internal/middleware"
	"webmvc/internal/models"
	"webmvc/internal/render"
	"webmvc/internal/store"
)

// --- Users ---

// UsersList renders the paginated, searchable user list.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	total, err := a.stores.Users.Count(ctx, search)
	if err != nil {
		slog.Error("count users failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	meta := listMeta(r, total)
	users, err := a.stores.Users.List(ctx, search, meta.PageSize, meta.Offset())
	if err != nil {
		slog.Error("list users failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}

	a.renderer.Page(w, r, "admin/users", &render.PageData{
		Title:   "Users",
		Section: "users",
		Data: map[string]any{
			"Users":  users,
			"Search": search,
			"Pager":  render.NewPager(meta, "/admin/users", searchQuery(search)),
		},
	})
}

func (a *Admin) loadUser(w http.ResponseWriter, r *http.Request) *models.User {
	id, ok := uuidParam(r, "id")
	if !ok {
		a.renderer.Error(w, r, http.StatusNotFound)
		return nil
	}
	u, err := a.stores.Users.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find user failed", "id", id, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return nil
	}
	if u == nil {
		a.renderer.Error(w, r, http.StatusNotFound)
	}
	return u
}

func isSelf(r *http.Request, u *models.User) bool {
	sess := middleware.SessionFromCtx(r.Context())
	return sess != nil && sess.UserID == u.ID
}

func (a *Admin) userForm(w http.ResponseWriter, r *http.Request, status int, u *models.User, errs []string) {
	roles, err := a.stores.Roles.List(r.Context())
	if err != nil {
		slog.Error("list roles failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	a.renderer.PageStatus(w, r, status, "admin/user_form", &render.PageData{
		Title:   u.UserName,
		Section: "users",
		Errors:  errs,
		Data:    map[string]any{"User": u, "Roles": roles, "IsSelf": isSelf(r, u)},
	})
}

// UserEdit renders a user's roles, password and 2FA actions.
func (a *Admin) UserEdit(w http.ResponseWriter, r *http.Request) {
	if u := a.loadUser(w, r); u != nil {
		a.userForm(w, r, http.StatusOK, u, nil)
	}
}

// UserRoles replaces the user's roles with the checked ones. Admins cannot
// remove their own Admin role.
func (a *Admin) UserRoles(w http.ResponseWriter, r *http.Request) {
	u := a.loadUser(w, r)
	if u == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		a.renderer.Error(w, r, http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	known, err := a.stores.Roles.Names(ctx)
	if err != nil {
		slog.Error("list roles failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	var names []string
	for _, name := range r.PostForm["roles"] {
		for _, k := range known {
			if name == k {
				names = append(names, name)
				break
			}
		}
	}

	if isSelf(r, u) && u.IsAdmin() {
		keep := false
		for _, n := range names {
			if n == models.RoleAdmin {
				keep = true
			}
		}
		if !keep {
			a.userForm(w, r, http.StatusUnprocessableEntity, u, []string{"You cannot remove your own Admin role."})
			return
		}
	}

	if err := a.stores.Users.SetRoles(ctx, u.ID, names); err != nil {
		slog.Error("set roles failed", "user_id", u.ID, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user roles changed", "user_id", u.ID, "roles", names)
	render.SetFlash(w, r, "success", "Roles of "+u.UserName+" updated. They apply from the next login.")
	http.Redirect(w, r, "/admin/users/"+u.ID.String(), http.StatusSeeOther)
}

// UserPassword sets a user's password.
func (a *Admin) UserPassword(w http.ResponseWriter, r *http.Request) {
	u := a.loadUser(w, r)
	if u == nil {
		return
	}
	password := r.PostFormValue("password")
	if msg := auth.ValidatePassword(password); msg != "" {
		a.userForm(w, r, http.StatusUnprocessableEntity, u, []string{msg})
		return
	}
	ctx := r.Context()
	if err := a.stores.Users.SetPassword(ctx, u.ID, password); err != nil {
		slog.Error("set password failed", "user_id", u.ID, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	if err := a.stores.Users.ResetFailedLogins(ctx, u.ID); err != nil {
		slog.Warn("reset failed logins", "error", err)
	}
	slog.Info("password set by admin", "user_id", u.ID)
	render.SetFlash(w, r, "success", "Password of "+u.UserName+" changed.")
	http.Redirect(w, r, "/admin/users/"+u.ID.String(), http.StatusSeeOther)
}

// UserResetTwoFA clears a user's authenticator and recovery codes.
func (a *Admin) UserResetTwoFA(w http.ResponseWriter, r *http.Request) {
	u := a.loadUser(w, r)
	if u == nil {
		return
	}
	if err := a.stores.Users.ResetTwoFactor(r.Context(), u.ID); err != nil {
		slog.Error("reset 2fa failed", "user_id", u.ID, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("2fa reset by admin", "target_user", u.ID)
	render.SetFlash(w, r, "success", "Two-factor authentication of "+u.UserName+" reset.")
	http.Redirect(w, r, "/admin/users/"+u.ID.String(), http.StatusSeeOther)
}

// UserDelete removes a user. Admins cannot delete themselves.
func (a *Admin) UserDelete(w http.ResponseWriter, r *http.Request) {
	u := a.loadUser(w, r)
	if u == nil {
		return
	}
	if isSelf(r, u) {
		a.userForm(w, r, http.StatusForbidden, u, []string{"You cannot delete your own account here."})
		return
	}
	if err := a.stores.Users.Delete(r.Context(), u.ID); err != nil {
		slog.Error("delete user failed", "user_id", u.ID, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("user deleted", "user_id", u.ID)
	render.SetFlash(w, r, "success", "User "+u.UserName+" deleted.")
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

// --- Roles ---

// RolesList renders every role with its member count.
func (a *Admin) RolesList(w http.ResponseWriter, r *http.Request) {
	roles, err := a.stores.Roles.List(r.Context())
	if err != nil {
		slog.Error("list roles failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	a.renderer.Page(w, r, "admin/roles", &render.PageData{
		Title:   "Roles",
		Section: "roles",
		Data:    map[string]any{"Roles": roles},
	})
}

func (a *Admin) roleForm(w http.ResponseWriter, r *http.Request, status int, role *models.Role, errs []string) {
	title := "New role"
	if role != nil {
		title = "Rename role"
	}
	a.renderer.PageStatus(w, r, status, "admin/role_form", &render.PageData{
		Title:   title,
		Section: "roles",
		Errors:  errs,
		Form:    r.PostForm,
		Data:    map[string]any{"Role": role},
	})
}

// RoleNew renders the empty role form.
func (a *Admin) RoleNew(w http.ResponseWriter, r *http.Request) {
	a.roleForm(w, r, http.StatusOK, nil, nil)
}

// RoleCreate adds a role.
func (a *Admin) RoleCreate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("name"))
	if msg := validateRoleName(name); msg != "" {
		a.roleForm(w, r, http.StatusUnprocessableEntity, nil, []string{msg})
		return
	}
	_, err := a.stores.Roles.Create(r.Context(), name)
	if errors.Is(err, store.ErrRoleTaken) {
		a.roleForm(w, r, http.StatusUnprocessableEntity, nil, []string{"Role '" + name + "' already exists."})
		return
	}
	if err != nil {
		slog.Error("create role failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("role created", "name", name)
	render.SetFlash(w, r, "success", "Role '"+name+"' created.")
	http.Redirect(w, r, "/admin/roles", http.StatusSeeOther)
}

func (a *Admin) loadRole(w http.ResponseWriter, r *http.Request) *models.Role {
	id, ok := uuidParam(r, "id")
	if !ok {
		a.renderer.Error(w, r, http.StatusNotFound)
		return nil
	}
	role, err := a.stores.Roles.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find role failed", "id", id, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return nil
	}
	if role == nil {
		a.renderer.Error(w, r, http.StatusNotFound)
	}
	return role
}

// RoleEdit renders the rename form. Built-in roles cannot be renamed.
func (a *Admin) RoleEdit(w http.ResponseWriter, r *http.Request) {
	role := a.loadRole(w, r)
	if role == nil {
		return
	}
	if role.IsBuiltin() {
		render.SetFlash(w, r, "error", "Built-in roles cannot be renamed.")
		http.Redirect(w, r, "/admin/roles", http.StatusSeeOther)
		return
	}
	a.roleForm(w, r, http.StatusOK, role, nil)
}

// RoleUpdate renames a role.
func (a *Admin) RoleUpdate(w http.ResponseWriter, r *http.Request) {
	role := a.loadRole(w, r)
	if role == nil {
		return
	}
	name := strings.TrimSpace(r.PostFormValue("name"))
	if msg := validateRoleName(name); msg != "" {
		a.roleForm(w, r, http.StatusUnprocessableEntity, role, []string{msg})
		return
	}

	err := a.stores.Roles.Rename(r.Context(), role.ID, name)
	switch {
	case errors.Is(err, store.ErrBuiltinRole):
		a.roleForm(w, r, http.StatusUnprocessableEntity, role, []string{"Built-in roles cannot be renamed."})
		return
	case errors.Is(err, store.ErrRoleTaken):
		a.roleForm(w, r, http.StatusUnprocessableEntity, role, []string{"Role '" + name + "' already exists."})
		return
	case err != nil:
		slog.Error("rename role failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("role renamed", "from", role.Name, "to", name)
	render.SetFlash(w, r, "success", "Role renamed to '"+name+"'.")
	http.Redirect(w, r, "/admin/roles", http.StatusSeeOther)
}

// RoleDelete removes a role that is not built-in.
func (a *Admin) RoleDelete(w http.ResponseWriter, r *http.Request) {
	role := a.loadRole(w, r)
	if role == nil {
		return
	}
	err := a.stores.Roles.Delete(r.Context(), role.ID)
	if errors.Is(err, store.ErrBuiltinRole) {
		render.SetFlash(w, r, "error", "Built-in roles cannot be deleted.")
		http.Redirect(w, r, "/admin/roles", http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Error("delete role failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	slog.Info("role deleted", "name", role.Name)
	render.SetFlash(w, r, "success", "Role '"+role.Name+"' deleted.")
	http.Redirect(w, r, "/admin/roles", http.StatusSeeOther)
}

// --- Contacts ---

// ContactsList renders the received contact messages, newest first.
func (a *Admin) ContactsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := a.stores.Contacts.Count(ctx)
	if err != nil {
		slog.Error("count contacts failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	meta := listMeta(r, total)
	contacts, err := a.stores.Contacts.List(ctx, meta.PageSize, meta.Offset())
	if err != nil {
		slog.Error("list contacts failed", "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	a.renderer.Page(w, r, "admin/contacts", &render.PageData{
		Title:   "Contact messages",
		Section: "contacts",
		Data: map[string]any{
			"Contacts": contacts,
			"Pager":    render.NewPager(meta, "/admin/contacts", nil),
		},
	})
}

// ContactDelete removes a contact message.
func (a *Admin) ContactDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		a.renderer.Error(w, r, http.StatusNotFound)
		return
	}
	if err := a.stores.Contacts.Delete(r.Context(), id); err != nil {
		slog.Error("delete contact failed", "id", id, "error", err)
		a.renderer.Error(w, r, http.StatusInternalServerError)
		return
	}
	render.SetFlash(w, r, "success", "Message deleted.")
	http.Redirect(w, r, "/admin/contacts", http.StatusSeeOther)
}
