package render

import (
	"context"
	"encoding/gob"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/gorilla/sessions"
)

const (
	flashCookie = "wm_flash"

	// maxFlashLen caps a message so a long title cannot push the signed
	// cookie past the browser limit.
	maxFlashLen = 300
)

func init() {
	gob.Register(Flash{})
}

type flashKey struct{}

// flashState is the per-request flash session with the messages read from
// the incoming cookie.
type flashState struct {
	session *sessions.Session
	read    []Flash
}

// FlashStore keeps one-time messages in a signed cookie between a redirect
// and the page that follows it.
type FlashStore struct {
	store *sessions.CookieStore
}

// NewFlashStore signs flash cookies with secret.
func NewFlashStore(secret []byte, secure bool) *FlashStore {
	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &FlashStore{store: cs}
}

// Middleware moves queued flashes into the request context and clears them
// from the cookie. A cookie that fails verification is treated as empty.
// The router installs it on every HTML route.
func (fs *FlashStore) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := fs.store.Get(r, flashCookie)
		if err != nil {
			slog.Debug("flash cookie rejected", "error", err)
		}

		st := &flashState{session: sess}
		if raw := sess.Flashes(); len(raw) > 0 {
			for _, v := range raw {
				if f, ok := v.(Flash); ok && f.Message != "" {
					st.read = append(st.read, f)
				}
			}
			if err := sess.Save(r, w); err != nil {
				slog.Warn("flash cookie clear failed", "error", err)
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), flashKey{}, st)))
	})
}

// SetFlash queues a message for the next rendered page. It does nothing on
// routes without the flash middleware.
func SetFlash(w http.ResponseWriter, r *http.Request, typ, message string) {
	st, _ := r.Context().Value(flashKey{}).(*flashState)
	if st == nil {
		return
	}
	st.session.AddFlash(Flash{Type: typ, Message: truncate(message, maxFlashLen)})
	if err := st.session.Save(r, w); err != nil {
		slog.Warn("flash cookie save failed", "error", err)
	}
}

func flashesFromCtx(ctx context.Context) []Flash {
	st, _ := ctx.Value(flashKey{}).(*flashState)
	if st == nil {
		return nil
	}
	return st.read
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
