package chi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/logger"
	"github.com/dealscout/dealscout/internal/usecase/browse"
)

const sessionCookie = "dealscout_session"

// session returns the caller's search controller, starting a new session
// and setting its cookie when the request carries none or an expired one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *browse.Controller {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	newID, ctrl, created := s.sessions.GetOrCreate(id)
	if created {
		cookie := &http.Cookie{
			Name:     sessionCookie,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.opts.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		}
		if s.opts.SessionTTL > 0 {
			cookie.MaxAge = int(s.opts.SessionTTL.Seconds())
		}
		http.SetCookie(w, cookie)
	}
	logger.FromContext(r.Context()).Debug("search session",
		zap.String("session_id", newID),
		zap.Bool("created", created),
	)
	return ctrl
}

// ensureLoaded runs the initial fetch for a session that has neither results
// nor a fetch on the way.
func ensureLoaded(ctx context.Context, c *browse.Controller) {
	st := c.Snapshot()
	if st.Loaded || st.Loading || st.Pending {
		return
	}
	c.ResetAndFetch(ctx)
}

// isFetch reports whether the request came from the page script rather than a plain form post.
func isFetch(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "fetch"
}

// done finishes a session action: scripts get 204, form posts are sent back to the search page.
func done(w http.ResponseWriter, r *http.Request) {
	if isFetch(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/search", http.StatusSeeOther)
}
