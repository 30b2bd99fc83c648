package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/server/auth"
	"github.com/dmitrijs2005/liveon/internal/server/models"
)

// credential returns the provider access token stored in the session
// cookie, or "" when there is none or the cookie does not decode.
func (h *Handler) credential(r *http.Request) string {
	sess, err := h.cookies.Get(r, common.SessionCookieName)
	if err != nil {
		return ""
	}
	tok, _ := sess.Values[common.CredentialKey].(string)
	return tok
}

func (h *Handler) saveCredential(w http.ResponseWriter, r *http.Request, tok string) error {
	// a stale cookie under an old key fails to decode; a fresh session replaces it
	sess, _ := h.cookies.Get(r, common.SessionCookieName)
	sess.Values[common.CredentialKey] = tok
	return sess.Save(r, w)
}

func (h *Handler) clearCredential(w http.ResponseWriter, r *http.Request) error {
	sess, _ := h.cookies.Get(r, common.SessionCookieName)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

func (h *Handler) setProfileCookie(w http.ResponseWriter, p *models.UserProfile) error {
	tok, err := auth.GenerateProfileToken(*p, h.keys.Profile, common.SessionMaxAge)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     common.ProfileCookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(common.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handler) clearProfileCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.ProfileCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

// currentUser resolves the caller. The cached profile cookie is trusted
// when valid; otherwise the provider is asked and the cache refreshed.
// A missing or rejected credential is common.ErrorUnauthorized; a provider
// outage is common.ErrProviderUnavailable.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*models.UserProfile, string, error) {
	cred := h.credential(r)
	if cred == "" {
		return nil, "", common.ErrorUnauthorized
	}

	if c, err := r.Cookie(common.ProfileCookieName); err == nil {
		if p, err := auth.ProfileFromToken(c.Value, h.keys.Profile); err == nil {
			return p, cred, nil
		}
	}

	p, err := h.graph.Me(r.Context(), cred)
	if errors.Is(err, common.ErrProviderUnavailable) {
		h.log.Error(r.Context(), "profile lookup failed", "error", err)
		return nil, "", common.ErrProviderUnavailable
	}
	if err != nil {
		h.log.Info(r.Context(), "profile lookup rejected", "error", err)
		return nil, "", common.ErrorUnauthorized
	}
	if err := h.setProfileCookie(w, p); err != nil {
		h.log.Warn(r.Context(), "profile cookie not refreshed", "error", err)
	}

	return p, cred, nil
}

// writeAuthError answers a failed currentUser.
func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, common.ErrProviderUnavailable) {
		writeError(w, http.StatusBadGateway, "Identity provider unavailable")
		return
	}
	writeError(w, http.StatusUnauthorized, "Not authenticated")
}
