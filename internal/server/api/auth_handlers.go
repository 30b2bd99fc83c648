package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/liveon/internal/common"
)

// Login redirects to the provider dialog with a fresh state token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.graph.Configured() {
		writeError(w, http.StatusInternalServerError, "Missing FB Configuration")
		return
	}

	state, err := h.state.Issue()
	if err != nil {
		h.log.Error(r.Context(), "state issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.Redirect(w, r, h.graph.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the provider round trip and stores the credential.
// Failures redirect home with an error query parameter.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	if e := q.Get("error"); e != "" {
		h.redirectError(w, r, e)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		h.redirectError(w, r, "missing_params")
		return
	}

	if _, err := h.state.Verify(state, common.StateMaxAge); err != nil {
		h.log.Warn(ctx, "login state rejected", "error", err)
		h.redirectError(w, r, "invalid_state")
		return
	}

	tok, err := h.graph.ExchangeCode(ctx, code)
	if err != nil {
		h.log.Error(ctx, "token exchange failed", "error", err)
		h.redirectError(w, r, "token_exchange_failed")
		return
	}

	profile, err := h.graph.Me(ctx, tok)
	if err != nil {
		h.log.Error(ctx, "profile fetch after exchange failed", "error", err)
		h.redirectError(w, r, "token_exchange_failed")
		return
	}

	if err := h.saveCredential(w, r, tok); err != nil {
		h.log.Error(ctx, "session save failed", "error", err)
		h.redirectError(w, r, "token_exchange_failed")
		return
	}
	if err := h.setProfileCookie(w, profile); err != nil {
		h.log.Warn(ctx, "profile cookie not set", "error", err)
	}

	h.log.Info(ctx, "user logged in", "user_id", profile.ID)
	http.Redirect(w, r, h.cfg.BaseURL+"/", http.StatusFound)
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.cfg.BaseURL+"?error="+url.QueryEscape(code), http.StatusFound)
}

// Me validates the stored credential against the provider.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	cred := h.credential(r)
	if cred == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false})
		return
	}

	p, err := h.graph.Me(r.Context(), cred)
	if errors.Is(err, common.ErrProviderUnavailable) {
		h.log.Error(r.Context(), "profile lookup failed", "error", err)
		writeError(w, http.StatusBadGateway, "Identity provider unavailable")
		return
	}
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"authenticated": false, "error": "Invalid token"})
		return
	}
	if err := h.setProfileCookie(w, p); err != nil {
		h.log.Warn(r.Context(), "profile cookie not refreshed", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": p})
}

// Logout drops both auth cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.clearCredential(w, r); err != nil {
		h.log.Warn(r.Context(), "failed to clear session", "error", err)
	}
	h.clearProfileCookie(w)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
