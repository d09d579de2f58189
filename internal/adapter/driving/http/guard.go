package httphandler

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/coldrm/coldrm/internal/application"
	"github.com/coldrm/coldrm/internal/config"
)

// UserIDHeader carries the caller's identity, set by the upstream auth proxy.
const UserIDHeader = "X-User-ID"

const (
	csrfCookieName = "csrf_token"
	csrfNonceBytes = 32
)

// ForgeryGuard rejects state-changing API calls that lack the
// X-Requested-With marker and a matching X-CSRF-Token.
//
// In static mode the token must equal a configured shared value. In session
// mode it must equal the csrf_token cookie issued by GET /api/csrf, and that
// cookie must carry a valid signature bound to the caller's user ID.
type ForgeryGuard struct {
	mode  string
	token string
	key   []byte
}

// NewForgeryGuard creates a ForgeryGuard for mode (config.CSRFModeStatic or
// config.CSRFModeSession). secret keys the session token signatures.
func NewForgeryGuard(mode, staticToken, secret string) *ForgeryGuard {
	key := sha256.Sum256([]byte("coldrm-csrf:" + secret))
	return &ForgeryGuard{mode: mode, token: staticToken, key: key[:]}
}

// Valid reports whether r carries both forgery markers.
func (g *ForgeryGuard) Valid(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
		return false
	}
	token := r.Header.Get("X-CSRF-Token")
	if token == "" {
		return false
	}

	if g.mode != config.CSRFModeSession {
		return subtle.ConstantTimeCompare([]byte(token), []byte(g.token)) == 1
	}

	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
		return false
	}
	return g.verify(cookie.Value, r.Header.Get(UserIDHeader))
}

// sign returns nonce.mac where mac binds the nonce to userID.
func (g *ForgeryGuard) sign(nonce, userID string) string {
	return nonce + "." + hex.EncodeToString(g.mac(nonce, userID))
}

func (g *ForgeryGuard) verify(token, userID string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(got, g.mac(nonce, userID))
}

func (g *ForgeryGuard) mac(nonce, userID string) []byte {
	m := hmac.New(sha256.New, g.key)
	m.Write([]byte(nonce))
	m.Write([]byte{0})
	m.Write([]byte(userID))
	return m.Sum(nil)
}

// Protect wraps next with the forgery check.
func (g *ForgeryGuard) Protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.Valid(r) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r)
	}
}

// IssueToken serves GET /api/csrf. In session mode it returns the token the
// client must echo, setting a fresh csrf_token cookie unless the request
// already carries a valid one for the same user. In static mode there is
// nothing to issue.
func (g *ForgeryGuard) IssueToken(w http.ResponseWriter, r *http.Request) {
	if g.mode != config.CSRFModeSession {
		writeJSON(w, http.StatusOK, csrfResponse{Mode: g.mode})
		return
	}

	userID := r.Header.Get(UserIDHeader)
	var token string
	if cookie, err := r.Cookie(csrfCookieName); err == nil && g.verify(cookie.Value, userID) {
		token = cookie.Value
	} else {
		token = g.sign(generateNonce(), userID)
		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: false, // read by the UI to set X-CSRF-Token
			SameSite: http.SameSiteStrictMode,
			Secure:   r.TLS != nil,
		})
	}
	writeJSON(w, http.StatusOK, csrfResponse{Mode: g.mode, Token: token})
}

func generateNonce() string {
	b := make([]byte, csrfNonceBytes)
	if _, err := rand.Read(b); err != nil {
		panic("csrf: failed to generate random token: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// requireUser resolves the caller from UserIDHeader and rejects anonymous
// requests with 401.
func requireUser(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, userID)
	}
}

// RequireAdmin returns middleware admitting only configured administrators.
func RequireAdmin(admins application.AdminSet) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(UserIDHeader)
			if userID == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !admins.Contains(userID) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next(w, r)
		}
	}
}

// callerMatches reports whether a user ID supplied in a request body agrees
// with the proxy-supplied identity, when there is one.
func callerMatches(r *http.Request, bodyUserID string) bool {
	header := r.Header.Get(UserIDHeader)
	return header == "" || header == bodyUserID
}
