// Package auth implements the dashboard's single-account login and
// cookie sessions.
package auth

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tecnotop/backend/libs/clock"
	"github.com/tecnotop/backend/libs/errors"
	"github.com/tecnotop/backend/libs/golog"
)

// CookieName carries the session token.
const CookieName = "fb_auth"

const sessionTTL = 12 * time.Hour

var (
	ErrBadCredentials = errors.New("auth: invalid email or password")
	ErrNoSession      = errors.New("auth: no valid session")
)

// Authenticator validates the single configured account and manages
// sessions. When no credentials are configured access is open, which
// matches how the dashboard has always behaved on fresh installs.
type Authenticator struct {
	email    string
	password string
	clk      clock.Clock

	mu       sync.Mutex
	sessions map[string]time.Time
}

func New(email, password string, clk clock.Clock) *Authenticator {
	if email == "" || password == "" {
		golog.Warningf("auth: login not configured, dashboard access is open")
	}
	return &Authenticator{
		email:    email,
		password: password,
		clk:      clk,
		sessions: make(map[string]time.Time),
	}
}

// Open reports whether login is unconfigured and every request is let
// through.
func (a *Authenticator) Open() bool {
	return a.email == "" || a.password == ""
}

// LogIn checks the credentials and returns a new session token. The
// configured password may be a bcrypt hash or plaintext; plaintext is
// compared in constant time.
func (a *Authenticator) LogIn(email, password string) (string, error) {
	if a.Open() {
		return "", errors.Trace(ErrBadCredentials)
	}
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(a.email))) == 1
	if !a.passwordMatches(password) || !emailOK {
		return "", errors.Trace(ErrBadCredentials)
	}
	token := uuid.New().String()
	a.mu.Lock()
	a.sessions[token] = a.clk.Now().Add(sessionTTL)
	a.mu.Unlock()
	return token, nil
}

func (a *Authenticator) passwordMatches(password string) bool {
	if strings.HasPrefix(a.password, "$2a$") || strings.HasPrefix(a.password, "$2b$") || strings.HasPrefix(a.password, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(a.password), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
}

// ValidateToken reports whether the token names a live session.
func (a *Authenticator) ValidateToken(token string) bool {
	if token == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	exp, ok := a.sessions[token]
	if !ok {
		return false
	}
	if a.clk.Now().After(exp) {
		delete(a.sessions, token)
		return false
	}
	return true
}

// LogOut drops the session for token if one exists.
func (a *Authenticator) LogOut(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateRequest checks the session cookie on r. Always nil when
// login is unconfigured.
func (a *Authenticator) ValidateRequest(r *http.Request) error {
	if a.Open() {
		return nil
	}
	c, err := r.Cookie(CookieName)
	if err != nil || !a.ValidateToken(c.Value) {
		return errors.Trace(ErrNoSession)
	}
	return nil
}

// NewAuthCookie wraps token for the request's host.
func NewAuthCookie(token string, r *http.Request) *http.Cookie {
	domain := r.Host
	if i := strings.IndexByte(domain, ':'); i >= 0 {
		domain = domain[:i]
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   domain,
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
	}
}

// ValidateRedirectURL makes sure a user provided URL used for a
// redirect after login stays on this site.
func ValidateRedirectURL(urlString string) (string, bool) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", false
	}
	path := u.Path
	if len(path) == 0 || path[0] != '/' || strings.HasPrefix(path, "//") {
		return "", false
	}
	return path, true
}
