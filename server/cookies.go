package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// cookieCodec signs session IDs into cookies so a forged cookie cannot
// name an arbitrary session. The payload is only the ID; all session
// data stays server-side.
type cookieCodec struct {
	secret []byte
	ttl    time.Duration
}

func newCookieCodec(secret string, ttl time.Duration) *cookieCodec {
	return &cookieCodec{secret: []byte(secret), ttl: ttl}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (c *cookieCodec) encode(sessionID string) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "[cookieCodec.encode] sign")
	}
	return signed, nil
}

func (c *cookieCodec) decode(value string) (string, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "[cookieCodec.decode] parse")
	}
	if !token.Valid || claims.SessionID == "" {
		return "", errors.New("[cookieCodec.decode] invalid session cookie")
	}
	return claims.SessionID, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string) error {
	value, err := s.cookies.encode(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Remember-me: the persistent cookie carries "sessionID.secret"; the
// session stores a bcrypt hash of the secret, so reading the store does
// not yield a usable cookie.

func mintRememberSecret() (secret, hash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", errors.Wrap(err, "[mintRememberSecret] rand.Read")
	}
	secret = base64.RawURLEncoding.EncodeToString(raw)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", errors.Wrap(err, "[mintRememberSecret] bcrypt")
	}
	return secret, string(hashed), nil
}

func checkRememberSecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func (s *Server) setRememberCookie(w http.ResponseWriter, sessionID, secret string) {
	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookieName,
		Value:    sessionID + "." + secret,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearRememberCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     rememberCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func splitRememberCookie(value string) (sessionID, secret string, ok bool) {
	i := strings.LastIndex(value, ".")
	if i <= 0 || i == len(value)-1 {
		return "", "", false
	}
	return value[:i], value[i+1:], true
}
