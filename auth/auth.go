// Package auth validates the JWT credentials that gate every board request.
package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"boardsync/domain"
)

const defaultKeyCacheTTL = 15 * time.Minute

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// Config describes how tokens are verified. Exactly one of JWKSURL and
// SharedSecret must be set: JWKSURL selects RS256 against a remote key set,
// SharedSecret selects HS256 for local development and tests.
type Config struct {
	JWKSURL      string
	SharedSecret []byte
	Audience     string
	Issuer       string
	KeyCacheTTL  time.Duration
}

// Verifier validates bearer tokens and extracts the subject user id.
type Verifier struct {
	jwks     *keyfunc.JWKS
	secret   []byte
	audience string
	issuer   string

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewVerifier builds a verifier from cfg. When JWKSURL is set the remote key
// set is fetched eagerly so a misconfigured endpoint fails at startup.
func NewVerifier(cfg Config) (*Verifier, error) {
	v := &Verifier{
		secret:      cfg.SharedSecret,
		audience:    cfg.Audience,
		issuer:      cfg.Issuer,
		keyCacheTTL: cfg.KeyCacheTTL,
	}
	if v.keyCacheTTL == 0 {
		v.keyCacheTTL = defaultKeyCacheTTL
	}

	switch {
	case cfg.JWKSURL != "" && len(cfg.SharedSecret) > 0:
		return nil, errors.New("auth: JWKSURL and SharedSecret are mutually exclusive")
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:  time.Hour,
			RefreshRateLimit: 5 * time.Minute,
			RefreshErrorHandler: func(err error) {
				// Keys already fetched keep working; refresh retries later.
			},
		})
		if err != nil {
			return nil, err
		}
		v.jwks = jwks
		v.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	case len(cfg.SharedSecret) > 0:
		v.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	default:
		return nil, errors.New("auth: either JWKSURL or SharedSecret must be set")
	}
	return v, nil
}

// Close releases the background JWKS refresh goroutine, if any.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// UserIDFromAuthHeader extracts the subject from an Authorization header.
func (v *Verifier) UserIDFromAuthHeader(header string) (string, error) {
	token, err := bearerToken(header)
	if err != nil {
		return "", &domain.AuthorizationError{Msg: err.Error()}
	}
	return v.UserIDFromToken(token)
}

// UserIDFromToken extracts the subject from a raw bearer token.
func (v *Verifier) UserIDFromToken(token string) (string, error) {
	sub, err := v.verify(token)
	if err != nil {
		return "", &domain.AuthorizationError{Msg: err.Error()}
	}
	return sub, nil
}

func (v *Verifier) verify(token string) (string, error) {
	if token == "" {
		return "", errBadAuthorization
	}

	var parsed *jwt.Token
	var err error
	if v.secret != nil {
		parsed, err = v.parser.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return v.secret, nil
		})
	} else {
		parsed, err = v.parser.Parse(token, v.keyForToken)
	}
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	// Tokens expiring within the next minute are treated as expired so a
	// request never outlives its credentials mid-flight.
	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now, false) {
		return "", errors.New("token used before issued")
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, false) {
		return "", errors.New("invalid audience")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, false) {
		return "", errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

func (v *Verifier) keyForToken(token *jwt.Token) (any, error) {
	if v.jwks == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" {
		if cached, ok := v.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			v.keyCache.Delete(kid)
		}
	}

	key, err := v.jwks.Keyfunc(token)
	if err != nil {
		return nil, err
	}
	if kid != "" {
		v.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(v.keyCacheTTL)})
	}
	return key, nil
}

func bearerToken(header string) (string, error) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(trimmed, "Bearer ")
	if !ok || token == "" {
		return "", errBadAuthorization
	}
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
