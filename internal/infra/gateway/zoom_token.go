package gateway

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	defaultTokenLifetime = time.Hour
	tokenRefreshMargin   = 30 * time.Second
)

// TokenSource signs the bearer token used by the meeting API. The token is
// minted once at startup and only re-signed when it is about to expire.
type TokenSource struct {
	apiKey    string
	apiSecret []byte
	lifetime  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewTokenSource(apiKey, apiSecret string, lifetime time.Duration, now func() time.Time) (*TokenSource, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("meeting api key and secret are required")
	}
	if lifetime <= tokenRefreshMargin {
		lifetime = defaultTokenLifetime
	}
	if now == nil {
		now = time.Now
	}

	s := &TokenSource{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		lifetime:  lifetime,
		now:       now,
	}
	if _, err := s.Token(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(tokenRefreshMargin).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.lifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    s.apiKey,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.apiSecret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign meeting api token")
	}

	s.token = signed
	s.expires = expires
	return signed, nil
}
