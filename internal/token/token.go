// Package token issues and validates stateless HS256 bearer tokens.
package token

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/topichub/internal/errs"
	"github.com/and161185/topichub/internal/model"
)

// DefaultIssuer is the iss claim stamped on every token.
const DefaultIssuer = "self"

// expInclusive lets a token pass validation at the exp instant itself;
// jwt rejects once now >= exp, while a token here expires only when now > exp.
const expInclusive = time.Nanosecond

// expiry returns now+ttl rounded up to the whole second the exp claim can carry.
func expiry(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if t := exp.Truncate(time.Second); t.Before(exp) {
		return t.Add(time.Second)
	}
	return exp
}

// Manager mints and verifies tokens with one shared secret.
// It holds no mutable state and is safe for concurrent use.
type Manager struct {
	signKey []byte
	ttl     time.Duration
	issuer  string
	now     func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithIssuer overrides the iss claim.
func WithIssuer(iss string) Option { return func(m *Manager) { m.issuer = iss } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// NewManager constructs a Manager for the given secret and TTL.
func NewManager(signKey []byte, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{signKey: signKey, ttl: ttl, issuer: DefaultIssuer, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Issue creates a signed token whose subject is identity.
// The TTL is rounded up to a whole second; ExpiresAt reports the exact exp claim.
func (m *Manager) Issue(identity string) (model.Tokens, error) {
	if identity == "" {
		return model.Tokens{}, errors.New("token: empty subject")
	}
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, err
	}
	now := m.now()
	exp := expiry(now, m.ttl)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Issuer:    m.issuer,
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

// Validate verifies signature, issuer and expiry and returns the subject.
func (m *Manager) Validate(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
		jwt.WithLeeway(expInclusive),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errs.ErrTokenExpired
		}
		return "", errs.ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", errs.ErrTokenInvalid
	}
	return claims.Subject, nil
}
